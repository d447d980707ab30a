package services

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"photo-grouper/internal/models"
)

const UnclassifiedCategory = "unclassified"

type RepairKind string

const (
	RepairDroppedReference RepairKind = "dropped_reference"
	RepairFallbackIndex    RepairKind = "fallback_index"
	RepairDroppedClaim     RepairKind = "dropped_claim"
	RepairSyntheticGroup   RepairKind = "synthetic_group"
)

// Repair records one deviation between the model's claims and the final
// partition.
type Repair struct {
	Kind      RepairKind
	Claim     int
	Reference string
	Index     int
	Reason    string
}

// Reconcile turns untrusted claims into a partition of items: every admitted
// item ends up in exactly one group.
//
// Claims are processed in order. A reference survives only if it resolves to
// an index in [0, N) that no earlier reference has taken. A claim left with no
// members takes the lowest unclaimed index, or is dropped when none is left.
// Items nobody claimed become synthetic singleton groups, appended in
// ascending index order.
func Reconcile(claims []models.GroupClaim, items []models.UploadedItem) ([]models.ValidatedGroup, []Repair) {
	n := len(items)
	byName, injective := filenameIndex(items)
	claimed := make([]bool, n)

	var (
		groups  []models.ValidatedGroup
		repairs []Repair
	)

	for ci, claim := range claims {
		var members []int
		for _, ref := range claim.References {
			idx, reason := resolveReference(ref, n, byName, injective)
			if reason == "" && claimed[idx] {
				reason = fmt.Sprintf("index %d already claimed", idx)
			}
			if reason != "" {
				repairs = append(repairs, Repair{Kind: RepairDroppedReference, Claim: ci, Reference: ref.Raw, Index: -1, Reason: reason})
				continue
			}
			claimed[idx] = true
			members = append(members, idx)
		}

		if len(members) == 0 {
			idx := lowestUnclaimed(claimed)
			if idx == -1 {
				repairs = append(repairs, Repair{Kind: RepairDroppedClaim, Claim: ci, Index: -1, Reason: "no valid references and no unclaimed items left"})
				continue
			}
			claimed[idx] = true
			members = []int{idx}
			repairs = append(repairs, Repair{Kind: RepairFallbackIndex, Claim: ci, Index: idx, Reason: "claim had no valid references"})
		}

		sort.Ints(members)
		groups = append(groups, claimedGroup(claim, items[members[0]], members))
	}

	for idx := 0; idx < n; idx++ {
		if claimed[idx] {
			continue
		}
		groups = append(groups, syntheticGroup(items[idx]))
		repairs = append(repairs, Repair{Kind: RepairSyntheticGroup, Claim: -1, Index: idx, Reason: "item not referenced by any claim"})
	}

	return groups, repairs
}

// filenameIndex maps filenames to indices. The map is usable only when
// filenames are unique within the batch.
func filenameIndex(items []models.UploadedItem) (map[string]int, bool) {
	byName := make(map[string]int, len(items))
	for _, item := range items {
		if _, dup := byName[item.Filename]; dup {
			return nil, false
		}
		byName[item.Filename] = item.Index
	}
	return byName, true
}

func resolveReference(ref models.Reference, n int, byName map[string]int, injective bool) (int, string) {
	switch ref.Kind {
	case models.ReferenceIndex:
		if ref.Index < 0 || ref.Index >= n {
			return -1, fmt.Sprintf("index %d out of range [0, %d)", ref.Index, n)
		}
		return ref.Index, ""
	case models.ReferenceFilename:
		if injective {
			if idx, ok := byName[ref.Name]; ok {
				return idx, ""
			}
		}
		// Models often quote indices ("0"). An exact filename match wins.
		if i, ok := quotedIndex(ref.Name); ok {
			return resolveReference(models.Reference{Kind: models.ReferenceIndex, Index: i}, n, byName, injective)
		}
		if !injective {
			return -1, "filename references unavailable: batch has duplicate filenames"
		}
		return -1, fmt.Sprintf("unknown filename %q", ref.Name)
	default:
		return -1, "reference is neither an integer index nor a filename"
	}
}

func quotedIndex(name string) (int, bool) {
	if name == "" || len(name) > 9 {
		return 0, false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(name)
	return i, err == nil
}

func lowestUnclaimed(claimed []bool) int {
	for idx, taken := range claimed {
		if !taken {
			return idx
		}
	}
	return -1
}

func claimedGroup(claim models.GroupClaim, first models.UploadedItem, members []int) models.ValidatedGroup {
	group := models.ValidatedGroup{
		Title:         claim.Title,
		Category:      claim.Category,
		Subcategory:   claim.Subcategory,
		Color:         claim.Color,
		MemberIndices: members,
	}
	if group.Title == "" {
		group.Title = PlaceholderTitle(first)
	}
	if group.Category == "" {
		group.Category = UnclassifiedCategory
	}
	return group
}

func syntheticGroup(item models.UploadedItem) models.ValidatedGroup {
	return models.ValidatedGroup{
		Title:         PlaceholderTitle(item),
		Category:      UnclassifiedCategory,
		MemberIndices: []int{item.Index},
		Synthetic:     true,
	}
}

// PlaceholderTitle derives a readable title from the item's filename.
func PlaceholderTitle(item models.UploadedItem) string {
	base := filepath.Base(item.Filename)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" || base == "." {
		return fmt.Sprintf("Item %d", item.Index+1)
	}
	return base
}
