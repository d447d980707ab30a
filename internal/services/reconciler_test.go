package services

import (
	"fmt"
	"testing"

	"photo-grouper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// coverageClaims builds pair claims over the first pct percent of [0, n).
// Above 100 the extra claims re-reference indices from the start.
func coverageClaims(n, pct int) []models.GroupClaim {
	total := n * pct / 100
	var claims []models.GroupClaim
	for start := 0; start < total; start += 2 {
		var refs []int
		for k := start; k < start+2 && k < total; k++ {
			refs = append(refs, k%n)
		}
		claims = append(claims, models.GroupClaim{
			Title:      fmt.Sprintf("Product %d", start),
			Category:   "Furniture",
			References: idx(refs...),
		})
	}
	return claims
}

func TestReconcileCompleteness(t *testing.T) {
	for _, n := range []int{1, 5, 50} {
		for _, pct := range []int{0, 50, 100, 150} {
			t.Run(fmt.Sprintf("n=%d/coverage=%d", n, pct), func(t *testing.T) {
				items := makeItems(n)
				groups, _ := Reconcile(coverageClaims(n, pct), items)
				requirePartition(t, groups, n)
			})
		}
	}
}

func TestReconcileDeterministic(t *testing.T) {
	items := makeItems(6)
	claims := []models.GroupClaim{
		{Title: "A", References: idx(4, 1, 9)},
		{Title: "B", References: idx(1, 1)},
		{Title: "C", References: names("photo_5.jpg")},
	}

	first, firstRepairs := Reconcile(claims, items)
	second, secondRepairs := Reconcile(claims, items)

	assert.Equal(t, first, second)
	assert.Equal(t, firstRepairs, secondRepairs)
}

func TestReconcileDuplicateReference(t *testing.T) {
	items := makeItems(3)
	claims := []models.GroupClaim{
		{Title: "A", Category: "x", References: idx(0, 1)},
		{Title: "B", Category: "y", References: idx(1, 2)},
	}

	groups, repairs := Reconcile(claims, items)

	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 1}, groups[0].MemberIndices)
	assert.Equal(t, "A", groups[0].Title)
	assert.Equal(t, []int{2}, groups[1].MemberIndices)
	assert.Equal(t, "B", groups[1].Title)

	require.Len(t, repairs, 1)
	assert.Equal(t, RepairDroppedReference, repairs[0].Kind)
	assert.Equal(t, 1, repairs[0].Claim)
	assert.Equal(t, "1", repairs[0].Reference)
}

func TestReconcileOutOfRange(t *testing.T) {
	items := makeItems(3)
	claims := []models.GroupClaim{
		{Title: "A", Category: "x", References: idx(3, -1, 0)},
	}

	groups, repairs := Reconcile(claims, items)

	requirePartition(t, groups, 3)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{0}, groups[0].MemberIndices)
	assert.False(t, groups[0].Synthetic)

	dropped := 0
	for _, r := range repairs {
		if r.Kind == RepairDroppedReference {
			dropped++
		}
	}
	assert.Equal(t, 2, dropped)
}

func TestReconcileLeftoverSynthesis(t *testing.T) {
	items := namedItems("chair_front.jpg", "red-lamp.png", "chair_back.jpg")
	claims := []models.GroupClaim{
		{Title: "Chair", Category: "Furniture", References: idx(0, 2)},
	}

	groups, repairs := Reconcile(claims, items)

	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 2}, groups[0].MemberIndices)
	assert.Equal(t, models.ValidatedGroup{
		Title:         "red lamp",
		Category:      UnclassifiedCategory,
		MemberIndices: []int{1},
		Synthetic:     true,
	}, groups[1])

	require.Len(t, repairs, 1)
	assert.Equal(t, RepairSyntheticGroup, repairs[0].Kind)
	assert.Equal(t, 1, repairs[0].Index)
}

func TestReconcileEmptyClaimTakesLowestUnclaimed(t *testing.T) {
	items := makeItems(4)
	claims := []models.GroupClaim{
		{Title: "A", Category: "x", References: idx(0, 2)},
		{Title: "B", Category: "y", References: idx(7)},
		{Title: "C", Category: "z"},
	}

	groups, repairs := Reconcile(claims, items)

	requirePartition(t, groups, 4)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{1}, groups[1].MemberIndices)
	assert.Equal(t, "B", groups[1].Title)
	assert.Equal(t, []int{3}, groups[2].MemberIndices)
	assert.Equal(t, "C", groups[2].Title)

	var fallbacks []int
	for _, r := range repairs {
		if r.Kind == RepairFallbackIndex {
			fallbacks = append(fallbacks, r.Index)
		}
	}
	assert.Equal(t, []int{1, 3}, fallbacks)
}

func TestReconcileDropsClaimWhenNothingLeft(t *testing.T) {
	items := makeItems(1)
	claims := []models.GroupClaim{
		{Title: "A", Category: "x", References: idx(0)},
		{Title: "B", Category: "y", References: idx(0)},
	}

	groups, repairs := Reconcile(claims, items)

	require.Len(t, groups, 1)
	assert.Equal(t, "A", groups[0].Title)
	require.Len(t, repairs, 2)
	assert.Equal(t, RepairDroppedReference, repairs[0].Kind)
	assert.Equal(t, RepairDroppedClaim, repairs[1].Kind)
	assert.Equal(t, 1, repairs[1].Claim)
}

func TestReconcileSortsMembersAndKeepsClaimOrder(t *testing.T) {
	items := makeItems(5)
	claims := []models.GroupClaim{
		{Title: "Second", Category: "x", References: idx(4, 3)},
		{Title: "First", Category: "x", References: idx(2, 0, 1)},
	}

	groups, _ := Reconcile(claims, items)

	require.Len(t, groups, 2)
	assert.Equal(t, "Second", groups[0].Title)
	assert.Equal(t, []int{3, 4}, groups[0].MemberIndices)
	assert.Equal(t, "First", groups[1].Title)
	assert.Equal(t, []int{0, 1, 2}, groups[1].MemberIndices)
}

func TestReconcileFilenameReferences(t *testing.T) {
	items := namedItems("a.jpg", "b.jpg", "c.jpg")
	claims := []models.GroupClaim{
		{Title: "Pair", Category: "x", References: names("c.jpg", "a.jpg")},
		{Title: "Ghost", Category: "x", References: names("missing.jpg")},
	}

	groups, repairs := Reconcile(claims, items)

	requirePartition(t, groups, 3)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 2}, groups[0].MemberIndices)
	assert.Equal(t, []int{1}, groups[1].MemberIndices)
	assert.Equal(t, RepairDroppedReference, repairs[0].Kind)
	assert.Contains(t, repairs[0].Reason, "missing.jpg")
}

func TestReconcileFilenamesUnavailableWithDuplicates(t *testing.T) {
	items := namedItems("img.jpg", "img.jpg", "other.jpg")
	claims := []models.GroupClaim{
		{Title: "Ambiguous", Category: "x", References: names("img.jpg", "other.jpg")},
	}

	groups, repairs := Reconcile(claims, items)

	requirePartition(t, groups, 3)
	assert.Equal(t, []int{0}, groups[0].MemberIndices)
	assert.Equal(t, RepairDroppedReference, repairs[0].Kind)
	assert.Contains(t, repairs[0].Reason, "duplicate filenames")
}

func TestReconcileQuotedIndices(t *testing.T) {
	items := makeItems(3)
	claims := []models.GroupClaim{
		{Title: "Chair", Category: "Furniture", References: names("0", "1")},
	}

	groups, repairs := Reconcile(claims, items)

	requirePartition(t, groups, 3)
	require.Len(t, groups, 2)
	assert.Equal(t, []int{0, 1}, groups[0].MemberIndices)
	assert.False(t, groups[0].Synthetic)
	assert.Equal(t, []int{2}, groups[1].MemberIndices)
	require.Len(t, repairs, 1)
	assert.Equal(t, RepairSyntheticGroup, repairs[0].Kind)
}

func TestReconcileQuotedIndexEdgeCases(t *testing.T) {
	t.Run("filename match wins", func(t *testing.T) {
		items := namedItems("a.jpg", "0")
		groups, _ := Reconcile([]models.GroupClaim{
			{Title: "A", Category: "x", References: names("0")},
		}, items)
		assert.Equal(t, []int{1}, groups[0].MemberIndices)
	})

	t.Run("out of range", func(t *testing.T) {
		items := makeItems(2)
		_, repairs := Reconcile([]models.GroupClaim{
			{Title: "A", Category: "x", References: names("7", "1")},
		}, items)
		require.NotEmpty(t, repairs)
		assert.Equal(t, RepairDroppedReference, repairs[0].Kind)
		assert.Contains(t, repairs[0].Reason, "out of range")
	})

	t.Run("duplicate filenames", func(t *testing.T) {
		items := namedItems("img.jpg", "img.jpg")
		groups, repairs := Reconcile([]models.GroupClaim{
			{Title: "A", Category: "x", References: names("1")},
		}, items)
		assert.Equal(t, []int{1}, groups[0].MemberIndices)
		for _, r := range repairs {
			assert.NotEqual(t, RepairDroppedReference, r.Kind)
		}
	})

	t.Run("signed or fractional text stays a filename", func(t *testing.T) {
		items := makeItems(2)
		_, repairs := Reconcile([]models.GroupClaim{
			{Title: "A", Category: "x", References: names("-1", "1.0", "1")},
		}, items)
		require.GreaterOrEqual(t, len(repairs), 2)
		assert.Contains(t, repairs[0].Reason, "unknown filename")
		assert.Contains(t, repairs[1].Reason, "unknown filename")
	})
}

func TestReconcileInvalidReferenceKind(t *testing.T) {
	items := makeItems(2)
	claims := []models.GroupClaim{
		{Title: "A", Category: "x", References: []models.Reference{
			{Kind: models.ReferenceInvalid, Raw: "true"},
			{Kind: models.ReferenceIndex, Index: 1, Raw: "1"},
		}},
	}

	groups, repairs := Reconcile(claims, items)

	assert.Equal(t, []int{1}, groups[0].MemberIndices)
	assert.Equal(t, "true", repairs[0].Reference)
}

func TestReconcileFillsMissingTitleAndCategory(t *testing.T) {
	items := namedItems("blue_sofa.jpg")
	claims := []models.GroupClaim{{References: idx(0)}}

	groups, _ := Reconcile(claims, items)

	require.Len(t, groups, 1)
	assert.Equal(t, "blue sofa", groups[0].Title)
	assert.Equal(t, UnclassifiedCategory, groups[0].Category)
	assert.False(t, groups[0].Synthetic)
}

func TestPlaceholderTitle(t *testing.T) {
	tests := []struct {
		filename string
		index    int
		want     string
	}{
		{"red_chair-01.jpg", 0, "red chair 01"},
		{"dir/lamp.png", 0, "lamp"},
		{"", 2, "Item 3"},
		{".jpg", 4, "Item 5"},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			got := PlaceholderTitle(models.UploadedItem{Index: tt.index, Filename: tt.filename})
			assert.Equal(t, tt.want, got)
		})
	}
}
