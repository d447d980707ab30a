package services

import (
	"encoding/base64"
	"fmt"

	"photo-grouper/internal/models"

	"github.com/google/uuid"
)

type ResultAssembler struct {
	newID func() string
}

func NewResultAssembler() *ResultAssembler {
	return &ResultAssembler{newID: uuid.NewString}
}

// Assemble builds one ProductResult per group. Groups must come from
// Reconcile; an index outside the batch or shared by two groups is a defect
// and is reported as ErrInternalInvariantViolation.
func (a *ResultAssembler) Assemble(groups []models.ValidatedGroup, items []models.UploadedItem) ([]models.ProductResult, error) {
	seen := make([]bool, len(items))
	results := make([]models.ProductResult, 0, len(groups))

	for gi, group := range groups {
		result := models.ProductResult{
			ID:            a.newID(),
			Title:         group.Title,
			Category:      group.Category,
			Subcategory:   group.Subcategory,
			Color:         group.Color,
			Images:        make([]string, 0, len(group.MemberIndices)),
			Filenames:     make([]string, 0, len(group.MemberIndices)),
			MemberIndices: append([]int(nil), group.MemberIndices...),
			Synthetic:     group.Synthetic,
		}

		for _, idx := range group.MemberIndices {
			if idx < 0 || idx >= len(items) {
				return nil, fmt.Errorf("%w: group %d references index %d outside batch of %d", ErrInternalInvariantViolation, gi, idx, len(items))
			}
			if seen[idx] {
				return nil, fmt.Errorf("%w: index %d assigned to more than one group", ErrInternalInvariantViolation, idx)
			}
			seen[idx] = true

			item := items[idx]
			result.Images = append(result.Images, DataURI(item.ContentType, item.Data))
			result.Filenames = append(result.Filenames, item.Filename)
			result.SizeBytes += item.Size
		}

		results = append(results, result)
	}

	for idx, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("%w: index %d not assigned to any group", ErrInternalInvariantViolation, idx)
		}
	}

	return results, nil
}

func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
