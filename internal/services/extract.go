package services

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"photo-grouper/internal/models"
)

const fenceMarker = "```"

// ExtractJSONArray pulls the JSON array out of a model response. The text may
// be bare JSON, fenced in a markdown code block, or wrapped in prose.
func ExtractJSONArray(raw string) ([]json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, &MalformedResponseError{Raw: raw, Reason: "response is empty"}
	}
	if strings.HasPrefix(trimmed, "<") {
		return nil, &MalformedResponseError{Raw: raw, Reason: "response looks like an HTML page"}
	}

	if strings.HasPrefix(trimmed, fenceMarker) {
		if elems, err := decodeArray(fencedContent(trimmed)); err == nil {
			return elems, nil
		}
	}

	candidate, ok := bracketedContent(trimmed)
	if !ok {
		return nil, &MalformedResponseError{Raw: raw, Reason: "no JSON array found"}
	}
	elems, err := decodeArray(candidate)
	if err != nil {
		return nil, &MalformedResponseError{Raw: raw, Reason: "invalid JSON: " + err.Error()}
	}
	return elems, nil
}

// fencedContent keeps only the lines seen while inside a fence. Marker lines
// toggle the state and are themselves dropped.
func fencedContent(text string) string {
	var kept []string
	inside := false
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), fenceMarker) {
			inside = !inside
			continue
		}
		if inside {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func bracketedContent(text string) (string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

func decodeArray(text string) ([]json.RawMessage, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &elems); err != nil {
		return nil, err
	}
	return elems, nil
}

// DecodeClaims turns raw array elements into claims. Elements that are not
// JSON objects describe nothing and are counted in skipped.
func DecodeClaims(elems []json.RawMessage, sanitizer *TextSanitizer) (claims []models.GroupClaim, skipped int) {
	claims = make([]models.GroupClaim, 0, len(elems))
	for _, elem := range elems {
		trimmed := bytes.TrimSpace(elem)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			skipped++
			continue
		}

		var rc models.RawClaim
		if err := json.Unmarshal(trimmed, &rc); err != nil {
			skipped++
			continue
		}

		claims = append(claims, models.GroupClaim{
			Title:       sanitizer.Field(rawString(rc.Title)),
			Category:    sanitizer.Field(rawString(rc.Category)),
			Subcategory: sanitizer.Field(rawString(rc.Subcategory)),
			Color:       sanitizer.Field(rawString(rc.Color)),
			Reasoning:   sanitizer.SanitizeText(rawString(rc.Reasoning)),
			References:  decodeReferences(firstPresent(rc.Images, rc.ImageIndices, rc.Indices, rc.References, rc.Filenames)),
		})
	}
	return claims, skipped
}

func firstPresent(fields ...json.RawMessage) json.RawMessage {
	for _, f := range fields {
		t := bytes.TrimSpace(f)
		if len(t) > 0 && !bytes.Equal(t, []byte("null")) {
			return t
		}
	}
	return nil
}

// rawString accepts a JSON string or number; anything else reads as empty.
func rawString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func decodeReferences(raw json.RawMessage) []models.Reference {
	if len(raw) == 0 {
		return nil
	}

	var elems []json.RawMessage
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &elems); err != nil {
			return []models.Reference{{Kind: models.ReferenceInvalid, Raw: string(raw)}}
		}
	} else {
		elems = []json.RawMessage{raw}
	}

	refs := make([]models.Reference, 0, len(elems))
	for _, elem := range elems {
		refs = append(refs, decodeReference(bytes.TrimSpace(elem)))
	}
	return refs
}

func decodeReference(elem json.RawMessage) models.Reference {
	ref := models.Reference{Kind: models.ReferenceInvalid, Raw: string(elem)}
	if len(elem) == 0 {
		return ref
	}

	switch elem[0] {
	case '"':
		var name string
		if err := json.Unmarshal(elem, &name); err == nil {
			ref.Kind = models.ReferenceFilename
			ref.Name = strings.TrimSpace(name)
		}
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		f, err := strconv.ParseFloat(string(elem), 64)
		if err != nil || f != math.Trunc(f) {
			return ref
		}
		ref.Kind = models.ReferenceIndex
		if f < math.MinInt32 || f > math.MaxInt32 {
			ref.Index = -1
		} else {
			ref.Index = int(f)
		}
	}
	return ref
}
