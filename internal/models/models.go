package models

import "encoding/json"

// Upload is a file as received from the client, before admission.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Data        []byte
}

// UploadedItem is an admitted upload. Index is its 0-based position in the batch.
type UploadedItem struct {
	Index       int
	Filename    string
	ContentType string
	Data        []byte
	Size        int
}

type RejectedFile struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// RawClaim is one element of the model's JSON array. Every field is kept raw
// because the model is free to omit or mistype any of them.
type RawClaim struct {
	Title        json.RawMessage `json:"title"`
	Category     json.RawMessage `json:"category"`
	Subcategory  json.RawMessage `json:"subcategory"`
	Color        json.RawMessage `json:"color"`
	Reasoning    json.RawMessage `json:"reasoning"`
	Images       json.RawMessage `json:"images"`
	ImageIndices json.RawMessage `json:"image_indices"`
	Indices      json.RawMessage `json:"indices"`
	References   json.RawMessage `json:"references"`
	Filenames    json.RawMessage `json:"filenames"`
}

type ReferenceKind int

const (
	ReferenceInvalid ReferenceKind = iota
	ReferenceIndex
	ReferenceFilename
)

// Reference points from a claim back to an uploaded item.
type Reference struct {
	Kind  ReferenceKind
	Index int
	Name  string
	Raw   string
}

// GroupClaim is an unvalidated grouping assertion from the model.
type GroupClaim struct {
	Title       string
	Category    string
	Subcategory string
	Color       string
	Reasoning   string
	References  []Reference
}

// ValidatedGroup is one block of the batch partition produced by reconciliation.
type ValidatedGroup struct {
	Title         string
	Category      string
	Subcategory   string
	Color         string
	MemberIndices []int
	Synthetic     bool
}

type ProductResult struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Color         string   `json:"color,omitempty"`
	Images        []string `json:"images"`
	Filenames     []string `json:"filenames"`
	SizeBytes     int      `json:"size_bytes"`
	MemberIndices []int    `json:"member_indices"`
	Synthetic     bool     `json:"synthetic,omitempty"`
}

type BatchResponse struct {
	Success        bool            `json:"success"`
	BatchID        string          `json:"batch_id,omitempty"`
	Results        []ProductResult `json:"results"`
	ProcessedCount int             `json:"processed_count"`
	TotalFiles     int             `json:"total_files"`
	RejectedFiles  []RejectedFile  `json:"rejected_files,omitempty"`
	Error          string          `json:"error,omitempty"`
	RawResponse    string          `json:"raw_response,omitempty"`
}

type ImageDescription struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	Description  string `json:"description"`
	ImagePreview string `json:"image_preview"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	SizeBytes    int    `json:"size_bytes"`
}

type SingleResponse struct {
	Success bool              `json:"success"`
	Result  *ImageDescription `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Category is one entry of the marketplace category list.
type Category struct {
	Name          string   `yaml:"name" json:"name"`
	Subcategories []string `yaml:"subcategories" json:"subcategories,omitempty"`
}

type BatchRecord struct {
	BatchID       string `json:"batch_id"`
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	AdmittedCount int    `json:"admitted_count"`
	RejectedCount int    `json:"rejected_count"`
	GroupCount    int    `json:"group_count"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
	RawResponse   string `json:"raw_response,omitempty"`
	CreatedAt     string `json:"created_at"`
}
