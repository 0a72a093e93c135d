package docsystem

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SearchField names a filterable document attribute
type SearchField string

const (
	FieldText         SearchField = "text" // original name or description
	FieldDepartmentID SearchField = "department_id"
	FieldFolderID     SearchField = "folder_id"
	FieldUploadedAt   SearchField = "uploaded_at"
	FieldStatus       SearchField = "status"
	FieldTags         SearchField = "tags"
	FieldPublic       SearchField = "public"
	FieldUploaderID   SearchField = "uploader_id"
)

// Operator is the comparison applied by a Condition
type Operator string

const (
	OpEq       Operator = "eq"
	OpContains Operator = "contains" // case-insensitive substring
	OpGte      Operator = "gte"
	OpLte      Operator = "lte"
	OpHasAll   Operator = "has_all" // set containment for tags
	OpIsNull   Operator = "is_null"
)

// Condition is one leaf of the filter AST: (field, operator, value).
// Conditions inside a Node compose with the node's combinator.
type Condition struct {
	Field    SearchField `json:"field"`
	Operator Operator    `json:"op"`
	Value    any         `json:"value,omitempty"`
}

// Combinator joins the children of a Node
type Combinator string

const (
	CombineAnd Combinator = "and"
	CombineOr  Combinator = "or"
)

// Node is a filter AST node: either a leaf Condition or a combination of children
type Node struct {
	Condition  *Condition `json:"condition,omitempty"`
	Combinator Combinator `json:"combinator,omitempty"`
	Children   []Node     `json:"children,omitempty"`
}

// Leaf wraps a condition as a Node
func Leaf(field SearchField, op Operator, value any) Node {
	return Node{Condition: &Condition{Field: field, Operator: op, Value: value}}
}

// And combines nodes conjunctively
func And(nodes ...Node) Node {
	return Node{Combinator: CombineAnd, Children: nodes}
}

// Or combines nodes disjunctively
func Or(nodes ...Node) Node {
	return Node{Combinator: CombineOr, Children: nodes}
}

// SortField orders search results
type SortField string

const (
	SortUploadedAt SortField = "uploaded_at"
	SortModifiedAt SortField = "modified_at"
	SortName       SortField = "name"
	SortSize       SortField = "size"
	SortDownloads  SortField = "downloads"
)

// Default search configuration values
const (
	DefaultSearchPage     = 1
	DefaultSearchPageSize = 20
	DefaultSearchSort     = SortUploadedAt
)

// SearchFilter is the caller-facing filter. Empty fields are no-ops.
type SearchFilter struct {
	Text         string         `json:"text,omitempty"`
	DepartmentID string         `json:"department_id,omitempty"`
	FolderID     *string        `json:"folder_id,omitempty"`
	From         *time.Time     `json:"from,omitempty"`
	To           *time.Time     `json:"to,omitempty"`
	Status       DocumentStatus `json:"status,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Public       *bool          `json:"public,omitempty"`
	Sort         SortField      `json:"sort,omitempty"`
	Desc         *bool          `json:"desc,omitempty"`
	Page         int            `json:"page"`
	PageSize     int            `json:"page_size"`
}

// ApplyDefaults fills in default values and clamps the page size to maxPageSize
func (f *SearchFilter) ApplyDefaults(defaultPageSize, maxPageSize int) {
	if f.Page < 1 {
		f.Page = DefaultSearchPage
	}
	if defaultPageSize <= 0 {
		defaultPageSize = DefaultSearchPageSize
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if maxPageSize > 0 && f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	if f.Sort == "" {
		f.Sort = DefaultSearchSort
	}
	if f.Desc == nil {
		desc := f.Sort != SortName
		f.Desc = &desc
	}
	f.Text = strings.TrimSpace(f.Text)
	if len(f.Tags) > 0 {
		tags := make([]string, 0, len(f.Tags))
		seen := make(map[string]bool, len(f.Tags))
		for _, t := range f.Tags {
			t = strings.ToLower(strings.TrimSpace(t))
			if t != "" && !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
		sort.Strings(tags)
		f.Tags = tags
	}
}

// Validate checks values are reasonable
func (f *SearchFilter) Validate() error {
	if f.Page < 1 {
		return fmt.Errorf("page must be at least 1")
	}
	if f.PageSize < 1 {
		return fmt.Errorf("page size must be at least 1")
	}
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("invalid status: %q", f.Status)
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return fmt.Errorf("date range start is after its end")
	}
	switch f.Sort {
	case SortUploadedAt, SortModifiedAt, SortName, SortSize, SortDownloads:
	default:
		return fmt.Errorf("invalid sort field: %q", f.Sort)
	}
	return nil
}

// Conditions expresses the filter as a conjunctive AST. Missing fields contribute nothing.
func (f *SearchFilter) Conditions() Node {
	var nodes []Node
	if f.Text != "" {
		nodes = append(nodes, Leaf(FieldText, OpContains, f.Text))
	}
	if f.DepartmentID != "" {
		nodes = append(nodes, Leaf(FieldDepartmentID, OpEq, f.DepartmentID))
	}
	if f.FolderID != nil {
		if *f.FolderID == "" {
			nodes = append(nodes, Leaf(FieldFolderID, OpIsNull, nil))
		} else {
			nodes = append(nodes, Leaf(FieldFolderID, OpEq, *f.FolderID))
		}
	}
	if f.From != nil {
		nodes = append(nodes, Leaf(FieldUploadedAt, OpGte, f.From.UTC()))
	}
	if f.To != nil {
		nodes = append(nodes, Leaf(FieldUploadedAt, OpLte, f.To.UTC()))
	}
	if f.Status != "" {
		nodes = append(nodes, Leaf(FieldStatus, OpEq, string(f.Status)))
	}
	if len(f.Tags) > 0 {
		nodes = append(nodes, Leaf(FieldTags, OpHasAll, f.Tags))
	}
	if f.Public != nil {
		nodes = append(nodes, Leaf(FieldPublic, OpEq, *f.Public))
	}
	return And(nodes...)
}

// SearchQuery is what repositories execute: a fully built AST plus ordering and a page window
type SearchQuery struct {
	Where  Node
	Sort   SortField
	Desc   bool
	Limit  int
	Offset int
}

// SearchResults contains one page of matches with pagination metadata
type SearchResults struct {
	Documents       []Document `json:"documents"`
	TotalCount      int        `json:"total_count"`
	Page            int        `json:"page"`
	PageSize        int        `json:"page_size"`
	HasNextPage     bool       `json:"has_next_page"`
	HasPreviousPage bool       `json:"has_previous_page"`
}

// NewSearchResults derives pagination flags from page * pageSize against totalCount
func NewSearchResults(docs []Document, totalCount int, f *SearchFilter) *SearchResults {
	if docs == nil {
		docs = []Document{}
	}
	return &SearchResults{
		Documents:       docs,
		TotalCount:      totalCount,
		Page:            f.Page,
		PageSize:        f.PageSize,
		HasNextPage:     f.Page*f.PageSize < totalCount,
		HasPreviousPage: f.Page > 1,
	}
}
