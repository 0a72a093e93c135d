package memory

import (
	"slices"
	"sort"
	"strings"
	"time"

	"deptdocs/internal/domain/models/docsystem"
)

// Match evaluates a filter AST against one document. An empty And matches
// everything and an empty Or matches nothing.
func Match(n docsystem.Node, d *docsystem.Document) bool {
	if n.Condition != nil {
		return matchCondition(n.Condition, d)
	}
	switch n.Combinator {
	case docsystem.CombineOr:
		for _, child := range n.Children {
			if Match(child, d) {
				return true
			}
		}
		return false
	default:
		for _, child := range n.Children {
			if !Match(child, d) {
				return false
			}
		}
		return true
	}
}

func matchCondition(c *docsystem.Condition, d *docsystem.Document) bool {
	switch c.Field {
	case docsystem.FieldText:
		needle, _ := c.Value.(string)
		needle = strings.ToLower(needle)
		return strings.Contains(strings.ToLower(d.OriginalName), needle) ||
			strings.Contains(strings.ToLower(d.Description), needle)
	case docsystem.FieldDepartmentID:
		return compareString(c, d.DepartmentID)
	case docsystem.FieldUploaderID:
		return compareString(c, d.UploaderID)
	case docsystem.FieldStatus:
		return compareString(c, string(d.Status))
	case docsystem.FieldFolderID:
		if c.Operator == docsystem.OpIsNull {
			return d.FolderID == nil
		}
		return d.FolderID != nil && compareString(c, *d.FolderID)
	case docsystem.FieldPublic:
		want, ok := c.Value.(bool)
		return ok && c.Operator == docsystem.OpEq && d.Public == want
	case docsystem.FieldUploadedAt:
		bound, ok := c.Value.(time.Time)
		if !ok {
			return false
		}
		switch c.Operator {
		case docsystem.OpGte:
			return !d.UploadedAt.Before(bound)
		case docsystem.OpLte:
			return !d.UploadedAt.After(bound)
		}
		return false
	case docsystem.FieldTags:
		want, _ := c.Value.([]string)
		for _, tag := range want {
			if !slices.Contains(d.Tags, tag) {
				return false
			}
		}
		return c.Operator == docsystem.OpHasAll
	}
	return false
}

func compareString(c *docsystem.Condition, actual string) bool {
	want, ok := c.Value.(string)
	if !ok {
		return false
	}
	switch c.Operator {
	case docsystem.OpEq:
		return actual == want
	case docsystem.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(want))
	}
	return false
}

// sortDocuments orders by field and direction, breaking ties by id ascending
func sortDocuments(docs []docsystem.Document, field docsystem.SortField, desc bool) {
	less := func(a, b *docsystem.Document) int {
		switch field {
		case docsystem.SortName:
			return strings.Compare(strings.ToLower(a.OriginalName), strings.ToLower(b.OriginalName))
		case docsystem.SortSize:
			return cmpInt(a.SizeBytes, b.SizeBytes)
		case docsystem.SortDownloads:
			return cmpInt(a.DownloadCount, b.DownloadCount)
		case docsystem.SortModifiedAt:
			return a.ModifiedAt.Compare(b.ModifiedAt)
		default:
			return a.UploadedAt.Compare(b.UploadedAt)
		}
	}
	sort.SliceStable(docs, func(i, j int) bool {
		c := less(&docs[i], &docs[j])
		if c == 0 {
			return docs[i].ID < docs[j].ID
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func cmpInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
