package docsystem

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	models "deptdocs/internal/domain/models/docsystem"
)

// Column for each searchable field, relative to the documents alias "d"
var searchColumns = map[models.SearchField]string{
	models.FieldDepartmentID: "d.department_id",
	models.FieldFolderID:     "d.folder_id",
	models.FieldUploadedAt:   "d.uploaded_at",
	models.FieldStatus:       "d.status",
	models.FieldPublic:       "d.public",
	models.FieldUploaderID:   "d.uploader_id",
}

var sortColumns = map[models.SortField]string{
	models.SortUploadedAt: "d.uploaded_at",
	models.SortModifiedAt: "d.modified_at",
	models.SortName:       "lower(d.original_name)",
	models.SortSize:       "d.size_bytes",
	models.SortDownloads:  "d.download_count",
}

// likeEscaper escapes LIKE wildcards so user text matches literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// translateNode turns a filter AST into a squirrel predicate. Empty And
// renders as (1=1) and empty Or as (1=0).
func translateNode(n models.Node, tagsTable string) (sq.Sqlizer, error) {
	if n.Condition != nil {
		return translateCondition(n.Condition, tagsTable)
	}

	parts := make([]sq.Sqlizer, 0, len(n.Children))
	for _, child := range n.Children {
		part, err := translateNode(child, tagsTable)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	if n.Combinator == models.CombineOr {
		return sq.Or(parts), nil
	}
	return sq.And(parts), nil
}

func translateCondition(c *models.Condition, tagsTable string) (sq.Sqlizer, error) {
	switch c.Field {
	case models.FieldText:
		text, ok := c.Value.(string)
		if !ok || c.Operator != models.OpContains {
			return nil, fmt.Errorf("text condition needs contains and a string value")
		}
		pattern := "%" + likeEscaper.Replace(text) + "%"
		return sq.Or{
			sq.ILike{"d.original_name": pattern},
			sq.ILike{"d.description": pattern},
		}, nil

	case models.FieldTags:
		tags, ok := c.Value.([]string)
		if !ok || c.Operator != models.OpHasAll {
			return nil, fmt.Errorf("tags condition needs has_all and a string list")
		}
		return sq.Expr(fmt.Sprintf("ARRAY(SELECT t.tag FROM %s t WHERE t.document_id = d.id) @> ?::text[]", tagsTable), tags), nil
	}

	column, ok := searchColumns[c.Field]
	if !ok {
		return nil, fmt.Errorf("unknown search field %q", c.Field)
	}

	switch c.Operator {
	case models.OpEq:
		return sq.Eq{column: c.Value}, nil
	case models.OpIsNull:
		return sq.Eq{column: nil}, nil
	case models.OpGte, models.OpLte:
		if _, ok := c.Value.(time.Time); !ok {
			return nil, fmt.Errorf("%s on %s needs a time value", c.Operator, c.Field)
		}
		if c.Operator == models.OpGte {
			return sq.GtOrEq{column: c.Value}, nil
		}
		return sq.LtOrEq{column: c.Value}, nil
	case models.OpContains:
		text, _ := c.Value.(string)
		return sq.ILike{column: "%" + likeEscaper.Replace(text) + "%"}, nil
	}
	return nil, fmt.Errorf("unsupported operator %q on %s", c.Operator, c.Field)
}

// orderBy returns the ORDER BY terms; id breaks ties so paging is stable
func orderBy(field models.SortField, desc bool) []string {
	column, ok := sortColumns[field]
	if !ok {
		column = sortColumns[models.DefaultSearchSort]
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return []string{column + " " + dir, "d.id ASC"}
}
