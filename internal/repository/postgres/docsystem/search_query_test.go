package docsystem

import (
	"strings"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"

	models "deptdocs/internal/domain/models/docsystem"
)

func render(t *testing.T, n models.Node) (string, []any) {
	t.Helper()
	pred, err := translateNode(n, "dev_document_tags")
	if err != nil {
		t.Fatalf("translateNode() error = %v", err)
	}
	sqlStr, args, err := sq.Select("d.id").From("dev_documents d").Where(pred).
		PlaceholderFormat(sq.Dollar).ToSql()
	if err != nil {
		t.Fatalf("ToSql() error = %v", err)
	}
	return sqlStr, args
}

func TestTranslateNode(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		node     models.Node
		contains []string
		args     int
	}{
		{
			name:     "empty filter matches everything",
			node:     models.And(),
			contains: []string{"(1=1)"},
		},
		{
			name:     "text searches name and description",
			node:     models.Leaf(models.FieldText, models.OpContains, "50%_off"),
			contains: []string{"d.original_name ILIKE $1", "d.description ILIKE $2"},
			args:     2,
		},
		{
			name:     "root folder",
			node:     models.Leaf(models.FieldFolderID, models.OpIsNull, nil),
			contains: []string{"d.folder_id IS NULL"},
		},
		{
			name: "visibility scope",
			node: models.And(
				models.Leaf(models.FieldUploadedAt, models.OpGte, from),
				models.Or(
					models.Leaf(models.FieldDepartmentID, models.OpEq, "2"),
					models.Leaf(models.FieldPublic, models.OpEq, true),
				),
			),
			contains: []string{"d.uploaded_at >= $1", "(d.department_id = $2 OR d.public = $3)"},
			args:     3,
		},
		{
			name:     "tags",
			node:     models.Leaf(models.FieldTags, models.OpHasAll, []string{"a", "b"}),
			contains: []string{"FROM dev_document_tags t WHERE t.document_id = d.id) @> $1::text[]"},
			args:     1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sqlStr, args := render(t, tt.node)
			for _, want := range tt.contains {
				if !strings.Contains(sqlStr, want) {
					t.Errorf("sql = %q, want it to contain %q", sqlStr, want)
				}
			}
			if len(args) != tt.args {
				t.Errorf("len(args) = %d, want %d", len(args), tt.args)
			}
		})
	}
}

func TestTranslateEscapesWildcards(t *testing.T) {
	_, args := render(t, models.Leaf(models.FieldText, models.OpContains, "50%_off"))
	if got := args[0]; got != `%50\%\_off%` {
		t.Errorf("pattern = %v, want %v", got, `%50\%\_off%`)
	}
}

func TestTranslateRejectsBadConditions(t *testing.T) {
	bad := []models.Node{
		models.Leaf("unknown", models.OpEq, "x"),
		models.Leaf(models.FieldUploadedAt, models.OpGte, "yesterday"),
		models.Leaf(models.FieldTags, models.OpEq, "a"),
	}
	for _, n := range bad {
		if _, err := translateNode(n, "t"); err == nil {
			t.Errorf("translateNode(%+v) = nil error, want error", n.Condition)
		}
	}
}

func TestOrderBy(t *testing.T) {
	got := orderBy(models.SortName, false)
	if got[0] != "lower(d.original_name) ASC" || got[1] != "d.id ASC" {
		t.Errorf("orderBy(name) = %v", got)
	}
	got = orderBy("bogus", true)
	if got[0] != "d.uploaded_at DESC" {
		t.Errorf("orderBy(bogus) = %v, want uploaded_at fallback", got)
	}
}
