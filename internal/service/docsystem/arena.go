package docsystem

import (
	"fmt"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
)

// arena indexes the live folders of one department by id. All walks over it
// are bounded by config.MaxFolderDepth, so a corrupted parent chain ends in an
// error instead of looping.
type arena struct {
	folders  map[string]models.Folder
	children map[string][]string
}

func newArena(folders []models.Folder) *arena {
	a := &arena{
		folders:  make(map[string]models.Folder, len(folders)),
		children: make(map[string][]string),
	}
	for _, f := range folders {
		a.folders[f.ID] = f
	}
	// folders arrive sorted, so children lists keep display order
	for _, f := range folders {
		if f.ParentID != nil {
			a.children[*f.ParentID] = append(a.children[*f.ParentID], f.ID)
		}
	}
	return a
}

// ancestors returns the parent chain of id, nearest first
func (a *arena) ancestors(id string) ([]models.Folder, error) {
	f, ok := a.folders[id]
	if !ok {
		return nil, domain.NotFound("folder", id)
	}

	var chain []models.Folder
	for f.ParentID != nil {
		if len(chain) >= config.MaxFolderDepth {
			return nil, &domain.ConflictError{
				Message:      fmt.Sprintf("folder %s: ancestry exceeds %d levels", id, config.MaxFolderDepth),
				Reason:       domain.ConflictCycle,
				ResourceType: "folder",
				ResourceID:   id,
			}
		}
		parent, ok := a.folders[*f.ParentID]
		if !ok {
			break
		}
		chain = append(chain, parent)
		f = parent
	}
	return chain, nil
}

func (a *arena) depth(id string) (int, error) {
	chain, err := a.ancestors(id)
	if err != nil {
		return 0, err
	}
	return len(chain), nil
}

// isDescendant reports whether ancestorID is on childID's parent chain
func (a *arena) isDescendant(childID, ancestorID string) (bool, error) {
	chain, err := a.ancestors(childID)
	if err != nil {
		return false, err
	}
	for _, f := range chain {
		if f.ID == ancestorID {
			return true, nil
		}
	}
	return false, nil
}

// subtree returns id followed by every descendant (breadth first) and the
// height of the subtree (0 for a leaf)
func (a *arena) subtree(id string) ([]string, int) {
	ids := []string{id}
	level := []string{id}
	height := 0
	for len(level) > 0 && height <= config.MaxFolderDepth {
		var next []string
		for _, parent := range level {
			next = append(next, a.children[parent]...)
		}
		if len(next) == 0 {
			break
		}
		ids = append(ids, next...)
		level = next
		height++
	}
	return ids, height
}

// descendants returns the folders below id, id itself excluded
func (a *arena) descendants(id string) []models.Folder {
	ids, _ := a.subtree(id)
	out := make([]models.Folder, 0, len(ids)-1)
	for _, d := range ids[1:] {
		out = append(out, a.folders[d])
	}
	return out
}
