package docsystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/domain/services"
	docsysSvc "deptdocs/internal/domain/services/docsystem"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var folderNamePattern = regexp.MustCompile(`^[^/\\]+$`)

type folderTree struct {
	folderRepo docsysRepo.FolderRepository
	docRepo    docsysRepo.DocumentRepository
	deptRepo   docsysRepo.DepartmentRepository
	txManager  repositories.TransactionManager
	access     docsysSvc.AccessControl
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewFolderTree creates the folder tree service
func NewFolderTree(
	folderRepo docsysRepo.FolderRepository,
	docRepo docsysRepo.DocumentRepository,
	deptRepo docsysRepo.DepartmentRepository,
	txManager repositories.TransactionManager,
	access docsysSvc.AccessControl,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) docsysSvc.FolderTree {
	return &folderTree{
		folderRepo: folderRepo,
		docRepo:    docRepo,
		deptRepo:   deptRepo,
		txManager:  txManager,
		access:     access,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *folderTree) loadArena(ctx context.Context, departmentID string) (*arena, error) {
	folders, err := s.folderRepo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("load folders of department %s: %w", departmentID, err)
	}
	return newArena(folders), nil
}

func (s *folderTree) GetChildren(ctx context.Context, folderID string, p *models.Principal) ([]models.Folder, error) {
	if _, err := s.authorizer.CanAccessFolder(ctx, p, folderID); err != nil {
		return nil, err
	}
	return s.folderRepo.ListChildren(ctx, folderID)
}

func (s *folderTree) GetRoots(ctx context.Context, departmentID string, p *models.Principal) ([]models.Folder, error) {
	if _, err := s.authorizer.CanAccessDepartment(ctx, p, departmentID); err != nil {
		return nil, err
	}
	return s.folderRepo.ListRoots(ctx, departmentID)
}

func (s *folderTree) GetWithChildren(ctx context.Context, id string, p *models.Principal) (*models.FolderWithChildren, error) {
	folder, err := s.authorizer.CanAccessFolder(ctx, p, id)
	if err != nil {
		return nil, err
	}

	folders, err := s.folderRepo.ListChildren(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}
	docs, err := s.docRepo.ListByFolder(ctx, folder.DepartmentID, &folder.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return &models.FolderWithChildren{
		Folder:    folder,
		Folders:   folders,
		Documents: docs,
	}, nil
}

func (s *folderTree) GetBreadcrumbs(ctx context.Context, id string, p *models.Principal) ([]models.Breadcrumb, error) {
	folder, err := s.authorizer.CanAccessFolder(ctx, p, id)
	if err != nil {
		return nil, err
	}
	a, err := s.loadArena(ctx, folder.DepartmentID)
	if err != nil {
		return nil, err
	}
	chain, err := a.ancestors(folder.ID)
	if err != nil {
		return nil, err
	}

	crumbs := make([]models.Breadcrumb, 0, len(chain)+1)
	for i := len(chain) - 1; i >= 0; i-- {
		crumbs = append(crumbs, models.Breadcrumb{ID: chain[i].ID, Name: chain[i].Name})
	}
	crumbs = append(crumbs, models.Breadcrumb{ID: folder.ID, Name: folder.Name})
	return crumbs, nil
}

func (s *folderTree) GetDepth(ctx context.Context, id string) (int, error) {
	folder, err := s.folderRepo.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	a, err := s.loadArena(ctx, folder.DepartmentID)
	if err != nil {
		return 0, err
	}
	return a.depth(folder.ID)
}

func (s *folderTree) IsDescendantOf(ctx context.Context, childID, ancestorID string) (bool, error) {
	child, err := s.folderRepo.GetByID(ctx, childID)
	if err != nil {
		return false, err
	}
	a, err := s.loadArena(ctx, child.DepartmentID)
	if err != nil {
		return false, err
	}
	return a.isDescendant(child.ID, ancestorID)
}

func cycleError(folderID, parentID string) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("cannot move folder %s under its own descendant %s", folderID, parentID),
		Reason:       domain.ConflictCycle,
		ResourceType: "folder",
		ResourceID:   parentID,
	}
}

func crossDepartmentError(kind, id, departmentID string) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("%s %s cannot be moved into department %s", kind, id, departmentID),
		Reason:       domain.ConflictCrossDepartment,
		ResourceType: kind,
		ResourceID:   id,
	}
}

// Move re-parents a folder. The cycle check and the write run in one
// transaction holding the department locks; the resulting chain is walked
// again before commit and a broken chain rolls the move back.
func (s *folderTree) Move(ctx context.Context, folderID string, newParentID *string, p *models.Principal) (*models.Folder, error) {
	if newParentID != nil && *newParentID == "" {
		newParentID = nil
	}

	folder, err := s.authorizer.CanAccessFolder(ctx, p, folderID)
	if err != nil {
		return nil, err
	}
	if newParentID != nil && *newParentID == folderID {
		return nil, cycleError(folderID, folderID)
	}

	var dest *models.Folder
	if newParentID != nil {
		dest, err = s.folderRepo.GetByID(ctx, *newParentID)
		if err != nil {
			return nil, fmt.Errorf("destination folder: %w", err)
		}
	}
	if err := s.access.CanMove(p, docsysSvc.FolderResource(folder), dest); err != nil {
		return nil, err
	}

	targetDept := folder.DepartmentID
	if dest != nil && dest.DepartmentID != folder.DepartmentID {
		if !s.access.CanReassignDepartment(p) {
			return nil, crossDepartmentError("folder", folder.ID, dest.DepartmentID)
		}
		targetDept = dest.DepartmentID
	}

	var moved *models.Folder
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockDepartments(ctx, folder.DepartmentID, targetDept); err != nil {
			return err
		}

		current, err := s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return err
		}
		if current.DepartmentID != folder.DepartmentID {
			return &domain.ConcurrencyError{Message: fmt.Sprintf("folder %s changed department during move", folderID)}
		}

		src, err := s.loadArena(ctx, current.DepartmentID)
		if err != nil {
			return err
		}
		subtree, height := src.subtree(current.ID)

		parentDepth := -1
		if dest != nil {
			destNow, err := s.folderRepo.GetByID(ctx, dest.ID)
			if err != nil {
				return fmt.Errorf("destination folder: %w", err)
			}
			if destNow.DepartmentID != targetDept {
				return &domain.ConcurrencyError{Message: fmt.Sprintf("folder %s changed department during move", dest.ID)}
			}
			dst := src
			if targetDept != current.DepartmentID {
				if dst, err = s.loadArena(ctx, targetDept); err != nil {
					return err
				}
			} else if under, err := src.isDescendant(destNow.ID, current.ID); err != nil {
				return err
			} else if under {
				return cycleError(current.ID, destNow.ID)
			}
			if parentDepth, err = dst.depth(destNow.ID); err != nil {
				return err
			}
		}
		if parentDepth+1+height >= config.MaxFolderDepth {
			return domain.Invalid("moving folder %s would exceed the maximum depth of %d", current.ID, config.MaxFolderDepth)
		}

		if targetDept != current.DepartmentID {
			if err := s.folderRepo.UpdateDepartment(ctx, subtree, targetDept); err != nil {
				return fmt.Errorf("reassign subtree department: %w", err)
			}
			if err := s.docRepo.UpdateDepartmentForFolders(ctx, subtree, targetDept); err != nil {
				return fmt.Errorf("reassign document department: %w", err)
			}
			current.DepartmentID = targetDept
		}
		current.ParentID = newParentID
		current.UpdatedAt = s.now()
		if err := s.folderRepo.Update(ctx, current); err != nil {
			return err
		}

		after, err := s.loadArena(ctx, targetDept)
		if err != nil {
			return err
		}
		if _, err := after.ancestors(current.ID); err != nil {
			return &domain.ConcurrencyError{Message: fmt.Sprintf("folder %s: tree changed during move: %v", current.ID, err)}
		}
		moved = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder moved",
		"id", moved.ID,
		"parent_id", moved.ParentID,
		"department_id", moved.DepartmentID,
		"reassigned", moved.DepartmentID != folder.DepartmentID,
	)
	return moved, nil
}

func (s *folderTree) Create(ctx context.Context, req *docsysSvc.CreateFolderRequest, p *models.Principal) (*models.Folder, error) {
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validateCreateFolder(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var parent *models.Folder
	departmentID := req.DepartmentID
	if req.ParentID != nil {
		var err error
		parent, err = s.folderRepo.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("parent folder: %w", err)
		}
		departmentID = parent.DepartmentID
	} else {
		dept, err := s.deptRepo.GetByID(ctx, departmentID)
		if err != nil {
			return nil, err
		}
		if !dept.Active {
			return nil, domain.Invalid("department %s is inactive", dept.ID)
		}
	}

	if err := s.access.CanCreateFolder(p, departmentID, parent); err != nil {
		return nil, err
	}
	if req.System && !s.access.IsElevated(p) {
		return nil, domain.Forbidden("create_folder", "only elevated roles may create system folders")
	}

	if parent != nil {
		depth, err := s.GetDepth(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		if depth+1 >= config.MaxFolderDepth {
			return nil, domain.Invalid("folder depth limit of %d reached", config.MaxFolderDepth)
		}
	}

	now := s.now()
	folder := &models.Folder{
		ParentID:     req.ParentID,
		DepartmentID: departmentID,
		Name:         req.Name,
		System:       req.System,
		DisplayOrder: req.DisplayOrder,
		CreatedBy:    p.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockDepartments(ctx, departmentID); err != nil {
			return err
		}
		if parent != nil {
			// a cascade delete or reassignment may have landed since the parent was read
			current, err := s.folderRepo.GetByID(ctx, parent.ID)
			if errors.Is(err, domain.ErrNotFound) {
				return &domain.ConcurrencyError{Message: fmt.Sprintf("parent folder %s was deleted", parent.ID)}
			}
			if err != nil {
				return err
			}
			if current.DepartmentID != departmentID {
				return &domain.ConcurrencyError{Message: fmt.Sprintf("parent folder %s moved to department %s", parent.ID, current.DepartmentID)}
			}
		}
		return s.folderRepo.Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"department_id", folder.DepartmentID,
		"parent_id", folder.ParentID,
	)
	return folder, nil
}

func (s *folderTree) Rename(ctx context.Context, id, name string, p *models.Principal) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if err := validateFolderName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	folder, err := s.authorizer.CanAccessFolder(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanEdit(p, docsysSvc.FolderResource(folder)); err != nil {
		return nil, err
	}
	if folder.Name == name {
		return folder, nil
	}

	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockDepartments(ctx, folder.DepartmentID); err != nil {
			return err
		}
		// write back the current row so a concurrent move is not undone
		current, err := s.folderRepo.GetByID(ctx, folder.ID)
		if err != nil {
			return err
		}
		if current.DepartmentID != folder.DepartmentID {
			return &domain.ConcurrencyError{Message: fmt.Sprintf("folder %s changed department during rename", folder.ID)}
		}
		current.Name = name
		current.UpdatedAt = s.now()
		if err := s.folderRepo.Update(ctx, current); err != nil {
			return err
		}
		folder = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder renamed", "id", folder.ID, "name", folder.Name)
	return folder, nil
}

// Delete soft-removes a folder. Without cascade the folder must be empty;
// with cascade every descendant folder and document goes in the same transaction.
func (s *folderTree) Delete(ctx context.Context, id string, cascade bool, p *models.Principal) error {
	folder, err := s.authorizer.CanAccessFolder(ctx, p, id)
	if err != nil {
		return err
	}

	var removedFolders, removedDocs int
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockDepartments(ctx, folder.DepartmentID); err != nil {
			return err
		}
		a, err := s.loadArena(ctx, folder.DepartmentID)
		if err != nil {
			return err
		}
		if _, ok := a.folders[folder.ID]; !ok {
			return domain.NotFound("folder", folder.ID)
		}
		if err := s.access.CanDelete(p, docsysSvc.FolderResource(folder), a.descendants(folder.ID)); err != nil {
			return err
		}

		subtree, _ := a.subtree(folder.ID)
		docIDs, err := s.docRepo.ListIDsByFolders(ctx, subtree)
		if err != nil {
			return fmt.Errorf("list documents in subtree: %w", err)
		}
		if !cascade && (len(subtree) > 1 || len(docIDs) > 0) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("folder %s is not empty", folder.ID),
				Reason:       domain.ConflictNotEmpty,
				ResourceType: "folder",
				ResourceID:   folder.ID,
			}
		}

		now := s.now()
		if err := s.docRepo.SoftDelete(ctx, docIDs, now); err != nil {
			return fmt.Errorf("remove documents: %w", err)
		}
		if err := s.folderRepo.SoftDelete(ctx, subtree, now); err != nil {
			return fmt.Errorf("remove folders: %w", err)
		}
		removedFolders, removedDocs = len(subtree), len(docIDs)
		return nil
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			s.logger.Debug("folder delete refused", "id", id, "reason", conflict.Reason)
		}
		return err
	}

	s.logger.Info("folder deleted",
		"id", folder.ID,
		"name", folder.Name,
		"folders", removedFolders,
		"documents", removedDocs,
	)
	return nil
}

// GetDepartmentTree builds the nested folder/document tree of a department
func (s *folderTree) GetDepartmentTree(ctx context.Context, departmentID string, p *models.Principal) (*models.TreeNode, error) {
	if _, err := s.authorizer.CanAccessDepartment(ctx, p, departmentID); err != nil {
		return nil, err
	}

	allFolders, err := s.folderRepo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	allDocuments, err := s.docRepo.ListByDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	// First pass: create all folder nodes
	folderMap := make(map[string]*models.FolderTreeNode, len(allFolders))
	for _, folder := range allFolders {
		folderMap[folder.ID] = &models.FolderTreeNode{
			ID:           folder.ID,
			Name:         folder.Name,
			ParentID:     folder.ParentID,
			System:       folder.System,
			DisplayOrder: folder.DisplayOrder,
			CreatedAt:    folder.CreatedAt,
			Folders:      []*models.FolderTreeNode{},
			Documents:    []models.DocumentTreeNode{},
		}
	}

	// Second pass: nest folders under their parents
	rootFolders := make([]*models.FolderTreeNode, 0)
	for _, folder := range allFolders {
		node := folderMap[folder.ID]
		if folder.ParentID == nil {
			rootFolders = append(rootFolders, node)
		} else if parent, exists := folderMap[*folder.ParentID]; exists {
			parent.Folders = append(parent.Folders, node)
		}
	}

	// Third pass: attach documents
	rootDocuments := make([]models.DocumentTreeNode, 0)
	for _, doc := range allDocuments {
		docNode := models.DocumentTreeNode{
			ID:         doc.ID,
			Name:       doc.OriginalName,
			FolderID:   doc.FolderID,
			Status:     doc.Status,
			SizeBytes:  doc.SizeBytes,
			Public:     doc.Public,
			ModifiedAt: doc.ModifiedAt,
		}
		if doc.FolderID == nil {
			rootDocuments = append(rootDocuments, docNode)
		} else if parent, exists := folderMap[*doc.FolderID]; exists {
			parent.Documents = append(parent.Documents, docNode)
		}
	}

	s.logger.Debug("department tree built",
		"department_id", departmentID,
		"folder_count", len(allFolders),
		"document_count", len(allDocuments),
	)

	return &models.TreeNode{
		DepartmentID: departmentID,
		Folders:      rootFolders,
		Documents:    rootDocuments,
	}, nil
}

func validateFolderName(name string) error {
	return validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, config.MaxFolderNameLength),
		validation.Match(folderNamePattern).Error("folder name cannot contain slashes"),
	)
}

func validateCreateFolder(req *docsysSvc.CreateFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.DepartmentID, validation.When(req.ParentID == nil, validation.Required)),
		validation.Field(&req.Name,
			validation.Required,
			validation.RuneLength(1, config.MaxFolderNameLength),
			validation.Match(folderNamePattern).Error("folder name cannot contain slashes"),
		),
		validation.Field(&req.DisplayOrder, validation.Min(0)),
	)
}
