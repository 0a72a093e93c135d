package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deptdocs/internal/config"
	"deptdocs/internal/domain"
	models "deptdocs/internal/domain/models/docsystem"
	"deptdocs/internal/domain/repositories"
	docsysRepo "deptdocs/internal/domain/repositories/docsystem"
	"deptdocs/internal/domain/services"
	docsysSvc "deptdocs/internal/domain/services/docsystem"
	"deptdocs/internal/metrics"
)

type downloadAuditor struct {
	logRepo    docsysRepo.DownloadLogRepository
	docRepo    docsysRepo.DocumentRepository
	txManager  repositories.TransactionManager
	access     docsysSvc.AccessControl
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewDownloadAuditor creates the download auditor
func NewDownloadAuditor(
	logRepo docsysRepo.DownloadLogRepository,
	docRepo docsysRepo.DocumentRepository,
	txManager repositories.TransactionManager,
	access docsysSvc.AccessControl,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) docsysSvc.DownloadAuditor {
	return &downloadAuditor{
		logRepo:    logRepo,
		docRepo:    docRepo,
		txManager:  txManager,
		access:     access,
		authorizer: authorizer,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterDownload is called after the read was authorized and the content
// opened. The entry and the counter commit together.
func (s *downloadAuditor) RegisterDownload(ctx context.Context, documentID string, p *models.Principal, client models.ClientInfo) (*models.DownloadLogEntry, error) {
	if p == nil {
		return nil, &domain.UnauthorizedError{Message: "download requires a principal"}
	}

	entry := &models.DownloadLogEntry{
		DocumentID:   documentID,
		UserID:       p.ID,
		DownloadedAt: s.now().UTC(),
		ClientIP:     client.IP,
		UserAgent:    client.UserAgent,
	}

	var count int64
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		if count, err = s.docRepo.IncrementDownloadCount(ctx, documentID); err != nil {
			return fmt.Errorf("increment download count: %w", err)
		}
		if err := s.logRepo.Append(ctx, entry); err != nil {
			return fmt.Errorf("append download log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.DownloadsTotal.Inc()
	s.logger.Debug("download recorded",
		"document_id", documentID,
		"user_id", p.ID,
		"download_count", count,
	)
	return entry, nil
}

// GetHistory is limited to principals who may edit the document
func (s *downloadAuditor) GetHistory(ctx context.Context, documentID string, p *models.Principal) ([]models.DownloadLogEntry, error) {
	doc, err := s.authorizer.CanAccessDocument(ctx, p, documentID)
	if err != nil {
		return nil, err
	}
	if err := s.access.CanEdit(p, docsysSvc.DocumentResource(doc)); err != nil {
		return nil, err
	}
	return s.logRepo.ListByDocument(ctx, doc.ID)
}

// GetUserHistory returns the principal's own history; elevated roles may read anyone's
func (s *downloadAuditor) GetUserHistory(ctx context.Context, userID string, limit int, p *models.Principal) ([]models.DownloadLogEntry, error) {
	if p == nil {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}
	if userID == "" {
		userID = p.ID
	}
	if userID != p.ID && !s.access.IsElevated(p) {
		return nil, domain.Forbidden("read", "download history of user %s is not visible to you", userID)
	}

	if limit <= 0 {
		limit = config.DefaultUserHistoryLimit
	}
	if limit > config.MaxUserHistoryLimit {
		limit = config.MaxUserHistoryLimit
	}
	return s.logRepo.ListByUser(ctx, userID, limit)
}
