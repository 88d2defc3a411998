package service

import (
	"context"
	"fmt"
	"time"

	"cuentas/internal/repository"
)

type AuditLogResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username,omitempty"`
	Action    string `json:"action"`
	EntityID  string `json:"entity_id"`
	Details   string `json:"details"`
	CreatedAt string `json:"created_at"`
}

type AuditService interface {
	// ListLogs pages through the trail, optionally scoped to one entity.
	ListLogs(ctx context.Context, entityID string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
}

func NewAuditService(auditRepo repository.AuditRepository) AuditService {
	return &auditService{auditRepo: auditRepo}
}

func (s *auditService) ListLogs(ctx context.Context, entityID string, page, limit int) ([]AuditLogResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	logs, total, err := s.auditRepo.List(ctx, entityID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch audit logs: %w", err)
	}

	result := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		resp := AuditLogResponse{
			ID:        entry.ID.String(),
			Action:    entry.Action,
			EntityID:  entry.EntityID,
			Details:   entry.Details,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		}
		if entry.User != nil {
			resp.Username = entry.User.Username
		}
		result = append(result, resp)
	}
	return result, total, nil
}
