package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rolegate/authd/internal/core/domain"
	"github.com/rolegate/authd/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService persisting to repo.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process persists a single audit event.
func (s *auditService) Process(ctx context.Context, event domain.AuditEvent) error {
	if event.Action == "" || event.Subject == "" {
		return fmt.Errorf("process audit event: missing action or subject")
	}
	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("process audit event %s: %w", event.ID, err)
	}
	s.log.Debug().
		Str("action", string(event.Action)).
		Str("actor", event.Actor).
		Str("subject", event.Subject).
		Msg("audit event stored")
	return nil
}
