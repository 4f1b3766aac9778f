package service

import (
	"context"
	"time"

	"gazetteer-api/internal/models"
)

// VerifyRepository interface for dependency injection
type VerifyRepository interface {
	Counts(ctx context.Context) (map[models.PlaceType]int64, error)
	IndexesPresent(ctx context.Context) (map[string]bool, error)
	LastIngestTime(ctx context.Context) (*time.Time, error)
}

// VerifyService reports ingestion health: live record counts per variant,
// index presence and the last ingest time. It never mutates the store; a
// missing index is surfaced, not recreated.
type VerifyService struct {
	repo    VerifyRepository
	timeout time.Duration
}

// NewVerifyService creates a new verify service
func NewVerifyService(repo VerifyRepository, timeout time.Duration) *VerifyService {
	return &VerifyService{repo: repo, timeout: timeout}
}

// Verify assembles a VerificationReport from the live store.
func (s *VerifyService) Verify(ctx context.Context) (*models.VerificationReport, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	counts, err := s.repo.Counts(ctx)
	if err != nil {
		return nil, passOrWrap("count records", err)
	}
	indexes, err := s.repo.IndexesPresent(ctx)
	if err != nil {
		return nil, passOrWrap("check indexes", err)
	}
	last, err := s.repo.LastIngestTime(ctx)
	if err != nil {
		return nil, passOrWrap("read last ingest time", err)
	}

	return &models.VerificationReport{
		CountsByType:   counts,
		IndexesPresent: indexes,
		LastIngestAt:   last,
	}, nil
}
