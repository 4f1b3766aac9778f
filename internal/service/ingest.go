package service

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gazetteer-api/internal/gazetteer"
	"gazetteer-api/internal/models"

	"github.com/rs/zerolog"
)

// maxRejectedSamples bounds the rejected-row examples carried in a report.
const maxRejectedSamples = 5

// maxRowBytes caps a single dump row; alternate-name lists can run long.
const maxRowBytes = 1 << 20

// IngestRepository interface for dependency injection
type IngestRepository interface {
	EnsureSchema(ctx context.Context) error
	UpsertPlace(ctx context.Context, p models.Place) error
	PruneStale(ctx context.Context, source, version string) (int64, error)
	RecordIngestRun(ctx context.Context, run models.IngestRun) error
}

// IngestService streams a gazetteer dump into the store: normalize each
// row, upsert accepted records, count rejects, then prune records of the
// same source partition left over from earlier batch versions.
type IngestService struct {
	repo IngestRepository
	log  zerolog.Logger
}

// NewIngestService creates a new ingest service
func NewIngestService(repo IngestRepository, log zerolog.Logger) *IngestService {
	return &IngestService{repo: repo, log: log}
}

// Ingest consumes the tab-delimited rows of r one line at a time; the
// whole source is never held in memory. Row-level problems are counted
// and sampled, never fatal. A storage failure aborts the run with an
// IngestionError; re-running afterwards is safe because upserts are
// idempotent. The context is checked between rows, so an in-flight run
// cancels without partial per-row state.
func (s *IngestService) Ingest(ctx context.Context, r io.Reader, source, version string) (*models.IngestionReport, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &models.IngestionError{Op: "validate", Err: errors.New("empty source partition")}
	}
	if strings.TrimSpace(version) == "" {
		return nil, &models.IngestionError{Op: "validate", Err: errors.New("empty batch version")}
	}

	started := time.Now()
	if err := s.repo.EnsureSchema(ctx); err != nil {
		return nil, &models.IngestionError{Op: "ensure schema", Err: err}
	}

	report := &models.IngestionReport{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxRowBytes)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, &models.IngestionError{Op: "stream rows", Err: err}
		}
		line := scanner.Text()
		// The country file prefixes its header with '#' comments.
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		place, rejected := gazetteer.Normalize(line, source, version)
		if rejected != nil {
			report.Rejected++
			if len(report.RejectedSamples) < maxRejectedSamples {
				report.RejectedSamples = append(report.RejectedSamples, *rejected)
			}
			s.log.Warn().Str("reason", rejected.Reason).Msg("rejected gazetteer row")
			continue
		}

		if err := s.repo.UpsertPlace(ctx, place); err != nil {
			return nil, &models.IngestionError{Op: fmt.Sprintf("upsert id %d", place.ID), Err: err}
		}
		report.Accepted++
	}
	if err := scanner.Err(); err != nil {
		return nil, &models.IngestionError{Op: "read source", Err: err}
	}

	pruned, err := s.repo.PruneStale(ctx, source, version)
	if err != nil {
		return nil, &models.IngestionError{Op: "prune stale records", Err: err}
	}
	report.Pruned = pruned
	report.DurationMs = time.Since(started).Milliseconds()

	run := models.IngestRun{
		Source:     source,
		Version:    version,
		Accepted:   report.Accepted,
		Rejected:   report.Rejected,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if err := s.repo.RecordIngestRun(ctx, run); err != nil {
		return nil, &models.IngestionError{Op: "record ingest run", Err: err}
	}

	s.log.Info().
		Str("source", source).
		Str("version", version).
		Int("accepted", report.Accepted).
		Int("rejected", report.Rejected).
		Int64("pruned", report.Pruned).
		Int64("duration_ms", report.DurationMs).
		Msg("ingestion run finished")
	return report, nil
}
