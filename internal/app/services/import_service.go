package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tracerstudy/tracer-sync/internal/app/columns"
	"github.com/tracerstudy/tracer-sync/internal/app/models"
	"github.com/tracerstudy/tracer-sync/internal/metrics"
	"github.com/tracerstudy/tracer-sync/internal/pkg/apperrors"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
	"github.com/tracerstudy/tracer-sync/internal/pkg/tabular"
)

// Source is an uploaded or local input file.
type Source struct {
	Name string
	Data []byte
}

// IngestOptions configures table loading and previews.
type IngestOptions struct {
	Encodings        []string
	SkipOffsets      []int
	SampleRows       int
	PreviewRows      int
	PreviewCellLimit int
}

func (o IngestOptions) loaderOptions(indicators []string) tabular.Options {
	opts := tabular.DefaultOptions(indicators)
	if len(o.Encodings) > 0 {
		opts.Encodings = o.Encodings
	}
	if len(o.SkipOffsets) > 0 {
		opts.SkipOffsets = o.SkipOffsets
	}
	if o.SampleRows > 0 {
		opts.SampleRows = o.SampleRows
	}
	return opts
}

// ImportOutcome is the result of one import request. Exactly one of Pass and
// Recount is set.
type ImportOutcome struct {
	RunID    uuid.UUID
	Mode     models.Mode
	Encoding string
	SkipRows int
	Pass     *Result
	Recount  *RecountResult
}

// ImportService defines the interface for ingestion operations
type ImportService interface {
	Import(ctx context.Context, mode models.Mode, src Source) (*ImportOutcome, error)
	Preview(ctx context.Context, src Source) (*PreviewResult, error)
	ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error)
}

// importServiceImpl implements the ImportService interface
type importServiceImpl struct {
	runner    PassRunner
	runs      RunStore
	engine    *Engine
	recounter *Recounter
	profiles  map[models.Mode]Profile
	ingest    IngestOptions
}

// NewImportService creates a new import service instance. runs may be nil,
// in which case no run history is written.
func NewImportService(runner PassRunner, runs RunStore, engine *Engine, recounter *Recounter, profiles []Profile, ingest IngestOptions) ImportService {
	byMode := make(map[models.Mode]Profile, len(profiles))
	for _, p := range profiles {
		byMode[p.Mode] = p
	}
	return &importServiceImpl{
		runner:    runner,
		runs:      runs,
		engine:    engine,
		recounter: recounter,
		profiles:  byMode,
		ingest:    ingest,
	}
}

func loadSource(src Source, ingest IngestOptions, indicators []string) (*tabular.Table, error) {
	t, err := tabular.Load(src.Data, ingest.loaderOptions(indicators))
	if err != nil {
		if errors.Is(err, tabular.ErrUnreadable) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnreadableInput, src.Name)
		}
		return nil, err
	}
	logger.Info().
		Str("source", src.Name).
		Str("encoding", t.Encoding).
		Int("skip_rows", t.SkipRows).
		Int("rows", t.Len()).
		Int("columns", len(t.Headers)).
		Msg("Input table loaded")
	return t, nil
}

// Import loads src, infers its columns and runs the pass for mode. Input
// errors are reported before any storage access.
func (s *importServiceImpl) Import(ctx context.Context, mode models.Mode, src Source) (*ImportOutcome, error) {
	var (
		profile    Profile
		indicators []string
	)
	switch mode {
	case models.ModeAlumniTotal:
		indicators = tabular.ProgramIndicators
	default:
		p, ok := s.profiles[mode]
		if !ok {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownMode, mode)
		}
		profile = p
		indicators = tabular.PersonIndicators
	}

	t, err := loadSource(src, s.ingest, indicators)
	if err != nil {
		return nil, err
	}
	lgr := logger.WithField("mode", string(mode))
	mapping := columns.Detect(t)
	lgr.Info().Interface("columns", mapping.Headers()).Msg("Columns detected")

	if mode == models.ModeAlumniTotal {
		if !mapping.Has(columns.Program) {
			return nil, apperrors.NewMissingColumnError(string(columns.Program))
		}
	} else if err := CheckColumns(mapping, profile); err != nil {
		return nil, err
	}

	out := &ImportOutcome{Mode: mode, Encoding: t.Encoding, SkipRows: t.SkipRows}
	run := s.startRun(ctx, mode, src, t)
	if run != nil {
		out.RunID = run.ID
	}

	started := time.Now()
	err = s.runner.RunPass(ctx, func(ctx context.Context, store Store) error {
		if mode == models.ModeAlumniTotal {
			res, err := s.recounter.Run(ctx, store, t, mapping)
			out.Recount = res
			return err
		}
		res, err := s.engine.Run(ctx, store, t, mapping, profile)
		out.Pass = res
		return err
	})
	metrics.ObservePass(string(mode), started, err)
	if err != nil {
		s.finishRun(ctx, run, out, err)
		return nil, err
	}

	if out.Pass != nil {
		metrics.AddRows(string(mode), metrics.OutcomeInserted, out.Pass.Inserted)
		metrics.AddRows(string(mode), metrics.OutcomeUpdated, out.Pass.Updated)
		metrics.AddRows(string(mode), metrics.OutcomeSkipped, out.Pass.Skipped)
		metrics.AddRows(string(mode), metrics.OutcomeEliminated, out.Pass.Eliminated)
	}
	lgr.Info().Dur("elapsed", time.Since(started)).Msg("Pass committed")
	s.finishRun(ctx, run, out, nil)
	return out, nil
}

func (s *importServiceImpl) startRun(ctx context.Context, mode models.Mode, src Source, t *tabular.Table) *models.ImportRun {
	if s.runs == nil {
		return nil
	}
	run := &models.ImportRun{
		ID:         uuid.New(),
		Mode:       mode,
		SourceName: src.Name,
		Encoding:   t.Encoding,
		SkipRows:   t.SkipRows,
		StartedAt:  time.Now(),
	}
	if err := s.runs.CreateImportRun(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("Failed to record import run")
		return nil
	}
	return run
}

func (s *importServiceImpl) finishRun(ctx context.Context, run *models.ImportRun, out *ImportOutcome, passErr error) {
	if run == nil {
		return
	}
	now := time.Now()
	run.FinishedAt = &now
	run.Success = passErr == nil
	if passErr != nil {
		msg := passErr.Error()
		run.Error = &msg
	}
	if res := out.Pass; res != nil && passErr == nil {
		run.Inserted = res.Inserted
		run.Updated = res.Updated
		run.Skipped = res.Skipped
		run.Eliminated = res.Eliminated
		run.Total = res.Total
	}
	if res := out.Recount; res != nil && passErr == nil {
		run.Updated = res.Updated
		run.Skipped = res.Unresolved
		for _, n := range res.ProgramCounts {
			run.Total += n
		}
		run.Total += res.Unresolved
	}
	// The pass context may already be cancelled; the history row is still wanted.
	if err := s.runs.FinishImportRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn().Err(err).Str("run_id", run.ID.String()).Msg("Failed to finish import run")
	}
}

// Preview loads src and reports its shape without touching storage.
func (s *importServiceImpl) Preview(_ context.Context, src Source) (*PreviewResult, error) {
	return PreviewSource(src, s.ingest)
}

// PreviewSource loads src, detects its columns and builds the preview. It
// needs no database.
func PreviewSource(src Source, ingest IngestOptions) (*PreviewResult, error) {
	t, err := loadSource(src, ingest, tabular.PersonIndicators)
	if err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no data rows", apperrors.ErrUnreadableInput, src.Name)
	}
	return Preview(t, columns.Detect(t), ingest.PreviewRows, ingest.PreviewCellLimit), nil
}

// ListRuns returns the most recent import runs, newest first.
func (s *importServiceImpl) ListRuns(ctx context.Context, limit int) ([]models.ImportRun, error) {
	if s.runs == nil {
		return []models.ImportRun{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.runs.ListImportRuns(ctx, limit)
}
