package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/datareef/reef-engine/pkg/adapters/source"
	"github.com/datareef/reef-engine/pkg/apperrors"
	"github.com/datareef/reef-engine/pkg/config"
	"github.com/datareef/reef-engine/pkg/logging"
	"github.com/datareef/reef-engine/pkg/models"
	"github.com/datareef/reef-engine/pkg/pipeline"
	"github.com/datareef/reef-engine/pkg/repositories"
	"github.com/datareef/reef-engine/pkg/retry"
	"github.com/datareef/reef-engine/pkg/storage"
	"github.com/datareef/reef-engine/pkg/workpool"
)

// noDataMessage is recorded on a datasource whose poll returned zero rows.
const noDataMessage = "No data existent"

// ErrCycleInProgress is returned when RunCycle is called while a previous
// cycle is still running. The overlapping cycle is skipped, never queued.
var ErrCycleInProgress = errors.New("poll cycle already in progress")

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	// Processed counts sources that completed the full pipeline.
	Processed int
	// NoData counts sources whose poll returned zero rows.
	NoData int
	// Errors counts sources that failed. One source failing never stops the
	// rest of the cycle.
	Errors int
	// Skipped counts sources excluded from the cycle (one-shot adapters,
	// non-pollable status).
	Skipped int
	// UnknownTypes counts sources referencing an adapter type that was never
	// registered. Non-zero means a deployment bug and should alert; the
	// sources themselves are left untouched.
	UnknownTypes int
}

// PollerService drives scheduled ingestion across all workspaces.
type PollerService interface {
	// RunCycle polls every eligible datasource once. Returns
	// ErrCycleInProgress when the previous cycle has not finished.
	RunCycle(ctx context.Context) (CycleStats, error)

	// Run blocks, executing a cycle immediately and then on every tick until
	// the context is cancelled.
	Run(ctx context.Context) error
}

// pollerService implements PollerService.
type pollerService struct {
	workspaces  repositories.WorkspaceRepository
	datasources repositories.DatasourceRepository
	secrets     repositories.SecretRepository
	factory     source.Factory
	writer      storage.Writer
	cfg         config.PollerConfig
	policy      *retry.Policy
	logger      *zap.Logger

	mu sync.Mutex

	// now is swapped in tests for deterministic timestamps.
	now func() time.Time
}

// NewPollerService creates a poller with dependencies.
func NewPollerService(
	workspaces repositories.WorkspaceRepository,
	datasources repositories.DatasourceRepository,
	secrets repositories.SecretRepository,
	factory source.Factory,
	writer storage.Writer,
	cfg config.PollerConfig,
	logger *zap.Logger,
) PollerService {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	return &pollerService{
		workspaces:  workspaces,
		datasources: datasources,
		secrets:     secrets,
		factory:     factory,
		writer:      writer,
		cfg:         cfg,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *pollerService) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("Poller started", zap.Duration("interval", interval))

	for {
		if stats, err := s.RunCycle(ctx); err != nil && !errors.Is(err, ErrCycleInProgress) {
			s.logger.Error("Poll cycle failed", zap.Error(err))
		} else if err == nil {
			s.logger.Info("Poll cycle finished",
				zap.Int("processed", stats.Processed),
				zap.Int("no_data", stats.NoData),
				zap.Int("errors", stats.Errors),
				zap.Int("skipped", stats.Skipped))
			if stats.UnknownTypes > 0 {
				s.logger.Error("Cycle saw sources with unregistered adapter types",
					zap.Int("unknown_types", stats.UnknownTypes))
			}
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *pollerService) RunCycle(ctx context.Context) (CycleStats, error) {
	if !s.mu.TryLock() {
		s.logger.Warn("Skipping poll cycle, previous cycle still running")
		return CycleStats{}, ErrCycleInProgress
	}
	defer s.mu.Unlock()

	var stats CycleStats

	workspaces, err := s.workspaces.List(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list workspaces: %w", err)
	}

	pollable := s.factory.PollingTypes()
	known := make(map[string]bool)
	for _, info := range s.factory.ListTypes() {
		known[info.Type] = true
	}

	var tasks []workpool.Task
	var mu sync.Mutex
	for _, ws := range workspaces {
		sources, err := s.datasources.ListByWorkspace(ctx, ws.ID)
		if err != nil {
			return stats, fmt.Errorf("failed to list datasources for workspace %s: %w", ws.ID, err)
		}
		for _, ds := range sources {
			ds := ds
			// A stored source referencing an unregistered adapter type is a
			// deployment bug, not a source failure: it is surfaced in the
			// cycle stats for alerting, never written to the source's state.
			if !known[ds.SourceType] {
				stats.UnknownTypes++
				s.logger.Error("Datasource references unregistered adapter type",
					zap.String("workspace_id", ds.WorkspaceID.String()),
					zap.String("datasource_id", ds.ID.String()),
					zap.String("source_type", ds.SourceType))
				continue
			}
			if !pollable[ds.SourceType] || !ds.Pollable() {
				stats.Skipped++
				continue
			}
			tasks = append(tasks, workpool.Task{
				Name: fmt.Sprintf("%s/%s", ds.WorkspaceID, ds.Name),
				Run: func(ctx context.Context) error {
					outcome := s.pollDatasource(ctx, &ds)
					mu.Lock()
					switch outcome {
					case outcomeProcessed:
						stats.Processed++
					case outcomeNoData:
						stats.NoData++
					case outcomeError:
						stats.Errors++
					}
					mu.Unlock()
					return nil
				},
			})
		}
	}

	pool := workpool.New(s.cfg.Workers, s.logger)
	for _, err := range pool.Run(ctx, tasks) {
		if err != nil {
			mu.Lock()
			stats.Errors++
			mu.Unlock()
		}
	}

	return stats, nil
}

type pollOutcome int

const (
	outcomeProcessed pollOutcome = iota
	outcomeNoData
	outcomeError
)

// pollDatasource runs the full pipeline for one source. Every failure is
// recorded on the datasource itself; the returned outcome only feeds cycle
// stats. Error messages are sanitized before they are logged or persisted so
// credentials never leak.
func (s *pollerService) pollDatasource(ctx context.Context, ds *models.Datasource) pollOutcome {
	log := s.logger.With(
		zap.String("workspace_id", ds.WorkspaceID.String()),
		zap.String("datasource_id", ds.ID.String()),
		zap.String("datasource", ds.Name),
		zap.String("source_type", ds.SourceType),
	)

	adapter, err := s.factory.GetAdapter(ds.SourceType)
	if err != nil {
		// RunCycle only schedules registered types; the registry is fixed
		// after init, so this cannot mark the source itself errored.
		log.Error("Adapter type not registered", zap.Error(err))
		return outcomeError
	}

	secrets, err := s.secrets.Get(ctx, ds.ID)
	if err != nil {
		return s.fail(ctx, log, ds, err)
	}

	// Config and secrets were validated when the datasource was created;
	// they are not re-checked here. A credential gone bad since then fails
	// the poll itself and is recorded as a transport error.
	cfg := source.Config(ds.Config)
	raw, err := retry.DoWithResult(ctx, s.policy, func() (any, error) {
		return adapter.Poll(ctx, cfg, secrets)
	})
	if err != nil {
		return s.fail(ctx, log, ds, err)
	}

	sets, err := pipeline.Translate(raw, s.now())
	if err != nil {
		return s.fail(ctx, log, ds, err)
	}

	// Zero rows is a distinguishable success, checked before format rules so
	// an empty source is never misreported as malformed.
	if pipeline.RowCount(sets) == 0 {
		s.setStatus(ctx, log, ds, models.StatusNoData, strPtr(noDataMessage))
		log.Info("Poll returned no data")
		return outcomeNoData
	}

	if err := pipeline.ValidateFormat(sets); err != nil {
		return s.fail(ctx, log, ds, err)
	}

	records, columns := pipeline.Flatten(sets)

	sampleSize := s.cfg.SampleSize
	if sampleSize <= 0 {
		sampleSize = pipeline.DefaultSampleSize
	}
	schema := pipeline.InferSchema(records, columns, sampleSize)
	records = pipeline.CastBatch(records, schema)

	switch ds.WriteMethod {
	case models.WriteReplace:
		err = s.writer.Replace(ctx, ds.WorkspaceID, ds.ID, records, schema)
	default:
		err = s.writer.Append(ctx, ds.WorkspaceID, ds.ID, records, schema)
	}
	if err != nil {
		return s.fail(ctx, log, ds, apperrors.Wrap(apperrors.KindPersistence, err, "write batch"))
	}

	if err := s.datasources.UpdateSchema(ctx, ds.ID, schema); err != nil {
		return s.fail(ctx, log, ds, err)
	}

	s.setStatus(ctx, log, ds, models.StatusActive, nil)
	log.Info("Poll cycle succeeded",
		zap.Int("records", len(records)),
		zap.Int("columns", len(schema)))
	return outcomeProcessed
}

// fail records a poll failure on the datasource and in the log.
func (s *pollerService) fail(ctx context.Context, log *zap.Logger, ds *models.Datasource, err error) pollOutcome {
	msg := logging.SanitizeError(err)
	log.Error("Poll failed", zap.String("reason", msg))
	s.setStatus(ctx, log, ds, models.StatusError, &msg)
	return outcomeError
}

func (s *pollerService) setStatus(ctx context.Context, log *zap.Logger, ds *models.Datasource, status models.SourceStatus, msg *string) {
	if err := s.datasources.UpdateStatus(ctx, ds.ID, status, msg); err != nil {
		log.Error("Failed to update datasource status", zap.Error(err))
	}
}

func strPtr(s string) *string { return &s }
