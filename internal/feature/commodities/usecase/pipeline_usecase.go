package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"commodity_etl/internal/feature/commodities/domain/entity"
)

// Outcome is the overall result of a pipeline run.
type Outcome int

const (
	// OutcomeFailed means a write was attempted (or could not be attempted) and did not complete.
	OutcomeFailed Outcome = iota
	// OutcomeReplaced means the destination table now holds exactly this run's dataset.
	OutcomeReplaced
	// OutcomeNoop means nothing was fetched and the destination was left untouched.
	OutcomeNoop
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReplaced:
		return "replaced"
	case OutcomeNoop:
		return "noop"
	default:
		return "failed"
	}
}

// ExitCode maps the outcome to a process exit status.
func (o Outcome) ExitCode() int {
	switch o {
	case OutcomeReplaced:
		return 0
	case OutcomeNoop:
		return 3
	default:
		return 1
	}
}

// Archiver keeps a copy of each consolidated dataset. Failures are logged, not returned to the caller.
type Archiver interface {
	Archive(ctx context.Context, table string, ds entity.Dataset) (string, error)
}

// RunRequest is the externally supplied configuration of one run.
type RunRequest struct {
	Symbols []entity.Symbol
	Window  entity.LookbackWindow
	Target  entity.LoadTarget
}

// RunReport summarizes one run.
type RunReport struct {
	Outcome    Outcome
	Window     entity.LookbackWindow
	Table      string
	Rows       int64
	Loaded     []entity.Symbol
	Failures   []FetchFailure
	StartedAt  time.Time
	FinishedAt time.Time
}

// PipelineUsecase runs Extract → Aggregate → Load once per call.
type PipelineUsecase struct {
	extract  *ExtractUsecase
	load     *LoadUsecase
	archiver Archiver
	now      func() time.Time
}

// NewPipelineUsecase creates a PipelineUsecase. archiver may be nil.
func NewPipelineUsecase(extract *ExtractUsecase, load *LoadUsecase, archiver Archiver) *PipelineUsecase {
	return &PipelineUsecase{extract: extract, load: load, archiver: archiver, now: time.Now}
}

// Run executes one pipeline run. The returned error is non-nil exactly
// when the report's outcome is OutcomeFailed.
func (pu *PipelineUsecase) Run(ctx context.Context, req RunRequest) (RunReport, error) {
	report := RunReport{
		Outcome:   OutcomeFailed,
		Window:    req.Window,
		Table:     req.Target.Table,
		StartedAt: pu.now(),
	}

	ex, err := pu.extract.Extract(ctx, req.Symbols, req.Window)
	if err != nil {
		report.FinishedAt = pu.now()
		return report, fmt.Errorf("extract: %w", err)
	}
	report.Failures = ex.Failures

	ds := ex.Dataset()
	report.Loaded = ds.Symbols()

	// Cancellation during extraction must not turn into a partial replace.
	if err := ctx.Err(); err != nil {
		report.FinishedAt = pu.now()
		return report, fmt.Errorf("run aborted before load: %w", err)
	}

	if pu.archiver != nil && !ds.IsEmpty() {
		if path, err := pu.archiver.Archive(ctx, req.Target.Table, ds); err != nil {
			slog.Warn("failed to archive dataset", "table", req.Target.Table, "error", err)
		} else {
			slog.Info("dataset archived", "path", path, "rows", ds.Len())
		}
	}

	res, err := pu.load.Load(ctx, ds, req.Target)
	if err != nil {
		report.FinishedAt = pu.now()
		return report, err
	}
	report.Outcome = res.Outcome
	report.Rows = res.Rows
	report.FinishedAt = pu.now()
	return report, nil
}
