package usecase

import (
	"context"
	"log/slog"

	"commodity_etl/internal/feature/commodities/domain"
	"commodity_etl/internal/feature/commodities/domain/entity"
)

// ObservationRepository persists observations into a destination table.
type ObservationRepository interface {
	// ReplaceAll atomically supersedes the table's contents with observations.
	// On error the prior contents must be intact.
	ReplaceAll(ctx context.Context, target entity.LoadTarget, observations []entity.Observation) (int64, error)
}

// LoadResult describes a Load call that did not fail.
type LoadResult struct {
	Outcome Outcome // OutcomeReplaced or OutcomeNoop
	Rows    int64
}

// LoadUsecase writes a Dataset under the replace-on-write policy.
type LoadUsecase struct {
	repo ObservationRepository
}

// NewLoadUsecase creates a LoadUsecase.
func NewLoadUsecase(repo ObservationRepository) *LoadUsecase {
	return &LoadUsecase{repo: repo}
}

// Load replaces the target table with the dataset.
//
// An empty dataset is a no-op: the table is left untouched. Any other
// failure, including an invalid target or dataset detected before the
// write, is returned as *domain.LoadFailureError.
func (lu *LoadUsecase) Load(ctx context.Context, ds entity.Dataset, target entity.LoadTarget) (LoadResult, error) {
	if ds.IsEmpty() {
		slog.Warn("no data to save, leaving table untouched", "table", target.Table)
		return LoadResult{Outcome: OutcomeNoop}, nil
	}
	if err := target.Validate(); err != nil {
		return LoadResult{}, domain.NewLoadFailure(target.Table, err)
	}
	if err := ds.Validate(); err != nil {
		return LoadResult{}, domain.NewLoadFailure(target.Table, err)
	}

	slog.Info("saving data", "table", target.Table, "rows", ds.Len(), "strategy", string(target.Strategy))
	n, err := lu.repo.ReplaceAll(ctx, target, ds.Observations)
	if err != nil {
		return LoadResult{}, domain.NewLoadFailure(target.Table, err)
	}
	slog.Info("data saved", "table", target.Table, "rows", n)
	return LoadResult{Outcome: OutcomeReplaced, Rows: n}, nil
}
