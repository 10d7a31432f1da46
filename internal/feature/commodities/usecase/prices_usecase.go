package usecase

import (
	"context"

	"commodity_etl/internal/feature/commodities/domain/entity"
)

// ObservationReader reads back the loaded table.
type ObservationReader interface {
	// Find returns the rows of table, optionally filtered by symbol, ordered by symbol then date.
	Find(ctx context.Context, table string, symbol entity.Symbol) ([]entity.Observation, error)
}

// pricesUsecase serves the loaded closing prices.
type pricesUsecase struct {
	reader ObservationReader
	table  string
}

// NewPricesUsecase creates a read usecase bound to one destination table.
func NewPricesUsecase(reader ObservationReader, table string) *pricesUsecase {
	return &pricesUsecase{reader: reader, table: table}
}

// GetPrices returns the loaded rows for symbol, or every row when symbol is empty.
func (pu *pricesUsecase) GetPrices(ctx context.Context, symbol entity.Symbol) ([]entity.Observation, error) {
	return pu.reader.Find(ctx, pu.table, symbol)
}
