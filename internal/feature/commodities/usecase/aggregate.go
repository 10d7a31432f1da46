package usecase

import "commodity_etl/internal/feature/commodities/domain/entity"

// Aggregate concatenates per-symbol series into one Dataset in the order
// received. Each row is tagged with its series' symbol so the schema is
// uniform ({date, close, symbol}). It neither reorders nor deduplicates.
func Aggregate(window entity.LookbackWindow, series []entity.SymbolSeries) entity.Dataset {
	n := 0
	for _, s := range series {
		n += len(s.Observations)
	}

	rows := make([]entity.Observation, 0, n)
	for _, s := range series {
		for _, o := range s.Observations {
			rows = append(rows, entity.Observation{
				Date:   o.Date,
				Symbol: s.Symbol,
				Close:  o.Close,
			})
		}
	}
	return entity.Dataset{Window: window, Observations: rows}
}
