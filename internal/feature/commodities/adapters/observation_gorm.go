package adapters

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"commodity_etl/internal/feature/commodities/domain/entity"
	"commodity_etl/internal/feature/commodities/usecase"
)

// insertBatchSize bounds the rows per INSERT statement.
const insertBatchSize = 500

type observationGorm struct {
	db *gorm.DB
}

var (
	_ usecase.ObservationRepository = (*observationGorm)(nil)
	_ usecase.ObservationReader     = (*observationGorm)(nil)
)

func NewObservationRepository(db *gorm.DB) *observationGorm {
	return &observationGorm{db: db}
}

// ObservationModel is the destination row: date, close, symbol.
// The date is the natural row key; uniqueness is not enforced by the table.
type ObservationModel struct {
	Date   time.Time       `gorm:"column:date;type:date;not null"`
	Close  decimal.Decimal `gorm:"column:close;type:numeric;not null"`
	Symbol string          `gorm:"column:symbol;size:32;not null"`
}

// TableName is the default destination; ReplaceAll and Find override it per target.
func (ObservationModel) TableName() string {
	return "commodities_data"
}

func toModel(e entity.Observation) ObservationModel {
	return ObservationModel{
		Date:   e.Date,
		Close:  e.Close,
		Symbol: string(e.Symbol),
	}
}

func toEntity(m ObservationModel) entity.Observation {
	return entity.Observation{
		Date:   entity.CalendarDate(m.Date),
		Symbol: entity.Symbol(m.Symbol),
		Close:  m.Close,
	}
}

// ReplaceAll supersedes the table's contents inside a single transaction.
// Readers see either the old rows or the new rows, never a mix; on any
// error the transaction is rolled back and the old rows remain.
func (r *observationGorm) ReplaceAll(ctx context.Context, target entity.LoadTarget, observations []entity.Observation) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}

	ms := make([]ObservationModel, 0, len(observations))
	for _, e := range observations {
		ms = append(ms, toModel(e))
	}

	var inserted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch target.Strategy {
		case entity.StrategyRecreate:
			if err := dropTable(tx, target.Table).Error; err != nil {
				return fmt.Errorf("drop table: %w", err)
			}
			if err := tx.Table(target.Table).Migrator().CreateTable(&ObservationModel{}); err != nil {
				return fmt.Errorf("create table: %w", err)
			}
		default:
			if !tx.Migrator().HasTable(target.Table) {
				if err := tx.Table(target.Table).Migrator().CreateTable(&ObservationModel{}); err != nil {
					return fmt.Errorf("create table: %w", err)
				}
			}
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
				Table(target.Table).
				Delete(&ObservationModel{}).Error; err != nil {
				return fmt.Errorf("clear table: %w", err)
			}
		}

		if len(ms) == 0 {
			return nil
		}
		res := tx.Table(target.Table).CreateInBatches(&ms, insertBatchSize)
		if res.Error != nil {
			return fmt.Errorf("insert rows: %w", res.Error)
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// dropTable drops only the table itself. Migrator().DropTable adds CASCADE on
// Postgres, which would also drop dependent views; without it a dependent
// object makes the drop fail and the transaction rolls back.
func dropTable(tx *gorm.DB, table string) *gorm.DB {
	return tx.Exec("DROP TABLE IF EXISTS ?", clause.Table{Name: table})
}

// Find reads the table back, optionally filtered by symbol, ordered by symbol then date.
func (r *observationGorm) Find(ctx context.Context, table string, symbol entity.Symbol) ([]entity.Observation, error) {
	var rows []ObservationModel
	q := r.db.WithContext(ctx).Table(table).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "symbol"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}})
	if symbol != "" {
		q = q.Where("symbol = ?", string(symbol))
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Observation, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}
