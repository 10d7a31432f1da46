// Package archive writes each loaded dataset to a Parquet file next to the database load.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"

	"commodity_etl/internal/feature/commodities/domain/entity"
	"commodity_etl/internal/feature/commodities/usecase"
)

// Row is one archived observation. Close is stored as a double for downstream readers.
type Row struct {
	Date   string  `parquet:"date"`
	Close  float64 `parquet:"close"`
	Symbol string  `parquet:"symbol"`
}

// stampLayout keeps nanoseconds so runs in the same second get distinct names.
const stampLayout = "20060102T150405.000000000Z"

// maxNameAttempts bounds the _N suffixes tried when a name is already taken.
const maxNameAttempts = 100

// ParquetArchiver writes datasets under dir as <table>_<UTC timestamp>.parquet.
type ParquetArchiver struct {
	dir string
	now func() time.Time
}

var _ usecase.Archiver = (*ParquetArchiver)(nil)

func NewParquetArchiver(dir string) *ParquetArchiver {
	return &ParquetArchiver{dir: dir, now: time.Now}
}

// Archive writes ds and returns the file path. The file appears atomically.
func (a *ParquetArchiver) Archive(ctx context.Context, table string, ds entity.Dataset) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	rows := make([]Row, 0, ds.Len())
	for _, o := range ds.Observations {
		rows = append(rows, Row{
			Date:   o.Date.Format(entity.DateLayout),
			Close:  o.Close.InexactFloat64(),
			Symbol: string(o.Symbol),
		})
	}

	f, err := os.CreateTemp(a.dir, table+"_*.parquet.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmp := f.Name()
	_ = f.Close()
	defer func() { _ = os.Remove(tmp) }()

	if err := parquet.WriteFile(tmp, rows); err != nil {
		return "", fmt.Errorf("write parquet: %w", err)
	}

	base := filepath.Join(a.dir, fmt.Sprintf("%s_%s", table, a.now().UTC().Format(stampLayout)))
	return publish(tmp, base)
}

// publish links tmp to base.parquet, or base_N.parquet when that exists.
// os.Link never replaces an existing file, so an earlier archive is never overwritten.
func publish(tmp, base string) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		path := base + ".parquet"
		if i > 0 {
			path = fmt.Sprintf("%s_%d.parquet", base, i)
		}
		err := os.Link(tmp, path)
		if err == nil {
			return path, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publish parquet: %w", err)
		}
	}
	return "", fmt.Errorf("publish parquet: no free name for %s", base)
}
