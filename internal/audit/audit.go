package audit

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"data-cleaner/internal/cleaner"
	"data-cleaner/internal/config"
)

// CleanRun is one invocation of the cleaning pipeline.
type CleanRun struct {
	bun.BaseModel `bun:"table:clean_runs,alias:r"`
	ID            string    `bun:"id,pk"`
	Model         string    `bun:"model,notnull"`
	TargetColumns string    `bun:"target_columns,notnull"`
	ChunkSize     int       `bun:"chunk_size,notnull"`
	TotalChunks   int       `bun:"total_chunks,notnull"`
	FailedChunks  int       `bun:"failed_chunks,notnull"`
	OutputRows    int       `bun:"output_rows,notnull"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// ChunkRecord is the per-chunk outcome within a run, including dropped chunks.
type ChunkRecord struct {
	bun.BaseModel `bun:"table:clean_chunks,alias:c"`
	ID            int64  `bun:"id,pk,autoincrement"`
	RunID         string `bun:"run_id,notnull"`
	ChunkIndex    int    `bun:"chunk_index,notnull"`
	StartRow      int    `bun:"start_row,notnull"`
	EndRow        int    `bun:"end_row,notnull"`
	RowsIn        int    `bun:"rows_in,notnull"`
	RowsOut       int    `bun:"rows_out,notnull"`
	Coerced       bool   `bun:"coerced,notnull"`
	Error         string `bun:"error"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg *config.AuditConfig) (*sql.DB, error) {
	dsn := cfg.DSN + "?sslmode=disable"
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn), pgdriver.WithPassword(cfg.Password))), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().Model((*CleanRun)(nil)).IfNotExists().Exec(ctx); err != nil {
		return err
	}
	_, err := db.NewCreateTable().Model((*ChunkRecord)(nil)).IfNotExists().Exec(ctx)
	return err
}

// RecordRun stores the run summary and one record per chunk.
func RecordRun(ctx context.Context, db *bun.DB, runID string, opts cleaner.Options, res cleaner.Result) error {
	run := &CleanRun{
		ID:            runID,
		Model:         opts.Model,
		TargetColumns: strings.Join(opts.TargetColumns, ","),
		ChunkSize:     opts.ChunkSize,
		TotalChunks:   len(res.Chunks),
		FailedChunks:  res.Failed(),
		OutputRows:    res.Table.NumRows(),
	}
	if _, err := db.NewInsert().Model(run).Exec(ctx); err != nil {
		return err
	}

	if len(res.Chunks) == 0 {
		return nil
	}
	records := make([]ChunkRecord, len(res.Chunks))
	for i, c := range res.Chunks {
		records[i] = ChunkRecord{
			RunID:      runID,
			ChunkIndex: c.Index,
			StartRow:   c.Start,
			EndRow:     c.End,
			RowsIn:     c.RowsIn,
			RowsOut:    c.RowsOut,
			Coerced:    c.Coerced,
		}
		if c.Err != nil {
			records[i].Error = c.Err.Error()
		}
	}
	_, err := db.NewInsert().Model(&records).Exec(ctx)
	return err
}

// RunChunks loads the chunk records for a run, dropped chunks included.
func RunChunks(ctx context.Context, db *bun.DB, runID string) ([]ChunkRecord, error) {
	var records []ChunkRecord
	err := db.NewSelect().
		Model(&records).
		Where("run_id = ?", runID).
		Order("chunk_index ASC").
		Scan(ctx)
	return records, err
}
