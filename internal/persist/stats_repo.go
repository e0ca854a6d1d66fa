package persist

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// FrameRecord is one row of frame_stats.
type FrameRecord struct {
	Frame       uint64
	Begin       time.Duration
	Logic       time.Duration
	Render      time.Duration
	ThreadLocal time.Duration
	Total       time.Duration
	RecordedAt  time.Time
}

// StatsWriter persists batches of frame records.
type StatsWriter interface {
	InsertBatch(ctx context.Context, records []FrameRecord) error
}

type StatsRepo struct {
	db *DB
}

func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

var frameStatsColumns = []string{
	"frame", "begin_us", "logic_us", "render_us", "thread_local_us", "total_us", "recorded_at",
}

// InsertBatch copies records into frame_stats in one round trip.
func (r *StatsRepo) InsertBatch(ctx context.Context, records []FrameRecord) error {
	if len(records) == 0 {
		return nil
	}
	n, err := r.db.Pool.CopyFrom(ctx, pgx.Identifier{"frame_stats"}, frameStatsColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			rec := records[i]
			return []any{
				int64(rec.Frame),
				rec.Begin.Microseconds(),
				rec.Logic.Microseconds(),
				rec.Render.Microseconds(),
				rec.ThreadLocal.Microseconds(),
				rec.Total.Microseconds(),
				rec.RecordedAt,
			}, nil
		}))
	if err != nil {
		return fmt.Errorf("copy frame_stats: %w", err)
	}
	if int(n) != len(records) {
		return fmt.Errorf("copy frame_stats: wrote %d of %d rows", n, len(records))
	}
	return nil
}
