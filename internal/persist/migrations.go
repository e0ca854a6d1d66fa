package persist

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var embedded embed.FS

// migrationFS is the frame_stats schema history rooted at the SQL files.
func migrationFS() (fs.FS, error) {
	return fs.Sub(embedded, "migrations")
}

// Migrate brings the stats schema up to date through a goose provider and
// logs every migration it applied.
func (db *DB) Migrate(ctx context.Context) error {
	fsys, err := migrationFS()
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.Pool)
	defer sqlDB.Close()

	p, err := goose.NewProvider(goose.DialectPostgres, sqlDB, fsys)
	if err != nil {
		return fmt.Errorf("migration provider: %w", err)
	}
	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, r := range results {
		db.log.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("took", r.Duration))
	}
	if len(results) == 0 {
		db.log.Debug("stats schema up to date")
	}
	return nil
}
