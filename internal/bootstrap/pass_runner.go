package bootstrap

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	appRepos "github.com/tracerstudy/tracer-sync/internal/app/repositories"
	appServices "github.com/tracerstudy/tracer-sync/internal/app/services"
	"github.com/tracerstudy/tracer-sync/internal/db"
	"github.com/tracerstudy/tracer-sync/internal/pkg/logger"
)

// passRunner runs each pass in one PostgreSQL transaction, serialized across
// processes by a transaction-scoped advisory lock.
type passRunner struct {
	database *db.PostgresDB
	timeout  time.Duration
	lockKey  int64
}

// NewPassRunner creates the PassRunner backing the import service
func NewPassRunner(database *db.PostgresDB, timeout time.Duration, lockKey int64) appServices.PassRunner {
	return &passRunner{database: database, timeout: timeout, lockKey: lockKey}
}

func (r *passRunner) RunPass(ctx context.Context, fn func(ctx context.Context, store appServices.Store) error) error {
	return r.database.WithTransaction(ctx, r.timeout, func(ctx context.Context, tx pgx.Tx) error {
		waitStart := time.Now()
		if err := db.AdvisoryLock(ctx, tx, r.lockKey); err != nil {
			return err
		}
		logger.Debug().Int64("lock_key", r.lockKey).Dur("waited", time.Since(waitStart)).Msg("Pass lock acquired")
		return fn(ctx, appRepos.NewTxStore(tx))
	})
}
