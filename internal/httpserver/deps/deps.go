// Package deps carries the shared dependencies handed to every route.
package deps

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/marksync/agent/internal/domain"
	"github.com/marksync/agent/internal/logger"
	"github.com/marksync/agent/internal/settings"
)

// BookmarkSyncer runs one sync exchange.
type BookmarkSyncer interface {
	Sync(ctx context.Context, meta domain.SyncMetadata) (domain.SyncOutcome, error)
}

// ScheduleController reacts to settings changes and reports its timer state.
type ScheduleController interface {
	Apply(ctx context.Context) error
	State() (bool, time.Duration)
}

// Deps are the dependencies passed to routes (extend as needed).
type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string

	AllowedCIDRS []string

	RedisClient *goredis.Client
	Settings    *settings.Store
	Syncer      BookmarkSyncer
	Scheduler   ScheduleController
}
