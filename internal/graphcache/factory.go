package graphcache

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/config"
	"github.com/dataexplorer/core/internal/container"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/internal/repository"
)

// CapabilityEngine is the DI capability name the Graph Cache Engine is
// bound under.
const CapabilityEngine = "graphcache.engine"

// Register binds the Graph Cache Engine into c, backed by the embedded
// repository's SQLite connection and, if cfg.RedisAddr resolves, a
// read-through redis hot layer.
func Register(c *container.Container, cfg *config.Config, logger mlog.Logger) error {
	return c.Bind(CapabilityEngine, func(r container.Resolver) (any, error) {
		primary, err := r.Resolve(repository.CapabilityPrimary)
		if err != nil {
			return nil, err
		}

		embedded, ok := primary.(*repository.EmbeddedRepository)
		if !ok {
			return nil, apperr.New(apperr.KindInternal, "graphcache: repository.primary is not an EmbeddedRepository")
		}

		store := Store(NewSQLiteStore(embedded.DB()))

		if cfg.RedisAddr != "" {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			store = NewCachingStore(store, rdb, 10*time.Minute)
		}

		return New(store, logger), nil
	})
}
