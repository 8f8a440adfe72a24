package conversation

import (
	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/config"
	"github.com/dataexplorer/core/internal/container"
	"github.com/dataexplorer/core/internal/repository"
)

// CapabilityStore is the DI capability name the Conversation Store is
// bound under.
const CapabilityStore = "conversation.store"

// Register binds the Conversation Store into c. Set usePersistent to
// true to use the SQLite-backed variant sharing the embedded
// repository's connection instead of the in-memory default.
func Register(c *container.Container, cfg *config.Config, usePersistent bool) error {
	return c.Bind(CapabilityStore, func(r container.Resolver) (any, error) {
		if !usePersistent {
			return Store(NewMemory(cfg.ConversationTTL)), nil
		}

		primary, err := r.Resolve(repository.CapabilityPrimary)
		if err != nil {
			return nil, err
		}

		embedded, ok := primary.(*repository.EmbeddedRepository)
		if !ok {
			return nil, apperr.New(apperr.KindInternal, "conversation: repository.primary is not an EmbeddedRepository")
		}

		store, err := NewSQLite(embedded.DB(), cfg.ConversationTTL)
		if err != nil {
			return nil, err
		}

		return Store(store), nil
	})
}
