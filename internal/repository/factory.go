package repository

import (
	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/config"
	"github.com/dataexplorer/core/internal/container"
	"github.com/dataexplorer/core/internal/mlog"
)

// Capability names under which the Repository Layer binds its backends
// into the Container. "repository.primary" is the embedded store every
// deployment has; "repository.remote" is optional and only bound when a
// remote DSN is configured, matching spec.md §4.C's optional-capability
// contract (a module declaring repository.remote as required fails hard
// when no DSN is set, one declaring it optional gets a recorded no-op).
const (
	CapabilityPrimary = "repository.primary"
	CapabilityRemote  = "repository.remote"
)

// Register binds the embedded backend (always) and the remote backend
// (only if cfg.RemoteDSN is set) into c.
func Register(c *container.Container, cfg *config.Config, logger mlog.Logger) error {
	if err := c.Bind(CapabilityPrimary, func(container.Resolver) (any, error) {
		repo, err := NewEmbeddedRepository(cfg.EmbeddedDBPath, logger)
		if err != nil {
			return nil, err
		}

		return Repository(repo), nil
	}); err != nil {
		return apperr.Wrap(apperr.KindConfig, "failed to bind "+CapabilityPrimary, err)
	}

	if cfg.RemoteDSN == "" {
		return nil
	}

	if err := c.Bind(CapabilityRemote, func(container.Resolver) (any, error) {
		repo, err := NewRemoteRepository(RemoteOptions{DSN: cfg.RemoteDSN}, logger)
		if err != nil {
			return nil, err
		}

		return Repository(repo), nil
	}); err != nil {
		return apperr.Wrap(apperr.KindConfig, "failed to bind "+CapabilityRemote, err)
	}

	return nil
}
