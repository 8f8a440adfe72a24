package main

import (
	"fmt"
	"os"

	"github.com/dataexplorer/core/internal/agent"
	"github.com/dataexplorer/core/internal/config"
	"github.com/dataexplorer/core/internal/container"
	"github.com/dataexplorer/core/internal/conversation"
	"github.com/dataexplorer/core/internal/graphcache"
	"github.com/dataexplorer/core/internal/httpapi"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/internal/registry"
	"github.com/dataexplorer/core/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := mlog.NewZapLogger(cfg.EnvName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Errorf("server failed to start: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger mlog.Logger) error {
	c := container.New()

	if err := repository.Register(c, cfg, logger); err != nil {
		return err
	}

	if err := graphcache.Register(c, cfg, logger); err != nil {
		return err
	}

	if err := conversation.Register(c, cfg, cfg.ConversationPersistent); err != nil {
		return err
	}

	reg := registry.New(logger)
	if err := reg.Load(cfg.ModuleRoot); err != nil {
		return err
	}

	noops, err := reg.ResolveCapabilities(c)
	if err != nil {
		return err
	}

	for moduleID, caps := range noops {
		logger.Warnf("module %s: optional capabilities unresolved, falling back to no-op: %v", moduleID, caps)
	}

	c.Seal()

	primary, err := c.Resolve(repository.CapabilityPrimary)
	if err != nil {
		return err
	}

	repos := map[string]repository.Repository{"primary": primary.(repository.Repository)}

	if c.Bound(repository.CapabilityRemote) {
		remote, err := c.Resolve(repository.CapabilityRemote)
		if err != nil {
			return err
		}

		repos["remote"] = remote.(repository.Repository)
	}

	graphEngineAny, err := c.Resolve(graphcache.CapabilityEngine)
	if err != nil {
		return err
	}

	graphEngine := graphEngineAny.(*graphcache.Engine)

	schemaDoc, err := graphcache.LoadSchemaDocument(cfg.SchemaDocPath)
	if err != nil {
		return err
	}

	schemaSourceFor := func(repo repository.Repository) graphcache.Source {
		return graphcache.NewSchemaSource(repo, schemaDoc)
	}

	convStoreAny, err := c.Resolve(conversation.CapabilityStore)
	if err != nil {
		return err
	}

	convStore := convStoreAny.(conversation.Store)

	var llm agent.LLMClient = agent.StubLLMClient{}
	if cfg.LLMEndpoint != "" {
		llm = agent.NewHTTPLLMClient(cfg.LLMEndpoint, cfg.LLMKey)
	}

	orchestrator := agent.New(agent.Options{
		Store:        convStore,
		LLM:          llm,
		Repos:        repos,
		GraphEngine:  graphEngine,
		SchemaSource: schemaSourceFor,
		Logger:       logger,
	})

	app := httpapi.NewServer(httpapi.ServerOptions{
		Logger:            logger,
		Registry:          reg,
		ModuleRoot:        cfg.ModuleRoot,
		GraphEngine:       graphEngine,
		SchemaSource:      schemaSourceFor(repos["primary"]),
		ConversationStore: convStore,
		Orchestrator:      orchestrator,
	})

	logger.Infof("listening on %s", cfg.ServerAddress)

	return app.Listen(cfg.ServerAddress)
}
