package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashutoshrp06/reasonchain/internal/agent"
	"github.com/ashutoshrp06/reasonchain/internal/backend"
	"github.com/ashutoshrp06/reasonchain/internal/config"
	"github.com/ashutoshrp06/reasonchain/internal/sandbox"
	"github.com/ashutoshrp06/reasonchain/internal/search"
	"github.com/ashutoshrp06/reasonchain/internal/tools"
	"go.uber.org/zap"
)

// newController builds the optional tool registry and the controller from
// configuration. Every run gets its own provider client and adapter.
func newController(cfg *config.Config, logger *zap.Logger) (*agent.Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	settings := cfg.BackendSettings()
	newAdapter := func() (agent.Caller, error) {
		provider, err := backend.NewProvider(settings)
		if err != nil {
			return nil, err
		}
		return backend.NewAdapter(provider,
			backend.WithLogger(logger),
			backend.WithStructuredFinal(!cfg.Tools)), nil
	}

	var (
		registry *tools.Registry
		err      error
	)
	if cfg.Tools {
		registry, err = newToolRegistry(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	return agent.New(agent.Config{
		NewBackend: newAdapter,
		Tools:      registry,
		MaxSteps:   cfg.MaxSteps,
		Logger:     logger,
	})
}

func newToolRegistry(cfg *config.Config, logger *zap.Logger) (*tools.Registry, error) {
	runner, err := newRunner(cfg.Sandbox, logger)
	if err != nil {
		return nil, err
	}
	return tools.NewDefaultRegistry(tools.Options{
		Runner:       runner,
		Search:       newSearchEngine(cfg.Search),
		WolframAppID: cfg.Wolfram.AppID,
		Logger:       logger,
	}), nil
}

func newRunner(sc config.SandboxConfig, logger *zap.Logger) (sandbox.Runner, error) {
	timeout := time.Duration(sc.TimeoutSeconds) * time.Second

	switch sc.Runner {
	case "docker":
		runner, err := sandbox.NewDockerRunner(sc.Image, logger)
		if err != nil {
			return nil, err
		}
		runner.SetTimeout(timeout)
		return runner, nil
	case "process", "":
		runner := sandbox.NewProcessRunner()
		if fields := strings.Fields(sc.Interpreter); len(fields) > 0 {
			runner.Interpreter = fields
		}
		if timeout > 0 {
			runner.Timeout = timeout
		}
		return runner, nil
	default:
		return nil, fmt.Errorf("unknown sandbox runner %q", sc.Runner)
	}
}

// newSearchEngine picks the configured provider, or the first one with a
// key. It returns nil when web search is unavailable.
func newSearchEngine(sc config.SearchConfig) search.Engine {
	provider := sc.Provider
	if provider == "" {
		switch {
		case sc.ExaAPIKey != "":
			provider = "exa"
		case sc.TavilyAPIKey != "":
			provider = "tavily"
		}
	}

	switch provider {
	case "exa":
		if sc.ExaAPIKey == "" {
			return nil
		}
		return search.NewExa(sc.ExaAPIKey)
	case "tavily":
		if sc.TavilyAPIKey == "" {
			return nil
		}
		return search.NewTavily(sc.TavilyAPIKey, sc.TavilyDepth)
	}
	return nil
}
