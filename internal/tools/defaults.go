package tools

import (
	"github.com/ashutoshrp06/reasonchain/internal/sandbox"
	"github.com/ashutoshrp06/reasonchain/internal/search"
	"go.uber.org/zap"
)

// Options wires the external services behind the default tools.
type Options struct {
	Runner       sandbox.Runner
	Search       search.Engine
	WolframAppID string
	Logger       *zap.Logger
}

// NewDefaultRegistry registers the full tool set and the legacy names
// calculator and code_executor.
func NewDefaultRegistry(opts Options) *Registry {
	r := NewRegistry(opts.Logger)

	r.MustRegister(NewCalculateTool())
	r.MustRegister(NewExecuteCodeTool(opts.Runner))

	// A nil interface must stay nil so the tools report "not configured".
	var searcher search.Searcher
	var fetcher search.Fetcher
	if opts.Search != nil {
		searcher, fetcher = opts.Search, opts.Search
	}
	r.MustRegister(NewWebSearchTool(searcher))
	r.MustRegister(NewFetchPageTool(fetcher))
	r.MustRegister(NewWolframTool(opts.WolframAppID))

	r.Alias("calculator", "calculate")
	r.Alias("code_executor", "execute_code")
	return r
}
