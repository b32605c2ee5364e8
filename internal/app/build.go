// Package app wires the store, the vector index, the search engine and
// the agent into one runnable unit shared by the CLI and the server.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/npolatykin/mas-sandbox/internal/agent"
	"github.com/npolatykin/mas-sandbox/internal/config"
	"github.com/npolatykin/mas-sandbox/internal/embedding"
	"github.com/npolatykin/mas-sandbox/internal/index"
	"github.com/npolatykin/mas-sandbox/internal/llm"
	"github.com/npolatykin/mas-sandbox/internal/search"
	"github.com/npolatykin/mas-sandbox/internal/store"
)

// App bundles the assistant's long-lived components.
type App struct {
	Store  *store.Store
	Index  *index.Index // nil when the embedding subsystem is unavailable
	Engine *search.Engine
	Agent  *agent.Agent
}

// Build constructs all components from configuration. An unreachable
// embedding model is a capability switch, not an error: the index stays
// nil and search degrades to substring matching.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.DataFile)
	if err != nil {
		return nil, fmt.Errorf("open task store: %w", err)
	}

	embedder := embedding.NewOllamaClient(
		embedding.WithBaseURL(cfg.Embedding.URL),
		embedding.WithModel(cfg.Embedding.Model),
	)

	var idx *index.Index
	var sem search.SemanticIndex
	idx, err = index.Open(ctx, cfg.IndexDB, embedder, st.ListAllTasks())
	if err != nil {
		log.Printf("Warning: semantic search disabled: %v", err)
		idx = nil
	} else {
		st.SetRefresher(idx)
		sem = idx
	}

	engine := search.NewEngine(st, sem)

	var completerOpts []llm.ClientOption
	if cfg.Completion.Model != "" {
		completerOpts = append(completerOpts, llm.WithModel(cfg.Completion.Model))
	}
	if cfg.Completion.BaseURL != "" {
		completerOpts = append(completerOpts, llm.WithBaseURL(cfg.Completion.BaseURL))
	}
	completer := llm.NewClient(cfg.Completion.APIKey, completerOpts...)

	return &App{
		Store:  st,
		Index:  idx,
		Engine: engine,
		Agent:  agent.New(completer, st, engine),
	}, nil
}

// Close releases held resources.
func (a *App) Close() error {
	if a.Index != nil {
		return a.Index.Close()
	}
	return nil
}
