// Package bootstrap builds the diary service from configuration.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/lindalindashu/novel-agent/internal/adapters/llm"
	"github.com/lindalindashu/novel-agent/internal/adapters/storage/firestore"
	"github.com/lindalindashu/novel-agent/internal/adapters/storage/memory"
	"github.com/lindalindashu/novel-agent/internal/adapters/storage/postgres"
	"github.com/lindalindashu/novel-agent/internal/app/diary"
	"github.com/lindalindashu/novel-agent/internal/config"
	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

// Stores bundles the persistence collaborators and how to release them.
type Stores struct {
	Entries domain.EntryStore
	Users   domain.UserStore
	Close   func() error
}

// NewCompleter picks the text-generation provider.
func NewCompleter(ctx context.Context, cfg config.LLMConfig) (llm.Completer, error) {
	var (
		c   llm.Completer
		err error
	)

	switch cfg.Provider {
	case config.ProviderMock, "":
		c = llm.NewMockLLM()
	case config.ProviderVertex:
		c, err = llm.NewVertexClient(ctx, llm.VertexConfig{
			ProjectID:   cfg.GCPProjectID,
			Location:    cfg.GCPLocation,
			ModelName:   cfg.ModelName,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case config.ProviderAnthropic:
		c, err = llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:      cfg.AnthropicAPIKey,
			ModelName:   cfg.ModelName,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	default:
		err = fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RatePerMinute > 0 {
		c = llm.NewRateLimited(c, cfg.RatePerMinute, cfg.Burst)
	}
	return c, nil
}

// NewStores opens the configured storage backend. Postgres migrations are
// applied before returning.
func NewStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.Storage.Backend {
	case config.StorageMemory, "":
		return &Stores{
			Entries: memory.NewEntryStore(),
			Users:   memory.NewUserStore(),
			Close:   func() error { return nil },
		}, nil

	case config.StoragePostgres:
		pool, err := postgres.Connect(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		store := postgres.NewStore(pool)
		return &Stores{
			Entries: store,
			Users:   store,
			Close:   func() error { pool.Close(); return nil },
		}, nil

	case config.StorageFirestore:
		store, err := firestore.NewStore(ctx, cfg.LLM.GCPProjectID)
		if err != nil {
			return nil, err
		}
		return &Stores{Entries: store, Users: store, Close: store.Close}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// NewDiaryService wires the provider and stores into a diary.Service. The
// returned close func releases the stores.
func NewDiaryService(ctx context.Context, cfg *config.Config) (*diary.Service, func() error, error) {
	log := observability.Logger()

	completer, err := NewCompleter(ctx, cfg.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("init llm: %w", err)
	}
	log.Info("llm provider ready", "provider", completer.Provider(), "model", completer.Model())

	stores, err := NewStores(ctx, cfg)
	if err != nil {
		return nil, nil, errors.Join(fmt.Errorf("init storage: %w", err), closeCompleter(completer))
	}
	log.Info("storage ready", "backend", cfg.Storage.Backend)

	svc := diary.NewService(
		llm.NewGenerator(completer),
		stores.Entries,
		stores.Users,
		diary.WithContextLimit(cfg.Diary.ContextLimit),
		diary.WithDefaultUsername(cfg.Diary.DefaultUsername),
	)

	closeAll := func() error {
		return errors.Join(stores.Close(), closeCompleter(completer))
	}
	return svc, closeAll, nil
}

func closeCompleter(c llm.Completer) error {
	if cl, ok := c.(interface{ Close() error }); ok {
		return cl.Close()
	}
	return nil
}
