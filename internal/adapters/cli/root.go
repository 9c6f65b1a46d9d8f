package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lindalindashu/novel-agent/internal/adapters/httpclient"
	"github.com/lindalindashu/novel-agent/internal/bootstrap"
	"github.com/lindalindashu/novel-agent/internal/config"
	"github.com/lindalindashu/novel-agent/internal/domain"
	"github.com/lindalindashu/novel-agent/internal/observability"
)

type rootOptions struct {
	svc Service
}

type Option func(*rootOptions)

// WithService makes every command use svc instead of building one from config.
func WithService(svc Service) Option {
	return func(o *rootOptions) { o.svc = svc }
}

type healthChecker interface {
	Health(ctx context.Context) error
}

// NewRootCommand builds the chronicle command tree. Without a subcommand it
// runs the interactive menu.
func NewRootCommand(opts ...Option) *cobra.Command {
	ro := &rootOptions{}
	for _, opt := range opts {
		opt(ro)
	}

	v := viper.New()
	var (
		cfgFile string
		app     *App
		svc     Service
		cleanup func() error
	)

	root := &cobra.Command{
		Use:   "chronicle",
		Short: "Chronicle Weaver, an AI ghostwriter for your diary",
		Long: `chronicle turns your conversations and notes into literary diary entries.

Example usage:
  chronicle                    # Interactive menu
  chronicle write              # Compose and refine one entry
  chronicle list --limit 20    # Show recent entries
  chronicle show 12            # Read entry #12
  chronicle delete 12          # Delete entry #12 after confirming
  chronicle --local write      # Run without the API server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			app, svc, cleanup, err = ro.setup(cmd, v, cfgFile)
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if cleanup != nil {
				return cleanup()
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Menu(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "YAML config file (default is $CHRONICLE_CONFIG)")
	flags.String("server", "", "entry API base URL")
	flags.String("username", "", "diary owner")
	flags.Bool("local", false, "use the configured LLM and storage directly instead of the API")
	flags.Bool("no-color", false, "disable colored output")
	flags.BoolP("verbose", "v", false, "verbose output")

	for _, name := range []string{"server", "username", "local", "no-color", "verbose"} {
		_ = v.BindPFlag(name, flags.Lookup(name))
	}

	current := func() *App { return app }

	root.AddCommand(
		newWriteCommand(current),
		newListCommand(current),
		newShowCommand(current),
		newDeleteCommand(current),
		newExtractCommand(current),
		newPingCommand(func() Service { return svc }, current),
	)
	return root
}

// setup loads config, then lets flags override it, and builds the service.
func (ro *rootOptions) setup(cmd *cobra.Command, v *viper.Viper, cfgFile string) (*App, Service, func() error, error) {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	v.SetDefault("server", cfg.Client.ServerURL)
	v.SetDefault("username", cfg.Diary.DefaultUsername)

	level := "warn"
	if v.GetBool("verbose") {
		level = "debug"
	}
	logger := observability.Setup(cmd.ErrOrStderr(), level, "text")

	svc := ro.svc
	cleanup := func() error { return nil }
	switch {
	case svc != nil:
	case v.GetBool("local"):
		local, closeFn, err := bootstrap.NewDiaryService(cmd.Context(), cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		svc, cleanup = local, closeFn
	default:
		svc = httpclient.New(v.GetString("server"), cfg.Client.RequestTimeout)
	}

	logger.Debug("configuration loaded",
		"server", v.GetString("server"),
		"username", v.GetString("username"),
		"local", v.GetBool("local"),
		"llm_provider", cfg.LLM.Provider,
		"storage_backend", cfg.Storage.Backend,
	)

	app := NewApp(svc, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), Options{
		Username:      v.GetString("username"),
		ListLimit:     cfg.Diary.ListLimit,
		PreviewLength: cfg.Diary.PreviewLength,
		Colors:        !v.GetBool("no-color") && !color.NoColor,
		Logger:        logger,
	})
	return app, svc, cleanup, nil
}

func newWriteCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "write",
		Short: "Write a new diary entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().Write(cmd.Context())
		},
	}
}

func newListCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List recent entries",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return app().List(cmd.Context(), limit)
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "number of entries to show (default from config)")
	return cmd
}

func newShowCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseEntryID(args[0])
			if err != nil {
				return err
			}
			return app().Show(cmd.Context(), id)
		},
	}
}

func newDeleteCommand(app func() *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete ID",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := domain.ParseEntryID(args[0])
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")
			return app().Delete(cmd.Context(), id, yes)
		},
	}
	cmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func newExtractCommand(app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract people, events and emotions from text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app().Extract(cmd.Context())
		},
	}
}

func newPingCommand(svc func() Service, app func() *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the entry service is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := app().p
			hc, ok := svc().(healthChecker)
			if !ok {
				p.Success("Running locally, no server needed.")
				return nil
			}
			if err := hc.Health(cmd.Context()); err != nil {
				return fmt.Errorf("entry service unreachable: %w", err)
			}
			p.Success("Entry service is up.")
			return nil
		},
	}
}
