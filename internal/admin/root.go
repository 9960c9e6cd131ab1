// Package admin implements outreachctl, the operator command line:
// schema migration, password reset and delivery log inspection.
package admin

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/iudanet/outreach/internal/server"
	"github.com/iudanet/outreach/internal/server/config"
	"github.com/iudanet/outreach/internal/server/storage/sqldb"
)

// Options - внешние зависимости команд
type Options struct {
	Getenv   func(string) string
	Prompter Prompter
}

type app struct {
	opts       Options
	configPath string
}

// NewRootCommand собирает дерево команд outreachctl
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "outreachctl",
		Short: "Administer an outreach server installation",
		Long: `outreachctl works directly against the server database.

It reads the same TOML file and OUTREACH_* environment variables as the server,
so run it with the configuration the server uses.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "path to TOML config file (env "+config.EnvConfigPath+")")

	root.AddCommand(
		a.newMigrateCommand(),
		a.newPasswdCommand(),
		a.newLogsCommand(),
	)
	return root
}

func (a *app) loadConfig() (*config.Config, error) {
	path := a.configPath
	if path == "" {
		path = a.opts.Getenv(config.EnvConfigPath)
	}
	return config.Resolve(path, a.opts.Getenv)
}

// openStore открывает БД по конфигурации; предупреждения пишутся в stderr команды
func (a *app) openStore(ctx context.Context, cmd *cobra.Command) (*sqldb.Storage, *config.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cmd.ErrOrStderr())
	store, err := server.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelError}))
}
