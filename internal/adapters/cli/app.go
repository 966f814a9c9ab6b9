// Package cli exposes the collectorkit use cases as cobra commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"collectorkit/internal/adapters/discord"
	"collectorkit/internal/adapters/email"
	"collectorkit/internal/adapters/notify"
	"collectorkit/internal/application"
	"collectorkit/internal/auth"
	"collectorkit/internal/config"
	"collectorkit/internal/domain"
	"collectorkit/internal/infrastructure/database"
	"collectorkit/internal/infrastructure/i18n"
	"collectorkit/internal/infrastructure/storage"
	"collectorkit/internal/infrastructure/storage/awss3"
	"collectorkit/internal/infrastructure/storage/gcs"
	"collectorkit/internal/infrastructure/storage/local"
	"collectorkit/internal/logging"
	"collectorkit/internal/ports/output"
)

// App carries the configuration and collaborators shared by every command.
// Databases, storage backends and notifiers are opened per command.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	tr       *i18n.Translator
	out      io.Writer
	errOut   io.Writer
	notifier output.Notifier
}

// Option configures an App.
type Option func(*App)

// WithOutput redirects command output.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		a.out = out
		a.errOut = errOut
	}
}

// WithNotifier replaces the notifier built from the configuration.
func WithNotifier(n output.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// New builds an App from a validated configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("cli: nil config")
	}
	if logger == nil {
		logger = slog.Default()
	}
	tr, err := i18n.NewTranslator(cfg.DefaultLanguage, cfg.SupportedLanguages,
		i18n.WithCacheTTL(cfg.CacheTimeout),
		i18n.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("cli: translator: %w", err)
	}
	a := &App{cfg: cfg, logger: logger, tr: tr, out: os.Stdout, errOut: os.Stderr}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Translator returns the translator shared by the commands.
func (a *App) Translator() *i18n.Translator { return a.tr }

// Execute runs the command line args.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.RootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// RootCommand assembles the command tree.
func (a *App) RootCommand() *cobra.Command {
	var lang string
	root := &cobra.Command{
		Use:   "collectorkit",
		Short: "Data collector toolkit",
		Long: `collectorkit manages the customer, site and device directory, validates
data collector sessions, stores files in local, GCS or S3 buckets and ships
the utility helpers used by the collectors.

Examples:
  collectorkit directory migrate
  collectorkit directory devices --customer 3
  collectorkit storage upload reports/2024/march.pdf ./march.pdf
  collectorkit translate --lang fr "Inactive devices"
  collectorkit validate --token $TOKEN --device 42`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if lang == "" {
				lang = a.cfg.DefaultLanguage
			}
			return a.tr.SetLanguage(lang)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.LogEvent(a.logger, "command completed", "debug", "command", cmd.CommandPath())
		},
	}
	root.PersistentFlags().StringVar(&lang, "lang", "", "output language (en, fr, es, de)")
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		a.versionCmd(),
		a.translateCmd(),
		a.dateCmd(),
		a.csvCmd(),
		a.formatCmd(),
		a.checkCmd(),
		a.encryptCmd(),
		a.decryptCmd(),
		a.directoryCmd(),
		a.storageCmd(),
		a.validateCmd(),
		a.sessionCmd(),
		a.notifyCmd(),
		a.agentCmd(),
		a.metricsCmd(),
	)
	return root
}

func (a *App) print() printer {
	return printer{w: a.out}
}

// databaseURL resolves the directory database. The in-memory default would
// forget everything between two commands, so the CLI swaps it for a SQLite
// file under the user configuration directory. The second result reports
// whether that built-in file is used.
func (a *App) databaseURL() (string, bool, error) {
	if strings.TrimSpace(a.cfg.DatabaseURL) != "" && a.cfg.DatabaseURL != database.DefaultURL {
		return a.cfg.DatabaseURL, false, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", false, fmt.Errorf("directory database: %w", err)
	}
	dir = filepath.Join(dir, "collectorkit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("directory database: %w", err)
	}
	return "sqlite://" + filepath.Join(dir, "directory.db"), true, nil
}

// openRepository connects to the configured database. The built-in SQLite
// file is migrated on the spot since nothing else would do it.
func (a *App) openRepository(ctx context.Context) (*database.DirectoryRepository, *database.DB, error) {
	dsn, builtin, err := a.databaseURL()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.GetDatabaseConnection(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if builtin {
		if err := database.RunMigrations(db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return database.NewDirectoryRepository(db), db, nil
}

func (a *App) openDirectory(ctx context.Context) (*application.DirectoryService, *database.DB, error) {
	repo, db, err := a.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return application.NewDirectoryService(repo, a.cfg.DefaultPageSize, a.cfg.MaxPageSize), db, nil
}

// openStorage builds the client for the configured backend. The returned
// closer is never nil.
func (a *App) openStorage(ctx context.Context) (*storage.Client, func(), error) {
	var (
		backend output.BlobStore
		closer  = func() {}
	)
	switch a.cfg.Storage.Backend {
	case config.BackendGCS:
		s, err := gcs.New(ctx, a.cfg.Storage.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		backend = s
		closer = func() { _ = s.Close() }
	case config.BackendS3:
		s, err := awss3.New(ctx, a.cfg.Storage.Region, a.cfg.Storage.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		backend = s
	default:
		s, err := local.New(a.cfg.Storage.Root)
		if err != nil {
			return nil, nil, err
		}
		backend = s
	}

	client, err := storage.NewClient(backend,
		storage.WithMaxFileSize(a.cfg.MaxFileSize),
		storage.WithAllowedFileTypes(a.cfg.AllowedFileTypes...),
		storage.WithRetry(a.cfg.MaxRetryAttempts, storage.DefaultBackoff),
		storage.WithTimeout(a.cfg.DefaultTimeout),
		storage.WithLogger(a.logger),
	)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return client, closer, nil
}

func (a *App) sessions() (*auth.Manager, error) {
	if a.cfg.SessionSecret == "" {
		return nil, domain.Wrap("session", domain.ErrValidationFailed, errors.New("SESSION_SECRET is not set"))
	}
	return auth.NewManager([]byte(a.cfg.SessionSecret), a.cfg.SessionTimeout)
}

// notifications returns the injected notifier, or one fanning out to every
// channel the configuration enables.
func (a *App) notifications() (output.Notifier, error) {
	if a.notifier != nil {
		return a.notifier, nil
	}
	var channels []notify.Channel
	if a.cfg.SMTP.Host != "" {
		n, err := email.NewNotifier(a.cfg.SMTP, a.cfg.DefaultTimeout)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.Channel{Name: "email", Notifier: n})
	}
	if a.cfg.DiscordWebhookURL != "" {
		n, err := discord.NewWebhookNotifier(a.cfg.DiscordWebhookURL)
		if err != nil {
			return nil, err
		}
		channels = append(channels, notify.Channel{Name: "discord", Notifier: n})
	}
	multi := notify.NewMultiNotifier(channels...)
	if multi.Len() == 0 {
		return nil, domain.Wrap("notify", domain.ErrValidationFailed, errors.New("no notification channel configured (SMTP_HOST or DISCORD_WEBHOOK_URL)"))
	}
	return multi, nil
}
