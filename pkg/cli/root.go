// Package cli implements modelctl, the command-line surface of the model
// management client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mhrivnak/modeldash/pkg/client"
	"github.com/mhrivnak/modeldash/pkg/config"
	"github.com/mhrivnak/modeldash/pkg/guard"
	"github.com/mhrivnak/modeldash/pkg/session"
)

// viewAnnotation names the dashboard view a command stands for. Commands that
// carry one are checked by the route guard before they run.
const viewAnnotation = "modeldash/view"

// ErrLoginRequired is returned for protected commands without a session.
var ErrLoginRequired = errors.New("login required: run 'modelctl login' first")

// app holds what PersistentPreRunE resolves for the command that runs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	store  session.Store
	guard  *guard.Guard
	client *client.Client
	close  func() error
}

func (a *app) shutdown() {
	if a.close != nil {
		if err := a.close(); err != nil {
			a.logger.Warn("failed to close session store", "error", err)
		}
		a.close = nil
	}
}

// Execute runs the CLI.
func Execute() int {
	rootCmd, a := newRootCmd(viper.New())
	defer a.shutdown()

	if err := rootCmd.Execute(); err != nil {
		if getOutputFormat(rootCmd) == "json" {
			errObj := map[string]any{"error": err.Error()}
			var cerr *client.Error
			if errors.As(err, &cerr) {
				errObj["kind"] = cerr.Kind.String()
				errObj["http_status"] = cerr.Status
				errObj["request_id"] = cerr.RequestID
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(v *viper.Viper) (*cobra.Command, *app) {
	a := &app{logger: slog.Default()}
	var output string

	rootCmd := &cobra.Command{
		Use:           "modelctl",
		Short:         "Model management CLI",
		Long:          "Command-line client for the model management API: log in, manage models, deployments and organizations.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateOutputFormat(output); err != nil {
				return err
			}
			if err := a.setup(cmd.Context(), v, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return a.authorize(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("api-url", "", "API base URL (overrides api.base_url)")
	flags.Duration("timeout", 0, "Request timeout (overrides api.timeout)")
	flags.String("session-backend", "", "Session store: file, sqlite, postgres or memory")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.StringVarP(&output, "output", "o", "table", "Output format (table, json)")

	_ = v.BindPFlag("api.base_url", flags.Lookup("api-url"))
	_ = v.BindPFlag("api.timeout", flags.Lookup("timeout"))
	_ = v.BindPFlag("session.backend", flags.Lookup("session-backend"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newRegisterCmd(a))
	rootCmd.AddCommand(newStatusCmd(a))
	rootCmd.AddCommand(newModelsCmd(a))
	rootCmd.AddCommand(newOrgCmd(a))

	return rootCmd, a
}

// setup loads configuration and wires store, guard and client. It runs once
// per process.
func (a *app) setup(ctx context.Context, v *viper.Viper, stderr io.Writer) error {
	if a.client != nil {
		return nil
	}

	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = cfg.NewLogger(stderr)

	store, closeStore, err := session.Open(ctx, cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	a.store = store
	a.close = closeStore

	a.guard = guard.New(store, guard.WithLogger(a.logger))
	a.guard.OnRedirect(guard.NavigatorFunc(func(_ context.Context, _ string) {
		fmt.Fprintln(stderr, "Session cleared by the server; run 'modelctl login' to sign in.")
	}))

	a.client, err = client.New(cfg.API.BaseURL, store,
		client.WithTimeout(cfg.API.Timeout),
		client.WithLogger(a.logger),
		client.WithAuthFailureHandler(a.guard),
	)
	return err
}

// authorize runs the route guard for commands that stand for a protected view.
func (a *app) authorize(cmd *cobra.Command) error {
	view := ""
	for c := cmd; c != nil && view == ""; c = c.Parent() {
		view = c.Annotations[viewAnnotation]
	}
	if view == "" {
		return nil
	}
	if decision := a.guard.Evaluate(cmd.Context(), view); !decision.Allowed {
		return ErrLoginRequired
	}
	return nil
}
