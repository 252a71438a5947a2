package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"monthly/internal/backend"
	"monthly/internal/cli"
	"monthly/internal/core"
	"monthly/internal/services"
)

var version = "dev"

// skipStore marks commands that run without opening the store.
const skipStore = "skip-store"

// app is opened lazily by the root command before any subcommand runs.
type app struct {
	logger  *slog.Logger
	backend *backend.BackendResult
	svc     *backend.Services
	now     func() time.Time
	asJSON  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{now: time.Now}
	defer a.close()

	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "monthly",
		Short: "Track the payments due each month",
		Long: `monthly keeps a list of recurring and one-off payments, groups them,
rolls recurring payments over to the next month and turns planned
project items into payments.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipStore] != "" {
				return nil
			}
			return a.open(cmd)
		},
	}

	root.PersistentFlags().BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")

	root.AddCommand(paymentsCmd(a))
	root.AddCommand(groupingCmd(a))
	root.AddCommand(projectsCmd(a))
	root.AddCommand(themeCmd(a))
	root.AddCommand(versionCmd())
	return root
}

func (a *app) open(cmd *cobra.Command) error {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	a.logger = cli.SetupLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, "cli")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(cmd.Context(), backendCfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	a.backend = res
	a.svc = backend.NewServices(cmd.Context(), res.Store, services.WithLogger(a.logger))
	return nil
}

func (a *app) close() {
	if a.backend == nil {
		return
	}
	if err := a.backend.Cleanup(); err != nil && a.logger != nil {
		a.logger.Warn("Failed to close store", "error", err)
	}
	a.backend = nil
}

func (a *app) today() core.Date {
	return core.DateOf(a.now())
}

func (a *app) printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipStore: "true"},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "monthly %s\n", version)
		},
	}
}
