// Command fintrackctl is the operator CLI: seeding, reports, exports, charts,
// scripted transaction entry and development tokens.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

// app carries what every command shares. The backend is opened on first use
// so commands like token never touch storage.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.Result
	user    string
}

func (a *app) service(ctx context.Context) (*services.TransactionService, error) {
	if a.backend == nil {
		res, err := cli.InitBackend(ctx, a.logger, a.cfg)
		if err != nil {
			return nil, err
		}
		a.backend = res
	}
	return a.backend.Service, nil
}

func (a *app) close() {
	if a.backend == nil || a.backend.Cleanup == nil {
		return
	}
	if err := a.backend.Cleanup(); err != nil {
		a.logger.Warn("Backend cleanup failed", "error", err)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "fintrackctl",
		Short:         "Operate a fintrack installation from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cli.SetupLoggerTo(cfg, applog.ComponentReport, os.Stderr)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.user, "user", "u", "", "User id the command acts for")

	root.AddCommand(
		newSeedCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newChartCmd(a),
		newAddCmd(a),
		newEditCmd(a),
		newTokenCmd(a),
	)
	return root
}

func (a *app) requireUser() error {
	if a.user == "" {
		return fmt.Errorf("--user is required")
	}
	return nil
}

func main() {
	a := &app{}
	err := newRootCmd(a).Execute()
	a.close()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
