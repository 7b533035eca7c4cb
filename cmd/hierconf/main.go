// Package main implements the hierconf command line tool, which manages
// configuration values that programs, clinics and locations inherit from
// one another.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/phrazzld/hierconf/internal/config"
	"github.com/phrazzld/hierconf/internal/platform/logger"
	"github.com/spf13/cobra"
)

// skipAutoMigrate marks commands that manage the schema themselves.
const skipAutoMigrate = "skip-auto-migrate"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}

// cli carries flag values and the application between cobra hooks.
type cli struct {
	configPath  string
	metricsFile string
	app         *application
}

// run executes one command line and releases the application afterwards,
// whether or not the command succeeded.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	return errors.Join(err, c.shutdown())
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "hierconf",
		Short: "Hierarchical configuration for programs, clinics and locations",
		Long: `hierconf stores configuration values at program, clinic and location
scope. A location inherits from its clinic, a clinic from its program and a
program from the registry default of each key.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.open,
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringVar(&c.metricsFile, "metrics-file", "",
		"write Prometheus metrics to this file when the command finishes")

	root.AddCommand(
		c.migrateCmd(),
		c.definitionsCmd(),
		c.orgCmd(),
		c.setCmd(),
		c.getCmd(),
		c.deleteCmd(),
		c.chainCmd(),
		c.diffCmd(),
		c.validateCmd(),
		c.historyCmd(),
		c.changesCmd(),
		c.effectiveCmd(),
		c.overridesCmd(),
		c.treeCmd(),
		c.providersCmd(),
		c.propagateCmd(),
		c.importCmd(),
	)
	return root
}

// open loads configuration, sets up logging and wires the application.
// Unless the command opts out, pending migrations are applied first.
func (c *cli) open(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	ctx := logger.WithLogger(cmd.Context(), log)
	cmd.SetContext(ctx)

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return err
	}
	c.app = app

	if cmd.Annotations[skipAutoMigrate] == "" {
		if err := app.migrate(ctx, "up"); err != nil {
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}
	return nil
}

func (c *cli) shutdown() error {
	if c.app == nil {
		return nil
	}
	var errs []error
	if c.metricsFile != "" {
		errs = append(errs, c.app.writeMetrics(c.metricsFile))
	}
	errs = append(errs, c.app.close())
	c.app = nil
	return errors.Join(errs...)
}
