// Package cli contains the atim command-line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/atim-dev/atim/internal/config"
	"github.com/atim-dev/atim/internal/logger"
	"github.com/atim-dev/atim/internal/output"
)

// BuildInfo is stamped at build time via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// app carries state shared by every command of one invocation.
type app struct {
	build   BuildInfo
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

// NewRootCommand builds a fresh command tree.
func NewRootCommand(build BuildInfo) *cobra.Command {
	a := &app{build: build, v: viper.New()}

	root := &cobra.Command{
		Use:   "atim",
		Short: "Trend-aware inventory analysis",
		Long: `atim cross-references an inventory CSV against keyword interest trends,
ranks the trends by confidence and writes restocking recommendations.

Example usage:
  atim analyze inventory.csv                  # Rank trends and print recommendations
  atim analyze inventory.csv --html out.html  # Also write the HTML report
  atim serve                                  # Start the web front end
  atim reports list                           # Show archived reports`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("color", "", "color output: auto, always, never")

	_ = a.v.BindPFlag("logging.level", root.PersistentFlags().Lookup("log-level"))
	_ = a.v.BindPFlag("output.color", root.PersistentFlags().Lookup("color"))

	root.AddCommand(
		a.newAnalyzeCommand(),
		a.newServeCommand(),
		a.newReportsCommand(),
		a.newVersionCommand(),
	)
	return root
}

// Execute runs the CLI with os.Args.
func Execute(build BuildInfo) error {
	return NewRootCommand(build).Execute()
}

func (a *app) initConfig() error {
	cfg, err := config.Load(a.cfgFile, a.v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	if a.cfgFile != "" {
		logger.Debug("Configuration loaded from %s", a.cfgFile)
	}
	return nil
}

func (a *app) printer(cmd *cobra.Command) *output.Printer {
	// Validate has already checked the mode.
	mode, _ := output.ParseColorMode(a.cfg.Output.Color)
	return output.NewPrinterWithWriters(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.ResolveColors(mode))
}
