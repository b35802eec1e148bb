// Package cmd provides the funcscan command-line interface.
package cmd

import (
	"errors"
	"fmt"
	"funcscan/internal/application/common/slogger"
	"funcscan/internal/config"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g. FUNCSCAN_OUTPUT_FORMAT.
const EnvPrefix = "FUNCSCAN"

//nolint:gochecknoglobals // Standard Cobra CLI pattern
var (
	cfg     *config.Config
	rootCmd = newRootCmd()
)

// flagBindings maps configuration keys to the flags that override them.
//
//nolint:gochecknoglobals // read-only table
var flagBindings = map[string]string{
	"log.level":                "log-level",
	"log.format":               "log-format",
	"output.format":            "format",
	"analysis.concurrency":     "concurrency",
	"analysis.require_summary": "require-summary",
	"sink.postgres":            "sink-postgres",
	"sink.nats":                "sink-nats",
}

func newRootCmd() *cobra.Command {
	var showVersion bool

	cmd := &cobra.Command{
		Use:   "funcscan",
		Short: "Inventory function declarations and their documented exceptions",
		Long: `funcscan parses TypeScript and JavaScript sources and lists every named
function declaration, nested declarations included, with the exception types
its JSDoc comment declares through @throws tags.

Reports can be printed as text, JSON or YAML and optionally stored in
PostgreSQL or published on a NATS subject.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if showVersion {
				return runVersion(cmd, false)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default: ./configs/funcscan.yaml or ./funcscan.yaml)")
	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "Log format (json, text)")
	cmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")

	return cmd
}

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newVersionCmd(), newAnalyzeCmd())
}

// initConfig loads the configuration for cmd and configures logging from it.
func initConfig(cmd *cobra.Command) error {
	loaded, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := slogger.Configure(cfg.Log.Level, cfg.Log.Format, cfg.Log.Output); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	return nil
}

// loadConfig merges defaults, the config file, FUNCSCAN_* environment
// variables and explicitly set flags, in increasing order of precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()
	config.SetDefaults(v)

	var cfgFile string
	if flag := cmd.Flag("config"); flag != nil {
		cfgFile = flag.Value.String()
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("funcscan")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for key, name := range flagBindings {
		flag := cmd.Flag(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}

	return config.Load(v)
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}
