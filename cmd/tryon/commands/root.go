package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/fitly/tryon/internal/config"
	"github.com/fitly/tryon/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LogLevel is the level of the default logger, set from --log-level.
var LogLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:          "tryon",
	Short:        "Virtual try-on - garment composition tasks",
	Long:         `Submits a user photo and selected garments to the virtual try-on service, tracks the task and keeps a history of results.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setLogLevel(viper.GetString("log-level"))
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("service-url", "http://localhost:8000", "Virtual try-on service base URL")
	rootCmd.PersistentFlags().String("history-backend", config.BackendSQLite, "History backend (sqlite, file, memory, mongo)")
	rootCmd.PersistentFlags().String("history-path", ".artifacts/history.db", "History sqlite database or JSON file")
	rootCmd.PersistentFlags().String("fsm-db-path", ".artifacts/fsm", "FSM BoltDB path")
	rootCmd.PersistentFlags().String("s3-bucket", "", "S3 bucket for bare garment image keys")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "S3 region")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	viper.BindPFlag("service.base-url", rootCmd.PersistentFlags().Lookup("service-url"))
	viper.BindPFlag("history.backend", rootCmd.PersistentFlags().Lookup("history-backend"))
	viper.BindPFlag("history.path", rootCmd.PersistentFlags().Lookup("history-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("s3.bucket", rootCmd.PersistentFlags().Lookup("s3-bucket"))
	viper.BindPFlag("s3.region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func setLogLevel(name string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return errors.Wrap(err, "invalid log level")
	}
	LogLevel.Set(level)
	return nil
}

// loadConfig loads and validates configuration
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config invalid")
	}
	return cfg, nil
}
