package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Veraticus/budgetbuddy/internal/cli"
	"github.com/Veraticus/budgetbuddy/internal/common"
	"github.com/Veraticus/budgetbuddy/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	version  = "dev"
	settings config.Settings
	rootCmd  = &cobra.Command{
		Use:   "budgetbuddy",
		Short: "💸 Log expenses in plain language",
		Long: `budgetbuddy turns sentences like "add thirty dollars for groceries" into
categorized expense records, asking a follow-up question when the amount or
category is unclear.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/budgetbuddy/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database path (default: $HOME/.config/budgetbuddy/budgetbuddy.db)")

	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(expensesCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	ctx, stop := cli.NewInterruptHandler(os.Stderr).HandleInterrupts(context.Background())

	err := rootCmd.ExecuteContext(ctx)
	stop()

	if err != nil {
		var userErr *common.UserError
		switch {
		case errors.Is(err, errReported):
		case errors.As(err, &userErr):
			fmt.Fprintln(os.Stderr, cli.FormatError(userErr.UserMessage))
		default:
			fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		}
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnvFiles(".env", filepath.Join(config.DefaultDir(), ".env")); err != nil {
		return err
	}

	v := viper.GetViper()
	config.SetDefaults(v)
	if err := readConfigFile(v, cfgFile); err != nil {
		return err
	}
	config.BindEnv(v)

	s, err := config.Load(v)
	if err != nil {
		return err
	}

	if err := common.SetupLogger(s.Logging.Level, s.Logging.Format); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	settings = s

	slog.Debug("configuration loaded",
		"config_file", v.ConfigFileUsed(),
		"database", s.Database.Path,
		"provider", s.LLM.Provider)
	return nil
}

func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(config.DefaultDir())
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && path == "" {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "budgetbuddy %s\n", version)
		},
	}
}
