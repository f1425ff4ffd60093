package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"moltbot/internal/bot"
	"moltbot/internal/config"
	"moltbot/internal/logging"
	"moltbot/internal/preflight"
)

var chatCmd = &cobra.Command{
	Use:   "chat <message...>",
	Short: "Route a single message and print the response",
	Long: `Routes one message the same way the interactive prompt does, without
starting the autonomous cycle. Tasks and reminders created this way only live
for the duration of the command.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		b, err := bot.New(bot.Options{Config: cfg})
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), b.Chat(context.Background(), strings.Join(args, " ")))
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out, err := yaml.Marshal(cfg.Redacted())
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the pre-flight checks and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		results := preflight.NewChecker(cfg).RunAll()
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%-8s %s: %s\n", r.Status, r.Name, r.Message)
		}
		if preflight.HasFailures(results) {
			return errors.New("pre-flight checks failed")
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "moltbot %s\n", Version)
	},
}

// loadConfig reads .env, initialises logging and loads the configuration
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("⚠️  Failed to load .env file: %v", err)
	}

	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
