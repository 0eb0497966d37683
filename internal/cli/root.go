package cli

import (
	"os"
	"strings"

	"card-quiz/internal/config"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	port       string
	configPath string
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:           "card-quiz",
		Short:         "Card-triggered quiz devices and their scoring collector",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.AddCommand(newCollectorCmd(&configPath))
	cmd.AddCommand(newDeviceCmd(&configPath))
	return cmd
}

func newCollectorCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collector",
		Short: "Scoring collector and leaderboard",
	}
	cmd.PersistentFlags().StringVar(&port, "port", os.Getenv("PORT"), "web port (overrides server.port)")
	cmd.AddCommand(NewStartCmd(configPath, &port))
	cmd.AddCommand(NewMigrateCmd(configPath))
	cmd.AddCommand(NewAnswerKeyCmd(configPath))
	return cmd
}

// loadConfig reads the config file, falling back to defaults when it does
// not exist, and configures the global logger from it.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	missing := os.IsNotExist(err)
	if missing {
		cfg = config.Default()
	} else if err != nil {
		return cfg, err
	}
	setupLogging(cfg)
	if missing {
		log.Warn().Str("path", path).Msg("config file not found, using defaults")
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) {
	if cfg.Logging.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}
