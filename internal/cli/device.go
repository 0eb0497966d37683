package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"card-quiz/internal/config"
	"card-quiz/internal/device"
	"card-quiz/internal/transport/client"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDeviceCmd(configPath *string) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Quiz station device",
	}
	run := &cobra.Command{
		Use:   "run",
		Short: "Run a quiz station driven by console commands on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if name != "" {
				cfg.Device.Name = name
			}
			return runDevice(cmd.Context(), cfg.Device)
		},
	}
	run.Flags().StringVar(&name, "name", "", "participant name sent with each run (overrides device.name)")
	cmd.AddCommand(run)
	return cmd
}

func runDevice(ctx context.Context, cfg config.DeviceConfig) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := device.NewFileAnswerStore(cfg.AnswerDir)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	console := device.NewConsole()
	indicator := device.LogIndicator{}

	promptDefaults := device.DefaultPromptConfig()
	prompt := device.NewAnswerPrompt(console, clock, device.PromptConfig{
		PollInterval: config.Duration(cfg.Prompt.PollInterval, promptDefaults.PollInterval),
		Debounce:     config.Duration(cfg.Prompt.Debounce, promptDefaults.Debounce),
		MaxWait:      config.Duration(cfg.Prompt.MaxWait, promptDefaults.MaxWait),
	})

	clientDefaults := client.DefaultConfig()
	submitter := client.NewSubmitter(client.Config{
		BaseURL:        cfg.CollectorURL,
		Attempts:       cfg.Attempts,
		BaseDelay:      config.Duration(cfg.BaseDelay, clientDefaults.BaseDelay),
		AttemptTimeout: config.Duration(cfg.AttemptTimeout, clientDefaults.AttemptTimeout),
	}, nil)

	session := device.NewSession(cfg.Name, store, prompt, submitter,
		device.WithClock(clock),
		device.WithIndicator(indicator),
	)

	runnerDefaults := device.DefaultRunnerConfig()
	runner := device.NewRunner(console, session, clock, indicator, device.RunnerConfig{
		PollInterval: config.Duration(cfg.PollInterval, runnerDefaults.PollInterval),
		RescanGuard:  config.Duration(cfg.RescanGuard, runnerDefaults.RescanGuard),
	})

	// stdin reads cannot be interrupted, so the feeder is not joined on shutdown.
	go func() {
		if err := console.Feed(ctx, os.Stdin); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("console input")
		}
		log.Info().Msg("console input closed")
	}()

	log.Info().
		Str("name", cfg.Name).
		Str("collector", cfg.CollectorURL).
		Str("state", session.State().String()).
		Msg("device ready")
	return runner.Run(ctx)
}
