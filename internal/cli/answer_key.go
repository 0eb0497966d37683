package cli

import (
	"fmt"
	"os"

	"card-quiz/internal/infra/document"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewAnswerKeyCmd manages the answer key offline, with the collector stopped.
func NewAnswerKeyCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "answer-key",
		Short: "Manage the answer key",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Replace the answer key from a JSON file and rescore the leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			key, err := document.DecodeAnswerKey(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			collector, b, err := newCollector(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			saved, err := collector.SaveAnswerKey(cmd.Context(), key)
			if err != nil {
				return err
			}
			log.Info().Uint64("version", saved.Version).Str("file", args[0]).Msg("answer key imported")
			return nil
		},
	})
	return cmd
}
