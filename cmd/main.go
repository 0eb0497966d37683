package main

import (
	"os"

	"card-quiz/internal/cli"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Error().Err(err).Msg("card-quiz failed")
		os.Exit(1)
	}
}
