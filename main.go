package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"libflow/cmd"
)

func main() {
	if err := cmd.Start(); err != nil {
		log.Error().Err(err).Msg("libflow exited")
		os.Exit(1)
	}
}
