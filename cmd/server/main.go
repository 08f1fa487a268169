package main

import (
	"os"

	"github.com/rs/zerolog/log"
)

func main() {
	if err := newRootCmd(openStore).Execute(); err != nil {
		log.Error().Err(err).Msg("sortmemo failed")
		os.Exit(1)
	}
}
