package main

import (
	"github.com/rs/zerolog/log"

	"github.com/PrejudiceDDH/voteensemble/internal/utils/logger"
)

func main() {
	logger.Init()

	if err := Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}
