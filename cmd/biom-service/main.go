package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/mybiom/biom/biomservice"
)

func main() {
	if err := biomservice.Run(); err != nil {
		log.Error().Err(err).Msg("biom-service exited with error")
		os.Exit(1)
	}
}
