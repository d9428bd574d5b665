package log

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Logger = zerolog.Logger

func New(env string) Logger {
	level := zerolog.InfoLevel
	if env == "development" || env == "test" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
		level = zerolog.DebugLevel
	}
	return log.Level(level)
}
