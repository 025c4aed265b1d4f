package clientdata

import (
	"github.com/koshlabs/kosh/pkg/logger"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return logger.New(logger.Config{Level: "error", Pretty: false})
}
