package log

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvDebug turns on debug logging when set to a non-empty value.
const EnvDebug = "HITSTUB_DEBUG"

var Logger *zap.Logger

func init() {
	var err error
	Logger, err = New(os.Getenv(EnvDebug) != "")

	if err != nil {
		panic(fmt.Sprintf("failed to init default logger: %v", err))
	}
}

// New returns a development logger, quiet below warnings unless debug is
// set.
func New(debug bool) (*zap.Logger, error) {
	config := zap.NewDevelopmentConfig()
	if !debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	return config.Build()
}
