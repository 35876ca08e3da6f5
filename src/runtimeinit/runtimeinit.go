package runtimeinit

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"process-mutex/src/codec"
	"process-mutex/src/config"
	"process-mutex/src/logutil"
	"process-mutex/src/singleinstance"
)

type Options struct {
	LoadOptions config.LoadOptions
	// Console overrides where human-readable logs go (stderr when nil).
	Console io.Writer
}

// Runtime is everything a command needs after startup.
type Runtime struct {
	Config   *config.Config
	Log      zerolog.Logger
	Endpoint singleinstance.Endpoint
	Codec    codec.Codec
}

func Bootstrap(opts Options) (*Runtime, error) {
	cfg, err := config.LoadWithOptions(opts.LoadOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logutil.Setup(logutil.Options{
		Level:             cfg.LogLevel,
		EnableFileLogging: cfg.EnableFileLogging,
		Console:           opts.Console,
	})

	ep, err := singleinstance.NewEndpoint(cfg.Host, cfg.Port)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	cd, err := codec.ByName(cfg.Codec)
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESS_MUTEX_CODEC: %w", err)
	}

	log.Debug().
		Str("endpoint", ep.Addr()).
		Str("codec", cd.Name()).
		Dur("timeout", cfg.Timeout).
		Int("stale_retries", cfg.StaleRetries).
		Msg("runtime initialized")

	return &Runtime{Config: cfg, Log: log, Endpoint: ep, Codec: cd}, nil
}

// NewGuard builds a guard from the loaded configuration.
func (rt *Runtime) NewGuard(onPayload func(string)) *singleinstance.Guard {
	return singleinstance.New(rt.Endpoint, onPayload, singleinstance.Options{
		Timeout:      rt.Config.Timeout,
		StaleRetries: rt.Config.StaleRetries,
		StaleBackoff: rt.Config.StaleBackoff,
		Codec:        rt.Codec,
		Logger:       &rt.Log,
	})
}
