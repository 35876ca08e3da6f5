package runtimeinit

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"process-mutex/src/config"
)

func TestBootstrap(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)
	t.Setenv("PROCESS_MUTEX_CODEC", "json")

	rt, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{PortOverride: "9999", HostOverride: "127.0.0.1"},
		Console:     &bytes.Buffer{},
	})
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", rt.Endpoint.Addr())
	assert.Equal(t, "json", rt.Codec.Name())

	g := rt.NewGuard(nil)
	assert.Equal(t, rt.Endpoint, g.Endpoint())
}

func TestBootstrapRejectsBadEndpoint(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{PortOverride: "not-a-port"},
		Console:     &bytes.Buffer{},
	})
	assert.Error(t, err)

	_, err = Bootstrap(Options{
		LoadOptions: config.LoadOptions{HostOverride: "192.0.2.10"},
		Console:     &bytes.Buffer{},
	})
	assert.Error(t, err)
}

func TestBootstrapRejectsBadCodec(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	_, err := Bootstrap(Options{
		LoadOptions: config.LoadOptions{CodecOverride: "gob"},
		Console:     &bytes.Buffer{},
	})
	assert.Error(t, err)
}
