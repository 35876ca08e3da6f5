package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frame struct {
	Payload []byte
	PID     int
}

func TestByName(t *testing.T) {
	c, err := ByName("")
	require.NoError(t, err)
	assert.Equal(t, NameMsgpack, c.Name())

	c, err = ByName(" JSON ")
	require.NoError(t, err)
	assert.Equal(t, NameJSON, c.Name())

	_, err = ByName("gob")
	assert.Error(t, err)
}

func TestCodecsPreservePayloadBytes(t *testing.T) {
	payload := []byte("armory://tx/abc123?memo=line1\nline2\x00é\xff\xfe")
	for _, c := range []Codec{Msgpack(), JSON()} {
		t.Run(c.Name(), func(t *testing.T) {
			data, err := c.Marshal(frame{Payload: payload, PID: 42})
			require.NoError(t, err)

			var out frame
			require.NoError(t, c.Unmarshal(data, &out))
			assert.Equal(t, payload, out.Payload)
			assert.Equal(t, 42, out.PID)
		})
	}
}
