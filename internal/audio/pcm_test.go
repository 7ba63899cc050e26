package audio_test

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mythos-server/internal/audio"
)

// u16 converts an int16 sample to its uint16 bit pattern; a plain
// constant conversion of a negative value does not compile.
func u16(v int16) uint16 { return uint16(v) }

func TestDecodePCM16(t *testing.T) {
	t.Run("Mono samples are normalized to float32", func(t *testing.T) {
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint16(raw[0:], u16(0))
		binary.LittleEndian.PutUint16(raw[2:], u16(16384))
		binary.LittleEndian.PutUint16(raw[4:], u16(-16384))
		binary.LittleEndian.PutUint16(raw[6:], u16(-32768))

		buf, err := audio.DecodePCM16(raw, audio.SampleRate, 1)
		require.NoError(t, err)

		require.Len(t, buf.Channels, 1)
		assert.Equal(t, []float32{0, 0.5, -0.5, -1}, buf.Channels[0])
		assert.Equal(t, 4, buf.Frames())
		assert.Equal(t, raw, buf.Raw)
	})

	t.Run("Stereo samples are deinterleaved", func(t *testing.T) {
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint16(raw[0:], u16(16384))  // L0
		binary.LittleEndian.PutUint16(raw[2:], u16(-16384)) // R0
		binary.LittleEndian.PutUint16(raw[4:], u16(0))      // L1
		binary.LittleEndian.PutUint16(raw[6:], u16(16384))  // R1

		buf, err := audio.DecodePCM16(raw, audio.SampleRate, 2)
		require.NoError(t, err)

		require.Len(t, buf.Channels, 2)
		assert.Equal(t, []float32{0.5, 0}, buf.Channels[0])
		assert.Equal(t, []float32{-0.5, 0.5}, buf.Channels[1])
		assert.Equal(t, 2, buf.Frames())
	})

	t.Run("Empty payload is rejected", func(t *testing.T) {
		_, err := audio.DecodePCM16(nil, audio.SampleRate, 1)
		assert.ErrorIs(t, err, audio.ErrEmptyPayload)
	})

	t.Run("Odd payload size is rejected", func(t *testing.T) {
		_, err := audio.DecodePCM16([]byte{1, 2, 3}, audio.SampleRate, 1)
		assert.ErrorIs(t, err, audio.ErrOddPayloadSize)
	})
}

func TestDecodeBase64PCM16(t *testing.T) {
	t.Run("Valid payload decodes", func(t *testing.T) {
		raw := make([]byte, 4)
		binary.LittleEndian.PutUint16(raw[0:], u16(16384))
		binary.LittleEndian.PutUint16(raw[2:], u16(-16384))
		payload := base64.StdEncoding.EncodeToString(raw)

		buf, err := audio.DecodeBase64PCM16(payload, audio.SampleRate, 1)
		require.NoError(t, err)
		assert.Equal(t, []float32{0.5, -0.5}, buf.Channels[0])
	})

	t.Run("Invalid base64 is rejected", func(t *testing.T) {
		_, err := audio.DecodeBase64PCM16("не base64!", audio.SampleRate, 1)
		assert.Error(t, err)
	})
}

func TestBufferDuration(t *testing.T) {
	// Секунда звука при 24 кГц
	raw := make([]byte, audio.SampleRate*2)
	buf, err := audio.DecodePCM16(raw, audio.SampleRate, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Second, buf.Duration())

	half := make([]byte, audio.SampleRate)
	buf, err = audio.DecodePCM16(half, audio.SampleRate, 1)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, buf.Duration())
}
