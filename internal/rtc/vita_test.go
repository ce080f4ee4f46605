package rtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vita49go/vrtbridge/vrt"
)

func TestParseVITASignalData(t *testing.T) {
	p := vrt.NewSignalDataWithStreamID(0x04000008)
	require.NoError(t, p.SetPayload([]byte{1, 2, 3, 4}))
	b, err := p.Encode()
	require.NoError(t, err)

	v, err := parseVITA(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04000008), v.StreamID)
	assert.Equal(t, []byte{1, 2, 3, 4}, v.Payload)
	assert.False(t, v.HasClassID)
	assert.False(t, v.HasTrailer)
}

func TestParseVITATrimsTrailingPadding(t *testing.T) {
	p := vrt.NewSignalDataWithStreamID(1)
	require.NoError(t, p.SetPayload([]byte{9, 9, 9, 9}))
	b, err := p.Encode()
	require.NoError(t, err)

	padded := append(append([]byte(nil), b...), 0, 0, 0, 0)
	v, err := parseVITA(padded)
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9, 9}, v.Payload)
}

func TestParseVITAShort(t *testing.T) {
	_, err := parseVITA([]byte{0, 1})
	assert.ErrorIs(t, err, errShort)
}
