package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_UTF8(t *testing.T) {
	var d Decoder
	got, err := d.Decode([]byte("token=ABC"))
	require.NoError(t, err)
	assert.Equal(t, "token=ABC", got)

	got, err = d.Decode([]byte{'a', 0xff, 'b'})
	require.NoError(t, err)
	assert.Equal(t, "a�b", got)
}

func TestDecode_Strict(t *testing.T) {
	d, err := New("utf-8", true)
	require.NoError(t, err)
	_, err = d.Decode([]byte{'a', 0xff})
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestDecode_Latin1(t *testing.T) {
	d, err := New("latin1", false)
	require.NoError(t, err)
	got, err := d.Decode([]byte{'c', 'a', 'f', 0xe9})
	require.NoError(t, err)
	assert.Equal(t, "café", got)
}

func TestNew_UnknownCharsetFallsBack(t *testing.T) {
	d, err := New("klingon", false)
	assert.Error(t, err)
	assert.Equal(t, UTF8, d.Charset())
}

func TestDecode_AutoKeepsValidUTF8(t *testing.T) {
	d, err := New("auto", false)
	require.NoError(t, err)
	got, err := d.Decode([]byte("héllo"))
	require.NoError(t, err)
	assert.Equal(t, "héllo", got)
}
