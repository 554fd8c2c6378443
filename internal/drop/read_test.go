package drop

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPrefix_StopsAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", 1<<20)), 0600))

	data, err := ReadPrefix(path, 100)

	require.NoError(t, err)
	assert.Len(t, data, 101*utf8.UTFMax)
	assert.True(t, strings.HasSuffix(Truncate(string(data), 100), TruncationMarker))
}

func TestReadPrefix_MultibyteStillDetectsTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emoji.txt")
	body := strings.Repeat("😀", 150)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))

	data, err := ReadPrefix(path, 100)

	require.NoError(t, err)
	got := Truncate(string(data), 100)
	assert.Equal(t, strings.Repeat("😀", 100)+TruncationMarker, got)
}

func TestReadPrefix_ShortFileIsWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	require.NoError(t, os.WriteFile(path, []byte("héllo"), 0600))

	data, err := ReadPrefix(path, 100)

	require.NoError(t, err)
	assert.Equal(t, "héllo", string(data))
	assert.Equal(t, "héllo", Truncate(string(data), 100))
}

func TestReadPrefix_Missing(t *testing.T) {
	_, err := ReadPrefix(filepath.Join(t.TempDir(), "missing"), 10)
	assert.True(t, os.IsNotExist(err))
}
