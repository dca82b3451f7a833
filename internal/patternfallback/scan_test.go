package patternfallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/types"
)

func TestScanFindsMatchesAcrossFiles(t *testing.T) {
	s, err := New(32)
	require.NoError(t, err)

	files := map[types.FileID][]byte{
		1: []byte("TODO: fix this\nfine line\n"),
		2: []byte("nothing here\n"),
		3: []byte("another TODO: item\n"),
	}

	got, err := s.Scan("TODO:", false, files)
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, m := range got {
		assert.True(t, m.Fallback)
	}
}

func TestScanReportsLineNumbers(t *testing.T) {
	s, err := New(32)
	require.NoError(t, err)

	files := map[types.FileID][]byte{
		1: []byte("one\ntwo\nneedle\nfour\n"),
	}
	got, err := s.Scan("needle", false, files)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Line)
}

func TestScanCaseInsensitive(t *testing.T) {
	s, err := New(32)
	require.NoError(t, err)

	files := map[types.FileID][]byte{1: []byte("Needle in a haystack\n")}
	got, err := s.Scan("needle", true, files)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestScanInvalidPatternReturnsError(t *testing.T) {
	s, err := New(32)
	require.NoError(t, err)

	_, err = s.Scan("(unterminated", false, map[types.FileID][]byte{1: []byte("x")})
	assert.Error(t, err)
}

func TestScanCachesCompiledPattern(t *testing.T) {
	s, err := New(1)
	require.NoError(t, err)
	files := map[types.FileID][]byte{1: []byte("abc\n")}

	_, err = s.Scan("a.c", false, files)
	require.NoError(t, err)
	statsBefore := s.compiled.Stats()

	_, err = s.Scan("a.c", false, files)
	require.NoError(t, err)
	statsAfter := s.compiled.Stats()

	assert.Greater(t, statsAfter.Hits, statsBefore.Hits)
}
