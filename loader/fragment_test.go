package loader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFragmentTextShortInput(t *testing.T) {
	fragments := FragmentText("short text", 2000, 500)
	require.Len(t, fragments, 1)
	assert.Equal(t, 0, fragments[0].Index)
	assert.Equal(t, "short text", fragments[0].Text)
	assert.Equal(t, 0, fragments[0].Start)
	assert.Equal(t, 10, fragments[0].End)
}

func TestFragmentTextOverlappingWindows(t *testing.T) {
	text := strings.Repeat("a", 5000)
	fragments := FragmentText(text, 2000, 500)

	require.Len(t, fragments, 3)
	assert.Equal(t, 0, fragments[0].Start)
	assert.Equal(t, 2000, fragments[0].End)
	assert.Equal(t, 1500, fragments[1].Start)
	assert.Equal(t, 3500, fragments[1].End)
	assert.Equal(t, 3000, fragments[2].Start)
	assert.Equal(t, 5000, fragments[2].End)

	for i, f := range fragments {
		assert.Equal(t, i, f.Index)
	}
}

func TestFragmentTextBoundaryContentSurvives(t *testing.T) {
	// A word straddling the window boundary must appear whole in the
	// overlapping fragment.
	text := strings.Repeat("x", 95) + "boundary" + strings.Repeat("y", 100)
	fragments := FragmentText(text, 100, 20)

	found := false
	for _, f := range fragments {
		if strings.Contains(f.Text, "boundary") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestFragmentTextDropsBlankChunks(t *testing.T) {
	text := strings.Repeat("a", 100) + strings.Repeat(" ", 300)
	fragments := FragmentText(text, 100, 20)

	for _, f := range fragments {
		assert.NotEmpty(t, strings.TrimSpace(f.Text))
	}
	// Indexes stay contiguous even with dropped windows.
	for i, f := range fragments {
		assert.Equal(t, i, f.Index)
	}
}

func TestFragmentTextEmpty(t *testing.T) {
	assert.Nil(t, FragmentText("", 2000, 500))
	assert.Nil(t, FragmentText("text", 0, 0))
}

func TestFingerprintIsDeterministic(t *testing.T) {
	a := Fingerprint([]byte("same content"))
	b := Fingerprint([]byte("same content"))
	c := Fingerprint([]byte("other content"))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
