package diff

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/conflictfix/internal/markers"
)

func TestFromRegions(t *testing.T) {
	content := []byte("a\n<<<<<<< HEAD\nlocal\n=======\nincoming\n>>>>>>> feature\nb\n<<<<<<< HEAD\nx\ny\n=======\n>>>>>>> other\nc\n")
	regions := markers.Find(content)
	require.Len(t, regions, 2)

	hunks := FromRegions(regions)
	require.Len(t, hunks, 2)

	first := hunks[0]
	assert.Equal(t, "@@ -2,5 +2,1 @@", first.Header())
	assert.Equal(t, []Line{
		{Type: LineRemoved, Content: "<<<<<<< HEAD"},
		{Type: LineRemoved, Content: "local"},
		{Type: LineRemoved, Content: "======="},
		{Type: LineContext, Content: "incoming"},
		{Type: LineRemoved, Content: ">>>>>>> feature"},
	}, first.Lines)

	// The first region shrank the file by four lines; the second keeps nothing.
	second := hunks[1]
	assert.Equal(t, 8, second.SourceStart)
	assert.Equal(t, 5, second.SourceCount)
	assert.Equal(t, 3, second.TargetStart)
	assert.Equal(t, 0, second.TargetCount)
	assert.Len(t, second.Lines, 5)
}

func TestFromRegions_Empty(t *testing.T) {
	assert.Empty(t, FromRegions(nil))
}

func TestLineString(t *testing.T) {
	assert.Equal(t, "-gone", Line{Type: LineRemoved, Content: "gone"}.String())
	assert.Equal(t, " kept", Line{Type: LineContext, Content: "kept"}.String())
}

func TestWrite(t *testing.T) {
	orig := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = orig })

	content := []byte("<<<<<<< HEAD\nlocal\n=======\nincoming\n>>>>>>> feature\n")
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "a.ts", FromRegions(markers.Find(content))))

	want := "--- a.ts\n+++ a.ts\n" +
		"@@ -1,5 +1,1 @@\n" +
		"-<<<<<<< HEAD\n" +
		"-local\n" +
		"-=======\n" +
		" incoming\n" +
		"->>>>>>> feature\n"
	assert.Equal(t, want, buf.String())
}
