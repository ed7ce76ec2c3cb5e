package contract

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPlainLabel(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{name: "nothing covered", input: 0.0, expected: LowValue},
		{name: "just before partial", input: 24.9, expected: LowValue},
		{name: "exactly partial", input: 25.0, expected: PartialValue},
		{name: "just before high", input: 74.9, expected: PartialValue},
		{name: "exactly high", input: 75.0, expected: HighValue},
		{name: "almost complete", input: 99.99, expected: HighValue},
		{name: "complete", input: 100.0, expected: CompleteValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetPlainLabel(tt.input))
		})
	}
}

func TestGetColorLabelKeepsText(t *testing.T) {
	assert.Contains(t, GetColorLabel(100), CompleteValue)
	assert.Contains(t, GetColorLabel(10), LowValue)
}

func TestSelectOutputFile(t *testing.T) {
	f, err := SelectOutputFile("")
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, f)

	path := filepath.Join(t.TempDir(), "out.txt")
	f, err = SelectOutputFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.FileExists(t, path)
}

func TestLogWarn(t *testing.T) {
	var buf bytes.Buffer
	prev := warnOutput
	warnOutput = &buf
	defer func() { warnOutput = prev }()

	LogWarn("failed to close store", errors.New("database is locked"))
	assert.Equal(t, "Warning failed to close store: database is locked\n", buf.String())
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "a-very...", TruncateText("a-very-long-source-id", 9))
	assert.Equal(t, "abcdef", TruncateText("abcdef", 3), "tiny widths are left alone")
}

func TestParseBoolString(t *testing.T) {
	for _, s := range []string{"yes", "TRUE", "1"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.True(t, v)
	}
	for _, s := range []string{"no", "False", "0"} {
		v, err := ParseBoolString(s)
		require.NoError(t, err)
		assert.False(t, v)
	}
	_, err := ParseBoolString("maybe")
	assert.Error(t, err)
}
