package contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/devscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetColorGrade(t *testing.T) {
	for _, grade := range []schema.Grade{schema.GradeS, schema.GradeA, schema.GradeB, schema.GradeC, schema.GradeD, schema.GradeF} {
		t.Run(string(grade), func(t *testing.T) {
			// Should contain the plain grade
			assert.Contains(t, GetColorGrade(grade), string(grade))
		})
	}
}

func TestGetColorSource(t *testing.T) {
	assert.Equal(t, "computed", GetColorSource(schema.ComputedSource))
	assert.Contains(t, GetColorSource(schema.FallbackSource), "fallback-estimated")
}

func TestSelectOutputFile(t *testing.T) {
	t.Run("empty path returns stdout", func(t *testing.T) {
		file, err := SelectOutputFile("")
		require.NoError(t, err)
		assert.Equal(t, os.Stdout, file)
	})

	t.Run("valid path creates file", func(t *testing.T) {
		tempFile := filepath.Join(t.TempDir(), "test_output.txt")

		file, err := SelectOutputFile(tempFile)
		require.NoError(t, err)
		assert.NotNil(t, file)
		_ = file.Close()

		// Verify file was created
		_, err = os.Stat(tempFile)
		assert.NoError(t, err)
	})
}

func TestGetDBFilePaths(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	snapshotPath := GetSnapshotDBFilePath()
	assert.Contains(t, snapshotPath, ".devscore_snapshots.db")
	assert.True(t, strings.HasPrefix(snapshotPath, homeDir), "path %s should start with home dir %s", snapshotPath, homeDir)

	eventPath := GetEventDBFilePath()
	assert.Contains(t, eventPath, ".devscore_events.db")
	assert.NotEqual(t, snapshotPath, eventPath)
}

func TestParseBoolString(t *testing.T) {
	tests := []struct {
		input   string
		want    bool
		wantErr bool
	}{
		{"yes", true, false},
		{"TRUE", true, false},
		{"1", true, false},
		{"no", false, false},
		{"False", false, false},
		{"0", false, false},
		{"maybe", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBoolString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "abcdef...", TruncateText("abcdefghijklmnop", 9))
	assert.Equal(t, "abc", TruncateText("abc", 2))
}

func TestRateLimitError(t *testing.T) {
	reset := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	var err error = &RateLimitError{Reason: "budget too low", Remaining: 3, Reset: reset}

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.True(t, errors.Is(fmt.Errorf("scan: %w", err), ErrRateLimited))
	assert.Contains(t, err.Error(), "2025-01-02T03:04:05Z")

	var rle *RateLimitError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &rle))
	assert.Equal(t, 3, rle.Remaining)

	assert.NotContains(t, (&RateLimitError{Reason: "deadline"}).Error(), "resets")
}
