//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/marylanddata/hanover-cli/internal/runlog"
)

func TestFormatRunEntries_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatRunEntries(&buf, nil, time.Now())

	output := buf.String()
	// Should still have the header even if entries is nil.
	assert.Contains(t, output, "COMMAND")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "STARTED")
}

func TestFormatRunEntries_CompleteEntry(t *testing.T) {
	started := time.Date(2025, 8, 20, 10, 30, 0, 0, time.UTC)
	completed := started.Add(12 * time.Second)

	entries := []runlog.Entry{
		{
			ID:          "5f2b3a4c-89ab-4cde-9012-34567890abcd",
			Command:     "collect baseline",
			Status:      runlog.StatusComplete,
			StartedAt:   started,
			CompletedAt: &completed,
			Artifacts: []string{
				"data/raw/census/acs5_2023_zcta21076_20250820T103005Z.json",
				"data/raw/census/decennial_2020_pl_zcta21076_20250820T103008Z.json",
				"data/metrics/baseline.json",
			},
		},
	}

	var buf bytes.Buffer
	formatRunEntries(&buf, entries, completed)

	output := buf.String()
	assert.Contains(t, output, "5f2b3a4c")
	assert.NotContains(t, output, "5f2b3a4c-89ab")
	assert.Contains(t, output, "collect baseline")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "2025-08-20 10:30")
	assert.Contains(t, output, "12s")
	assert.Contains(t, output, "3")
}

func TestFormatRunEntries_RunningEntry(t *testing.T) {
	started := time.Date(2025, 8, 20, 10, 30, 0, 0, time.UTC)
	now := started.Add(90 * time.Second)

	entries := []runlog.Entry{
		{
			ID:        "0a1b2c3d-0000-4000-8000-000000000000",
			Command:   "discover",
			Status:    runlog.StatusRunning,
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	formatRunEntries(&buf, entries, now)

	output := buf.String()
	assert.Contains(t, output, "discover")
	assert.Contains(t, output, "running")
	// Still-running entries show elapsed time with a trailing marker.
	assert.Contains(t, output, "1m30s+")
}

func TestFormatRunEntries_TruncatesLongError(t *testing.T) {
	longErr := "census: http 500 from https://api.census.gov/data/2023/acs/acs5 " +
		"with a very long body that explains nothing useful about the failure"

	entries := []runlog.Entry{
		{
			ID:        "11112222-3333-4444-5555-666677778888",
			Command:   "collect income",
			Status:    runlog.StatusFailed,
			StartedAt: time.Date(2025, 8, 20, 11, 0, 0, 0, time.UTC),
			Error:     longErr,
		},
	}

	var buf bytes.Buffer
	formatRunEntries(&buf, entries, time.Date(2025, 8, 20, 11, 0, 30, 0, time.UTC))

	output := buf.String()
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "...")
	// The truncated error should NOT contain the full message.
	assert.NotContains(t, output, longErr)
}

func TestFormatRunEntries_MultipleEntries(t *testing.T) {
	started1 := time.Date(2025, 8, 19, 9, 0, 0, 0, time.UTC)
	completed1 := started1.Add(8 * time.Second)
	started2 := time.Date(2025, 8, 20, 14, 0, 0, 0, time.UTC)
	completed2 := started2.Add(3 * time.Minute)

	entries := []runlog.Entry{
		{
			ID:          "aaaa0000-0000-4000-8000-000000000000",
			Command:     "collect baseline",
			Status:      runlog.StatusComplete,
			StartedAt:   started1,
			CompletedAt: &completed1,
		},
		{
			ID:          "bbbb0000-0000-4000-8000-000000000000",
			Command:     "discover",
			Status:      runlog.StatusComplete,
			StartedAt:   started2,
			CompletedAt: &completed2,
		},
	}

	var buf bytes.Buffer
	formatRunEntries(&buf, entries, completed2)

	output := buf.String()
	assert.Contains(t, output, "collect baseline")
	assert.Contains(t, output, "discover")
	assert.Contains(t, output, "8s")
	assert.Contains(t, output, "3m0s")
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "5f2b3a4c", shortID("5f2b3a4c-89ab-4cde-9012-34567890abcd"))
	assert.Equal(t, "bare", shortID("bare"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 60))
	long := "0123456789012345678901234567890123456789012345678901234567890123"
	got := truncate(long, 60)
	assert.Len(t, got, 60)
	assert.Contains(t, got, "...")
}
