package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/marylanddata/hanover-cli/internal/rawstore"
)

func TestFormatTidyActions(t *testing.T) {
	actions := []rawstore.TidyAction{
		{
			Source: filepath.Join("analysis", "data", "raw", "a.json"),
			Dest:   filepath.Join("data", "raw", "a.json"),
			Action: rawstore.ActionMoved,
		},
		{
			Source: filepath.Join("analysis", "data", "raw", "b.json"),
			Dest:   filepath.Join("data", "raw", "b.json"),
			Action: rawstore.ActionSkipped,
		},
		{
			Source: filepath.Join("analysis", "data", "raw", "c.json"),
			Dest:   filepath.Join("data", "raw", "c_from_legacy_1.json"),
			Action: rawstore.ActionRenamed,
		},
	}

	var buf bytes.Buffer
	formatTidyActions(&buf, actions)

	output := buf.String()
	assert.Contains(t, output, "ACTION")
	assert.Contains(t, output, "moved")
	assert.Contains(t, output, "skipped_duplicate")
	assert.Contains(t, output, "moved_renamed")
	assert.Contains(t, output, "c_from_legacy_1.json")
}
