package rawstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScan_FindsMisplacedAndDuplicates(t *testing.T) {
	t.Parallel()

	canonical := filepath.Join(t.TempDir(), "data", "raw")
	legacy := filepath.Join(t.TempDir(), "analysis", "data", "raw")

	writeFile(t, filepath.Join(canonical, "a.json"), `{"same":true}`)
	writeFile(t, filepath.Join(canonical, "b.json"), `{"same":true}`)
	writeFile(t, filepath.Join(canonical, "report.md"), "# notes")
	writeFile(t, filepath.Join(legacy, "c.json"), `{"same":true}`)
	writeFile(t, filepath.Join(legacy, "ignore.txt"), "not an artifact")

	res, err := Scan(canonical, []string{legacy})
	require.NoError(t, err)

	assert.Len(t, res.Files, 4)
	require.Len(t, res.Misplaced, 1)
	assert.Equal(t, filepath.Join(legacy, "c.json"), res.Misplaced[0])

	require.Len(t, res.Duplicates, 1)
	assert.ElementsMatch(t, []string{
		filepath.Join(canonical, "a.json"),
		filepath.Join(canonical, "b.json"),
		filepath.Join(legacy, "c.json"),
	}, res.Duplicates[0])
}

func TestScan_MissingRootsAreEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	res, err := Scan(filepath.Join(dir, "absent"), []string{filepath.Join(dir, "also-absent")})
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Empty(t, res.Misplaced)
	assert.Empty(t, res.Duplicates)
}

func TestScan_CleanLayout(t *testing.T) {
	t.Parallel()

	canonical := filepath.Join(t.TempDir(), "data", "raw")
	writeFile(t, filepath.Join(canonical, "a.json"), "1")
	writeFile(t, filepath.Join(canonical, "b.json"), "2")

	res, err := Scan(canonical, nil)
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	assert.Empty(t, res.Misplaced)
	assert.Empty(t, res.Duplicates)
}
