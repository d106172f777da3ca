package rawstore

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// TidyAction records one decision made while centralizing raw artifacts.
type TidyAction struct {
	Source string `json:"source"`
	Dest   string `json:"dest,omitempty"`
	Action string `json:"action"`
}

// Tidy actions.
const (
	ActionMoved   = "moved"
	ActionSkipped = "skipped_duplicate"
	ActionRenamed = "moved_renamed"
)

// Tidy moves every .json/.md artifact under legacyRoot into canonicalRoot,
// preserving relative subpaths. A destination file with identical content
// means the source is left in place for manual cleanup; a name collision with
// different content gets a _from_legacy_N suffix rather than an overwrite.
// With dryRun set, nothing on disk changes.
func Tidy(legacyRoot, canonicalRoot string, dryRun bool) ([]TidyAction, error) {
	if _, err := os.Stat(legacyRoot); os.IsNotExist(err) {
		return nil, nil
	}
	if !dryRun {
		if err := os.MkdirAll(canonicalRoot, 0o755); err != nil {
			return nil, eris.Wrapf(err, "rawstore: create %s", canonicalRoot)
		}
	}

	var actions []TidyAction
	err := filepath.WalkDir(legacyRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isArtifactName(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(legacyRoot, path)
		if err != nil {
			return eris.Wrapf(err, "rawstore: relativize %s", path)
		}
		dst := filepath.Join(canonicalRoot, rel)

		if _, err := os.Stat(dst); err == nil {
			same, err := sameContent(path, dst)
			if err != nil {
				return err
			}
			if same {
				actions = append(actions, TidyAction{Source: path, Dest: dst, Action: ActionSkipped})
				return nil
			}
			renamed, err := nextFreeName(dst)
			if err != nil {
				return err
			}
			if !dryRun {
				if err := moveFile(path, renamed); err != nil {
					return err
				}
			}
			actions = append(actions, TidyAction{Source: path, Dest: renamed, Action: ActionRenamed})
			return nil
		}

		if !dryRun {
			if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
				return eris.Wrapf(err, "rawstore: create %s", filepath.Dir(dst))
			}
			if err := moveFile(path, dst); err != nil {
				return err
			}
		}
		actions = append(actions, TidyAction{Source: path, Dest: dst, Action: ActionMoved})
		return nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "rawstore: tidy %s", legacyRoot)
	}

	zap.L().Info("tidy complete",
		zap.String("legacy", legacyRoot),
		zap.String("canonical", canonicalRoot),
		zap.Int("actions", len(actions)),
		zap.Bool("dry_run", dryRun),
	)
	return actions, nil
}

func sameContent(a, b string) (bool, error) {
	ha, err := hashFile(a)
	if err != nil {
		return false, err
	}
	hb, err := hashFile(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}

// nextFreeName finds dst's first unused _from_legacy_N variant.
func nextFreeName(dst string) (string, error) {
	ext := filepath.Ext(dst)
	base := strings.TrimSuffix(dst, ext)
	for n := 1; n < 1000; n++ {
		candidate := fmt.Sprintf("%s_from_legacy_%d%s", base, n, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		}
	}
	return "", eris.Errorf("rawstore: no free name for %s", dst)
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "rawstore: open %s", src)
	}
	defer in.Close() //nolint:errcheck

	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "rawstore: create %s", dst)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return eris.Wrapf(err, "rawstore: copy to %s", dst)
	}
	if err := out.Close(); err != nil {
		return eris.Wrapf(err, "rawstore: close %s", dst)
	}
	if err := os.Remove(src); err != nil {
		return eris.Wrapf(err, "rawstore: remove %s", src)
	}
	return nil
}
