package rawstore

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ScanResult reports raw-layout hygiene across the canonical root and any
// legacy roots: artifacts living outside the canonical tree and artifacts
// with byte-identical content.
type ScanResult struct {
	Files      []string   `json:"files"`
	Misplaced  []string   `json:"misplaced,omitempty"`
	Duplicates [][]string `json:"duplicates,omitempty"`
}

// Scan walks the canonical root and every legacy root, collecting .json and
// .md artifacts. It never modifies anything; callers decide what to do with
// the findings. Roots that do not exist are simply empty.
func Scan(canonicalRoot string, legacyRoots []string) (*ScanResult, error) {
	res := &ScanResult{}
	byHash := make(map[string][]string)

	collect := func(root string, misplaced bool) error {
		entries, err := listArtifacts(root)
		if err != nil {
			return err
		}
		for _, path := range entries {
			res.Files = append(res.Files, path)
			if misplaced {
				res.Misplaced = append(res.Misplaced, path)
			}
			digest, err := hashFile(path)
			if err != nil {
				return err
			}
			byHash[digest] = append(byHash[digest], path)
		}
		return nil
	}

	if err := collect(canonicalRoot, false); err != nil {
		return nil, err
	}
	for _, root := range legacyRoots {
		if err := collect(root, true); err != nil {
			return nil, err
		}
	}

	// Deterministic report order regardless of map iteration
	digests := make([]string, 0, len(byHash))
	for d, paths := range byHash {
		if len(paths) > 1 {
			digests = append(digests, d)
		}
	}
	sort.Strings(digests)
	for _, d := range digests {
		res.Duplicates = append(res.Duplicates, byHash[d])
	}

	return res, nil
}

// listArtifacts returns every .json/.md file under root, lexically ordered.
// A missing root is not an error.
func listArtifacts(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isArtifactName(d.Name()) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "rawstore: walk %s", root)
	}
	return out, nil
}

func isArtifactName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".json") || strings.HasSuffix(lower, ".md")
}

// hashFile digests a file in 8 KiB chunks.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "rawstore: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	h := sha256.New()
	buf := make([]byte, 8192)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", eris.Wrapf(err, "rawstore: hash %s", path)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
