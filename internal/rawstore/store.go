package rawstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// stampLayout is the artifact filename timestamp: UTC, second precision.
const stampLayout = "20060102T150405Z"

// ErrArtifactExists means a save would have overwritten an existing artifact.
// Artifacts are immutable; a second fetch in the same second must be treated
// as an operator error, not silently merged.
var ErrArtifactExists = eris.New("rawstore: artifact already exists")

// Provenance is the machine-readable projection of a raw artifact: where it
// came from, what was asked for, and where the verbatim payload lives. The
// API credential never appears here.
type Provenance struct {
	Endpoint    string    `json:"endpoint"`
	Year        int       `json:"year"`
	Variables   []string  `json:"variables"`
	Geography   string    `json:"geography"`
	RetrievedAt time.Time `json:"retrieved_at"`
	StoragePath string    `json:"storage_path"`
}

// Store writes verbatim API payloads into one directory, one immutable
// timestamped file per fetch.
type Store struct {
	root  string
	clock clockwork.Clock
}

// NewStore creates a store rooted at dir using the real clock.
func NewStore(dir string) *Store {
	return &Store{root: dir, clock: clockwork.NewRealClock()}
}

// NewStoreWithClock creates a store with an injected clock so tests get
// deterministic filename stamps.
func NewStoreWithClock(dir string, clock clockwork.Clock) *Store {
	return &Store{root: dir, clock: clock}
}

// Root returns the store's directory.
func (s *Store) Root() string { return s.root }

// Save writes payload to <root>/<label>_<stamp>.json and returns the path.
// The write goes through a temp file and a rename, so a crash can never leave
// a partial file under the final name, and an existing artifact is never
// overwritten.
func (s *Store) Save(payload []byte, label string) (string, error) {
	if label == "" {
		return "", eris.New("rawstore: empty artifact label")
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", eris.Wrapf(err, "rawstore: create %s", s.root)
	}

	stamp := s.clock.Now().UTC().Format(stampLayout)
	path := filepath.Join(s.root, fmt.Sprintf("%s_%s.json", label, stamp))
	if _, err := os.Stat(path); err == nil {
		return "", eris.Wrapf(ErrArtifactExists, "rawstore: %s", path)
	}

	tmp, err := os.CreateTemp(s.root, ".save-*")
	if err != nil {
		return "", eris.Wrap(err, "rawstore: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", eris.Wrapf(err, "rawstore: write %s", path)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", eris.Wrapf(err, "rawstore: close %s", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", eris.Wrapf(err, "rawstore: finalize %s", path)
	}

	zap.L().Info("raw artifact saved",
		zap.String("path", path),
		zap.Int("bytes", len(payload)),
	)
	return path, nil
}

// Load reads an artifact back verbatim.
func Load(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rawstore: read %s", path)
	}
	return data, nil
}

// TimestampFromPath recovers the retrieval time embedded in an artifact
// filename. Labels may themselves contain underscores; the stamp is always
// the last segment.
func TimestampFromPath(path string) (time.Time, error) {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndex(name, "_")
	if i < 0 {
		return time.Time{}, eris.Errorf("rawstore: no timestamp in %s", path)
	}
	ts, err := time.Parse(stampLayout, name[i+1:])
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "rawstore: parse timestamp in %s", path)
	}
	return ts.UTC(), nil
}

// BuildProvenance projects an artifact's metadata into a provenance record.
// RetrievedAt is taken from the filename stamp, which keeps the record and
// the file structurally in agreement.
func BuildProvenance(endpoint string, year int, vars []string, geography, storagePath string) (Provenance, error) {
	ts, err := TimestampFromPath(storagePath)
	if err != nil {
		return Provenance{}, err
	}
	return Provenance{
		Endpoint:    endpoint,
		Year:        year,
		Variables:   vars,
		Geography:   geography,
		RetrievedAt: ts,
		StoragePath: filepath.ToSlash(storagePath),
	}, nil
}
