package lock

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"
	"gopkg.in/yaml.v3"

	"github.com/rapidia/firmware-export/internal/logger"
)

const (
	// markerFileMode restricts markers to the current user.
	markerFileMode os.FileMode = 0o600

	// markerLifetime is how long an unreadable marker is assumed to be mid-write.
	markerLifetime = 30 * time.Second
)

var (
	// ErrHeld is returned when a live process owns the marker.
	ErrHeld = errors.New("marker is held by a running process")
	// errNotOwner is returned when releasing a marker that was rewritten by someone else.
	errNotOwner = errors.New("marker is owned by another process")
)

// Owner identifies the process holding a marker.
type Owner struct {
	// PID is the process ID of the exporting process.
	PID int `yaml:"pid"`
	// Hostname is the machine the export runs on.
	Hostname string `yaml:"hostname"`
	// Username is the system user running the export.
	Username string `yaml:"username"`
	// StartedAt is when the marker was taken.
	StartedAt time.Time `yaml:"started_at"`
}

// String renders the owner for error messages.
func (o Owner) String() string {
	return fmt.Sprintf("pid %d (%s@%s since %s)", o.PID, o.Username, o.Hostname, o.StartedAt.Format(time.RFC3339))
}

// Marker is an acquired export marker.
type Marker struct {
	// path is the marker file location.
	path string
	// owner is what this process wrote into the marker.
	owner Owner
}

// PathFor returns the marker location for a destination root.
func PathFor(destinationRoot string) (string, error) {
	abs, err := filepath.Abs(destinationRoot)
	if err != nil {
		return "", fmt.Errorf("resolve destination: %w", err)
	}

	sum := sha256.Sum256([]byte(abs))

	return filepath.Join(os.TempDir(), "firmware-export-"+hex.EncodeToString(sum[:8])+".lock"), nil
}

// DetectOwner describes the current process.
func DetectOwner() (Owner, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Owner{}, fmt.Errorf("hostname: %w", err)
	}

	// Containers often run under uids without a passwd entry.
	username := os.Getenv("USER")
	if currentUser, userErr := user.Current(); userErr == nil {
		username = currentUser.Username
	}

	return Owner{
		PID:       os.Getpid(),
		Hostname:  hostname,
		Username:  username,
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}, nil
}

// Acquire takes the marker at path. A marker owned by a live process yields
// ErrHeld; a stale one is removed and taken over.
func Acquire(ctx context.Context, path string) (*Marker, error) {
	owner, err := DetectOwner()
	if err != nil {
		return nil, err
	}

	marker, err := create(path, owner)
	if err == nil {
		return marker, nil
	}

	if !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	if err = checkStale(ctx, path); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Removing stale export marker", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale marker: %w", err)
	}

	// A concurrent exporter may win the race here; O_EXCL settles it.
	marker, err = create(path, owner)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrHeld)
	}

	return marker, err
}

// Release removes the marker if this process still owns it.
func (m *Marker) Release() error {
	current, err := readOwner(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		return err
	}

	if current.PID != m.owner.PID || !current.StartedAt.Equal(m.owner.StartedAt) {
		return fmt.Errorf("%s: %w", m.path, errNotOwner)
	}

	if err = os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove marker: %w", err)
	}

	return nil
}

// Path returns the marker file location.
func (m *Marker) Path() string {
	return m.path
}

// Owner returns the owner written into the marker.
func (m *Marker) Owner() Owner {
	return m.owner
}

// create writes a new marker, failing with os.ErrExist if one is present.
func create(path string, owner Owner) (*Marker, error) {
	data, err := yaml.Marshal(owner)
	if err != nil {
		return nil, fmt.Errorf("encode marker: %w", err)
	}

	file, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_EXCL|os.O_WRONLY, markerFileMode)
	if err != nil {
		return nil, err
	}

	if _, err = file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return nil, fmt.Errorf("write marker: %w", err)
	}

	if err = file.Close(); err != nil {
		_ = os.Remove(path)

		return nil, fmt.Errorf("close marker: %w", err)
	}

	return &Marker{path: path, owner: owner}, nil
}

// checkStale returns nil when the marker at path may be replaced.
func checkStale(ctx context.Context, path string) error {
	owner, err := readOwner(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		// Unreadable markers are either mid-write or garbage; age decides.
		info, statErr := os.Stat(path)
		if statErr == nil && time.Since(info.ModTime()) <= markerLifetime {
			return fmt.Errorf("%s: %w", path, ErrHeld)
		}

		logger.WarnKV(ctx, "Export marker is unreadable", "path", path, "error", err)

		return nil
	}

	hostname, _ := os.Hostname() //nolint:errcheck // An empty hostname just skips the remote-host check.
	if owner.Hostname != "" && hostname != "" && owner.Hostname != hostname {
		// The process table of another machine is not visible from here.
		return fmt.Errorf("%s held by %s: %w", path, owner, ErrHeld)
	}

	process, err := ps.FindProcess(owner.PID)
	if err != nil {
		return fmt.Errorf("inspect marker owner: %w", err)
	}

	if process != nil {
		return fmt.Errorf("%s held by %s: %w", path, owner, ErrHeld)
	}

	return nil
}

// readOwner decodes the marker at path.
func readOwner(path string) (Owner, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Owner{}, err
	}

	var owner Owner
	if err = yaml.Unmarshal(contents, &owner); err != nil {
		return Owner{}, fmt.Errorf("decode marker: %w", err)
	}

	if owner.PID <= 0 {
		return Owner{}, fmt.Errorf("decode marker: invalid pid %d", owner.PID)
	}

	return owner, nil
}
