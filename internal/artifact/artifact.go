package artifact

import (
	"bytes"
	"context"
	"crypto"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	goupdate "github.com/doitdistributed/go-update"

	"github.com/rapidia/firmware-export/internal/domain/firmware"
	"github.com/rapidia/firmware-export/internal/logger"

	// Ensure SHA512 available for checksum calculation.
	_ "crypto/sha512"
)

const (
	// DefaultFileMode is applied to published artifacts.
	DefaultFileMode os.FileMode = 0o644

	// DefaultChecksumFunction is used to verify published artifacts.
	DefaultChecksumFunction crypto.Hash = crypto.SHA512

	// directoryMode is used when creating missing destination directories.
	directoryMode os.FileMode = 0o755
)

var errHashUnavailable = errors.New("hash function unavailable")

// Locate lists dir one level deep and returns the path of the regular file named filename.
// A symlink counts when it resolves to a regular file.
func Locate(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("%w: list %s: %w", firmware.ErrMissingArtifact, dir, err)
	}

	for _, entry := range entries {
		if entry.Name() != filename {
			continue
		}

		path := filepath.Join(dir, filename)

		if isRegularFile(entry, path) {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w: %s not found in %s", firmware.ErrMissingArtifact, filename, dir)
}

// isRegularFile reports whether entry is a regular file or a symlink to one.
func isRegularFile(entry fs.DirEntry, path string) bool {
	if entry.Type().IsRegular() {
		return true
	}

	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}

	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}

// Checksum returns the DefaultChecksumFunction digest of data.
func Checksum(data []byte) ([]byte, error) {
	if !DefaultChecksumFunction.Available() {
		return nil, fmt.Errorf("checksum calculation not possible: %w", errHashUnavailable)
	}

	hasher := DefaultChecksumFunction.New()
	if _, err := hasher.Write(data); err != nil {
		return nil, fmt.Errorf("calculate checksum: %w", err)
	}

	return hasher.Sum(nil), nil
}

// FileChecksum returns the DefaultChecksumFunction digest of the file at path.
func FileChecksum(path string) ([]byte, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	return Checksum(contents)
}

// Publish copies source over target byte for byte and returns the checksum
// of the published content. An existing target is replaced; missing parent
// directories are created.
func Publish(ctx context.Context, source, target string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Clean(source))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	checksum, err := Checksum(data)
	if err != nil {
		return nil, err
	}

	if err = os.MkdirAll(filepath.Dir(target), directoryMode); err != nil {
		return nil, fmt.Errorf("create target directory: %w", err)
	}

	// go-update swaps an existing file, so the target has to exist first.
	if _, err = os.Stat(target); errors.Is(err, os.ErrNotExist) {
		logger.DebugKV(ctx, "Creating empty target before swap", "path", target)

		var placeholder *os.File

		placeholder, err = os.OpenFile(filepath.Clean(target), os.O_CREATE|os.O_WRONLY, DefaultFileMode)
		if err != nil {
			return nil, fmt.Errorf("create target: %w", err)
		}

		_ = placeholder.Close()
	} else if err != nil {
		return nil, fmt.Errorf("stat target: %w", err)
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: DefaultFileMode,
		Checksum:   checksum,
		Hash:       DefaultChecksumFunction,
	}

	if err = goupdate.Apply(bytes.NewReader(data), options); err != nil {
		return nil, fmt.Errorf("replace %s: %w", target, err)
	}

	oldFileName := filepath.Join(filepath.Dir(target), "."+filepath.Base(target)+".old")
	if _, err = os.Stat(oldFileName); err == nil {
		_ = os.Remove(oldFileName)
	}

	return checksum, nil
}
