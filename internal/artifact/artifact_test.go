package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidia/firmware-export/internal/domain/firmware"
)

// TestLocate finds the artifact in the top level of the build directory only.
func TestLocate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "firmware.elf"), []byte("elf"), 0o600))

	path, err := Locate(dir, "firmware.elf")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "firmware.elf"), path)
}

// TestLocateSymlink accepts a link to a regular file and rejects dangling or directory links.
func TestLocateSymlink(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	build := filepath.Join(dir, "build")
	require.NoError(t, os.MkdirAll(build, 0o755))

	image := filepath.Join(dir, "firmware-2.0.9.elf")
	require.NoError(t, os.WriteFile(image, []byte("elf"), 0o600))
	require.NoError(t, os.Symlink(image, filepath.Join(build, "firmware.elf")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone.hex"), filepath.Join(build, "firmware.hex")))
	require.NoError(t, os.Symlink(dir, filepath.Join(build, "firmware.bin")))

	path, err := Locate(build, "firmware.elf")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(build, "firmware.elf"), path)

	// Publishing copies the link target, not the link.
	target := filepath.Join(dir, "host", "firmware.elf")
	_, err = Publish(context.Background(), path, target)
	require.NoError(t, err)

	info, err := os.Lstat(target)
	require.NoError(t, err)
	require.True(t, info.Mode().IsRegular())

	_, err = Locate(build, "firmware.hex")
	require.ErrorIs(t, err, firmware.ErrMissingArtifact)

	_, err = Locate(build, "firmware.bin")
	require.ErrorIs(t, err, firmware.ErrMissingArtifact)
}

// TestLocateMissing classifies absent artifacts, nested artifacts and missing directories.
func TestLocateMissing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	// Nested one level down does not count.
	nested := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "firmware.elf"), []byte("elf"), 0o600))

	// A directory with the artifact name does not count either.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "firmware.hex"), 0o755))

	_, err := Locate(dir, "firmware.elf")
	require.ErrorIs(t, err, firmware.ErrMissingArtifact)

	_, err = Locate(dir, "firmware.hex")
	require.ErrorIs(t, err, firmware.ErrMissingArtifact)

	_, err = Locate(filepath.Join(dir, "absent"), "firmware.elf")
	require.ErrorIs(t, err, firmware.ErrMissingArtifact)
}

// TestPublish copies into a fresh tree and replaces an existing target.
func TestPublish(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "firmware.elf")
	target := filepath.Join(dir, "host", "assets", "firmware", "firmware.elf")

	require.NoError(t, os.WriteFile(source, []byte("first build"), 0o600))

	sum, err := Publish(context.Background(), source, target)
	require.NoError(t, err)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "first build", string(got))

	want, err := FileChecksum(source)
	require.NoError(t, err)
	require.Equal(t, want, sum)

	// Overwrite with new content.
	require.NoError(t, os.WriteFile(source, []byte("second build"), 0o600))

	_, err = Publish(context.Background(), source, target)
	require.NoError(t, err)

	got, err = os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, "second build", string(got))

	// No swap leftovers next to the target.
	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestPublishIdempotent publishes the same artifact twice with identical results.
func TestPublishIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	source := filepath.Join(dir, "firmware.elf")
	target := filepath.Join(dir, "out", "firmware.elf")

	require.NoError(t, os.WriteFile(source, []byte{0x7f, 'E', 'L', 'F', 0, 1, 2}, 0o600))

	first, err := Publish(context.Background(), source, target)
	require.NoError(t, err)

	second, err := Publish(context.Background(), source, target)
	require.NoError(t, err)
	require.Equal(t, first, second)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, []byte{0x7f, 'E', 'L', 'F', 0, 1, 2}, got)
}

// TestPublishMissingSource fails without creating the target.
func TestPublishMissingSource(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "out", "firmware.elf")

	_, err := Publish(context.Background(), filepath.Join(dir, "missing.elf"), target)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(target)
	require.ErrorIs(t, err, os.ErrNotExist)
}
