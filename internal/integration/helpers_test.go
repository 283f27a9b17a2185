package integration

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// requireGit skips the test when no git binary is installed.
func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git is not installed")
	}
}

// git runs a git command in dir and returns its trimmed stdout.
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	out, err := cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok { //nolint:errorlint // Test helper only needs stderr.
		require.NoError(t, err, string(exitErr.Stderr))
	}

	require.NoError(t, err)

	return strings.TrimSpace(string(out))
}

// writeFile creates parent directories and writes contents.
func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
}

// hostRepository creates a bare remote and a clone of it on branch main
// holding a manifest, and returns both paths.
func hostRepository(t *testing.T, base string) (remote, clone string) {
	t.Helper()

	remote = filepath.Join(base, "remote.git")
	clone = filepath.Join(base, "rapidia-host-react-v1")

	require.NoError(t, os.MkdirAll(remote, 0o755))
	git(t, remote, "init", "-q", "--bare")
	git(t, base, "clone", "-q", remote, clone)

	git(t, clone, "config", "user.name", "Export Test")
	git(t, clone, "config", "user.email", "export@example.com")
	git(t, clone, "symbolic-ref", "HEAD", "refs/heads/main")

	writeFile(t, filepath.Join(clone, "src", "package.json"), "{\n  \"name\": \"rapidia-host\",\n  \"version\": \"3.2.1\"\n}\n")
	writeFile(t, filepath.Join(clone, "assets", "firmware", ".gitkeep"), "")

	git(t, clone, "add", "-A")
	git(t, clone, "commit", "-q", "-m", "initial")
	git(t, clone, "push", "-q", "-u", "origin", "main")

	return remote, clone
}

// firmwareCheckout lays out a built firmware tree with a version header.
func firmwareCheckout(t *testing.T, base string) string {
	t.Helper()

	root := filepath.Join(base, "firmware")

	writeFile(t, filepath.Join(root, ".pio", "build", "rapidia_export", "firmware.elf"), "\x7fELF image")
	writeFile(t, filepath.Join(root, "Marlin", "src", "inc", "RapidiaVersion.h"),
		"#define MARLIN_SHORT_BUILD_VERSION \"2.0.9\"\n#define RAPIDIA_SHORT_BUILD_VERSION \"12\"\n")

	return root
}
