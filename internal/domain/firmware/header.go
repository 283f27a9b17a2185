package firmware

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Defines names the two header macros carrying the version tokens.
type Defines struct {
	// Base is the macro holding the base version, e.g. MARLIN_SHORT_BUILD_VERSION.
	Base string
	// Revision is the macro holding the revision, e.g. RAPIDIA_SHORT_BUILD_VERSION.
	Revision string
}

const definePrefix = "#define "

// ReadVersionHeader opens the header at path and extracts the version from it.
func ReadVersionHeader(path string, defines Defines, separator string) (Version, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return Version{}, fmt.Errorf("%w: open header: %w", ErrVersionNotFound, err)
	}

	defer func() {
		_ = file.Close()
	}()

	return ScanVersion(file, defines, separator)
}

// ScanVersion reads r line by line and extracts the two version tokens.
// The last matching line for each define wins.
func ScanVersion(r io.Reader, defines Defines, separator string) (Version, error) {
	var (
		scanner = bufio.NewScanner(r)
		version = Version{Separator: separator}
		base    = definePrefix + defines.Base
		rev     = definePrefix + defines.Revision
	)

	for scanner.Scan() {
		line := scanner.Text()

		if token, ok := defineValue(line, base); ok {
			version.Base = token
		}

		if token, ok := defineValue(line, rev); ok {
			version.Revision = token
		}
	}

	if err := scanner.Err(); err != nil {
		return Version{}, fmt.Errorf("%w: read header: %w", ErrVersionNotFound, err)
	}

	if err := version.Validate(); err != nil {
		return Version{}, err
	}

	return version, nil
}

// defineValue returns the token of line when it defines the macro in prefix.
// The prefix must be followed by whitespace or the end of the line, so
// FOO_VERSION does not match FOO_VERSION_MAJOR.
func defineValue(line, prefix string) (string, bool) {
	rest, found := strings.CutPrefix(line, prefix)
	if !found {
		return "", false
	}

	if rest != "" && rest[0] != ' ' && rest[0] != '\t' && rest[0] != '\r' {
		return "", false
	}

	token := strings.TrimSpace(rest)
	token = strings.ReplaceAll(token, `"`, "")

	return strings.TrimSpace(token), true
}
