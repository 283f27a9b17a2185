package revmacro

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rapidia/firmware-export/internal/logger"
	"github.com/rapidia/firmware-export/internal/vcs"
)

// DefaultDefine is the macro receiving the revision.
const DefaultDefine = "RAPIDIA_SRC_REV"

var errOutputRequired = errors.New("output writer must be provided")

// Options contains inputs for the revision define entry point.
type Options struct {
	// RepoPath is the firmware checkout; empty means the current directory.
	RepoPath string
	// Define is the macro name; empty means DefaultDefine.
	Define string
	// Binary is the git executable.
	Binary string
	// Output receives the define. Defaults to stdout.
	Output io.Writer
}

// Run resolves HEAD in the repository and prints the define.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "git-rev-macro")

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	define := opts.Define
	if define == "" {
		define = DefaultDefine
	}

	client := vcs.NewGit(opts.RepoPath, vcs.WithBinary(opts.Binary))

	return Print(ctx, client, define, output)
}

// Print writes the define for the HEAD revision reported by client to w.
func Print(ctx context.Context, client vcs.Client, define string, w io.Writer) error {
	if w == nil {
		return errOutputRequired
	}

	revision, err := client.RevParseHead(ctx)
	if err != nil {
		return fmt.Errorf("resolve revision: %w", err)
	}

	logger.DebugKV(ctx, "Resolved source revision", "revision", revision)

	if _, err = fmt.Fprintln(w, Flag(define, revision)); err != nil {
		return fmt.Errorf("write define: %w", err)
	}

	return nil
}

// Flag renders a compiler define assigning revision as a string literal.
func Flag(define, revision string) string {
	return fmt.Sprintf("-D%s=%q", define, revision)
}
