package export

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rapidia/firmware-export/internal/artifact"
	"github.com/rapidia/firmware-export/internal/config"
	"github.com/rapidia/firmware-export/internal/domain/firmware"
	"github.com/rapidia/firmware-export/internal/lock"
	"github.com/rapidia/firmware-export/internal/logger"
	"github.com/rapidia/firmware-export/internal/repository/manifest"
	"github.com/rapidia/firmware-export/internal/vcs"
)

// versionPlaceholder is replaced by the firmware version in commit messages.
const versionPlaceholder = "{version}"

// Result describes a finished export.
type Result struct {
	// Version is the stamped firmware version.
	Version firmware.Version
	// Source is the build artifact that was copied.
	Source string
	// Target is where the artifact was published.
	Target string
	// Manifest is the stamped manifest file.
	Manifest string
	// PreviousVersion is the manifest value before stamping, if any.
	PreviousVersion string
	// Checksum is the SHA-512 of the published artifact, or of the source on dry runs.
	Checksum []byte
	// Published reports whether the change was committed and pushed.
	Published bool
	// DryRun reports that nothing was modified.
	DryRun bool
}

// Exporter runs the export procedure for one configuration.
type Exporter struct {
	// cfg holds validated settings.
	cfg *config.Config
	// vcs runs git in the destination project.
	vcs vcs.Client
	// manifests reads and writes the destination manifest.
	manifests *manifest.FileRepository
	// lockPath overrides the export marker location.
	lockPath string
	// dryRun stops after the clean-tree check.
	dryRun bool
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithDryRun makes the exporter report instead of modifying anything.
func WithDryRun(dryRun bool) Option {
	return func(e *Exporter) {
		e.dryRun = dryRun
	}
}

// WithLockPath places the export marker at path instead of the default location.
func WithLockPath(path string) Option {
	return func(e *Exporter) {
		if path != "" {
			e.lockPath = path
		}
	}
}

// New creates an exporter. cfg must already be validated.
func New(cfg *config.Config, client vcs.Client, opts ...Option) *Exporter {
	e := &Exporter{
		cfg:       cfg,
		vcs:       client,
		manifests: manifest.NewFileRepository(cfg.ManifestFilePath()),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Export runs the procedure.
func (e *Exporter) Export(ctx context.Context) (*Result, error) {
	destination := e.cfg.DestinationRoot()

	if err := checkDestination(destination); err != nil {
		return nil, err
	}

	source, err := artifact.Locate(e.cfg.BuildOutputPath(), e.cfg.ArtifactFilename())
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Artifact found", "path", source)

	version, err := firmware.ReadVersionHeader(
		e.cfg.VersionHeaderPath(),
		firmware.Defines{
			Base:     e.cfg.Build.BaseVersionDefine,
			Revision: e.cfg.Build.RevisionDefine,
		},
		e.cfg.Build.VersionSeparator,
	)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Firmware version found", "version", version.String())

	marker, err := e.acquire(ctx, destination)
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := marker.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Failed to release export marker", "path", marker.Path(), "error", releaseErr)
		}
	}()

	if err = e.ensureClean(ctx); err != nil {
		return nil, err
	}

	result := &Result{
		Version:  version,
		Source:   source,
		Target:   e.cfg.AssetTargetPath(),
		Manifest: e.manifests.Path(),
		DryRun:   e.dryRun,
	}

	if e.dryRun {
		if err = e.reportDryRun(ctx, result); err != nil {
			return nil, err
		}

		return result, nil
	}

	if err = e.sync(ctx); err != nil {
		return nil, err
	}

	result.Checksum, err = artifact.Publish(ctx, source, result.Target)
	if err != nil {
		return nil, fmt.Errorf("copy artifact: %w", err)
	}

	logger.InfoKV(ctx, "Copied artifact",
		"from", source,
		"to", result.Target,
		"sha512", hex.EncodeToString(result.Checksum))

	if result.PreviousVersion, err = e.stamp(ctx, version); err != nil {
		return nil, err
	}

	if e.cfg.VCS.Publish {
		if err = e.publish(ctx, version); err != nil {
			return nil, err
		}

		result.Published = true
	}

	return result, nil
}

// checkDestination fails unless the destination project directory exists.
func checkDestination(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: destination project %s not found, check it out next to the firmware",
				firmware.ErrMissingDependency, root)
		}

		return fmt.Errorf("stat destination: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: destination project %s is not a directory", firmware.ErrMissingDependency, root)
	}

	return nil
}

// acquire takes the export marker for the destination.
func (e *Exporter) acquire(ctx context.Context, destination string) (*lock.Marker, error) {
	path := e.lockPath
	if path == "" {
		var err error

		path, err = lock.PathFor(destination)
		if err != nil {
			return nil, err
		}
	}

	marker, err := lock.Acquire(ctx, path)
	if err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return nil, fmt.Errorf("%w: %w", firmware.ErrExportInProgress, err)
		}

		return nil, fmt.Errorf("acquire export marker: %w", err)
	}

	logger.DebugKV(ctx, "Export marker acquired", "path", marker.Path(), "owner", marker.Owner().String())

	return marker, nil
}

// ensureClean refuses to touch a destination with uncommitted changes.
func (e *Exporter) ensureClean(ctx context.Context) error {
	status, err := e.vcs.Status(ctx)
	if err != nil {
		return fmt.Errorf("check destination status: %w", err)
	}

	if status != "" {
		return fmt.Errorf("%w:\n%s", firmware.ErrDirtyWorkingTree, strings.TrimRight(status, "\n"))
	}

	return nil
}

// sync checks out the configured branch and pulls.
func (e *Exporter) sync(ctx context.Context) error {
	if e.cfg.VCS.SkipSync {
		logger.Info(ctx, "Skipping destination sync")
		return nil
	}

	if branch := e.cfg.VCS.Branch; branch != "" {
		logger.InfoKV(ctx, "Checking out destination branch", "branch", branch)

		if err := e.vcs.Checkout(ctx, branch); err != nil {
			return fmt.Errorf("%w: %w", firmware.ErrSyncFailed, err)
		}
	}

	logger.Info(ctx, "Pulling destination")

	if err := e.vcs.Pull(ctx); err != nil {
		return fmt.Errorf("%w: %w", firmware.ErrSyncFailed, err)
	}

	return nil
}

// stamp writes the version into the manifest and returns the previous value.
func (e *Exporter) stamp(ctx context.Context, version firmware.Version) (string, error) {
	key := e.cfg.Destination.ManifestKey

	previous, err := e.manifests.Stamp(ctx, key, version.String())
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return "", fmt.Errorf("%w: %w", firmware.ErrMissingDependency, err)
		}

		return "", fmt.Errorf("update manifest: %w", err)
	}

	logger.InfoKV(ctx, "Manifest updated",
		"path", e.manifests.Path(),
		"key", key,
		"previous", previous,
		"version", version.String())

	return previous, nil
}

// loadManifest reads the manifest, classifying a missing file.
func (e *Exporter) loadManifest(ctx context.Context) (*manifest.Manifest, error) {
	m, err := e.manifests.Load(ctx)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", firmware.ErrMissingDependency, err)
		}

		return nil, fmt.Errorf("load manifest: %w", err)
	}

	return m, nil
}

// publish commits everything and pushes.
func (e *Exporter) publish(ctx context.Context, version firmware.Version) error {
	message := strings.ReplaceAll(e.cfg.VCS.CommitMessage, versionPlaceholder, version.String())

	logger.InfoKV(ctx, "Committing and pushing destination",
		"remote", e.cfg.VCS.Remote,
		"branch", e.cfg.VCS.Branch,
		"message", message)

	if err := e.vcs.CommitAndPush(ctx, message, e.cfg.VCS.Remote, e.cfg.VCS.Branch); err != nil {
		return fmt.Errorf("%w: %w", firmware.ErrPublishFailed, err)
	}

	return nil
}

// reportDryRun logs what a real run would change.
func (e *Exporter) reportDryRun(ctx context.Context, result *Result) error {
	m, err := e.loadManifest(ctx)
	if err != nil {
		return err
	}

	result.PreviousVersion, _ = m.GetString(e.cfg.Destination.ManifestKey)

	if result.Checksum, err = artifact.FileChecksum(result.Source); err != nil {
		return fmt.Errorf("checksum artifact: %w", err)
	}

	logger.InfoKV(ctx, "Dry run, nothing modified",
		"copy_from", result.Source,
		"sha512", hex.EncodeToString(result.Checksum),
		"copy_to", result.Target,
		"manifest", result.Manifest,
		"previous", result.PreviousVersion,
		"version", result.Version.String(),
		"publish", e.cfg.VCS.Publish)

	return nil
}
