package export

import (
	"context"
	"fmt"

	"github.com/rapidia/firmware-export/internal/config"
	"github.com/rapidia/firmware-export/internal/logger"
	"github.com/rapidia/firmware-export/internal/vcs"
)

// Options contains inputs for the export entry point.
// Non-empty fields override the settings file.
type Options struct {
	// ConfigPath is an optional settings file; defaults apply when it is empty and absent.
	ConfigPath string
	// FirmwareRoot is the firmware checkout.
	FirmwareRoot string
	// Destination is the destination project root.
	Destination string
	// BuildDir is the build output directory.
	BuildDir string
	// Artifact is the artifact name without extension.
	Artifact string
	// Extension is the artifact extension, including the dot.
	Extension string
	// Header is the version header.
	Header string
	// Branch is checked out before pulling and pushed when publishing.
	Branch string
	// Publish enables commit and push.
	Publish bool
	// SkipSync disables checkout and pull.
	SkipSync bool
	// DryRun stops after the clean-tree check.
	DryRun bool
}

// Run loads settings, applies overrides and executes the export.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "firmware-export")

	logger.Info(ctx, "Running firmware export")

	cfg, err := config.LoadOrDefault(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	opts.apply(cfg)

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	ctx = logger.WithKV(ctx, "destination", cfg.DestinationRoot())

	client := vcs.NewGit(cfg.DestinationRoot(),
		vcs.WithBinary(cfg.VCS.Binary),
		vcs.WithTimeout(cfg.VCS.Timeout))

	result, err := New(cfg, client, WithDryRun(opts.DryRun)).Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("export failed: %w", err)
	}

	logger.InfoKV(ctx, "Firmware export completed",
		"version", result.Version.String(),
		"published", result.Published,
		"dry_run", result.DryRun)

	return result, nil
}

// apply copies non-empty overrides into cfg.
func (o *Options) apply(cfg *config.Config) {
	override(&cfg.FirmwareRoot, o.FirmwareRoot)
	override(&cfg.Destination.Root, o.Destination)
	override(&cfg.Build.OutputDir, o.BuildDir)
	override(&cfg.Build.ArtifactName, o.Artifact)
	override(&cfg.Build.ArtifactExtension, o.Extension)
	override(&cfg.Build.VersionHeader, o.Header)
	override(&cfg.VCS.Branch, o.Branch)

	cfg.VCS.Publish = cfg.VCS.Publish || o.Publish
	cfg.VCS.SkipSync = cfg.VCS.SkipSync || o.SkipSync
}

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}
