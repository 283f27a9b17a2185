package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"mvdan.cc/sh/v3/shell"
)

// Config holds the export settings.
type Config struct {
	// FirmwareRoot is the firmware checkout the build runs in.
	FirmwareRoot string `yaml:"firmware_root"`
	// Build locates the artifact and the version header.
	Build BuildConfig `yaml:"build"`
	// Destination describes the companion project receiving the artifact.
	Destination DestinationConfig `yaml:"destination"`
	// VCS controls the source-control steps run in the destination.
	VCS VCSConfig `yaml:"vcs"`
}

// BuildConfig describes the firmware build outputs.
type BuildConfig struct {
	// OutputDir is the build output directory, relative to FirmwareRoot.
	OutputDir string `yaml:"output_dir"`
	// ArtifactName is the artifact filename without extension.
	ArtifactName string `yaml:"artifact_name"`
	// ArtifactExtension is appended to both source and destination names.
	ArtifactExtension string `yaml:"artifact_extension"`
	// VersionHeader is the header holding the version defines, relative to FirmwareRoot.
	VersionHeader string `yaml:"version_header"`
	// BaseVersionDefine names the define holding the base version token.
	BaseVersionDefine string `yaml:"base_version_define"`
	// RevisionDefine names the define holding the revision token.
	RevisionDefine string `yaml:"revision_define"`
	// VersionSeparator joins the two tokens.
	VersionSeparator string `yaml:"version_separator"`
}

// DestinationConfig describes the companion project.
type DestinationConfig struct {
	// Root of the destination project, relative to FirmwareRoot unless absolute.
	Root string `yaml:"root"`
	// AssetPath is the artifact target inside Root, without extension.
	AssetPath string `yaml:"asset_path"`
	// ManifestPath is the JSON manifest inside Root.
	ManifestPath string `yaml:"manifest_path"`
	// ManifestKey is the manifest field stamped with the version.
	ManifestKey string `yaml:"manifest_key"`
}

// VCSConfig controls the version-control steps.
type VCSConfig struct {
	// Binary is the git executable.
	Binary string `yaml:"binary"`
	// Branch is checked out before pulling and pushed to when publishing. Empty keeps the current branch.
	Branch string `yaml:"branch"`
	// Remote receives the push.
	Remote string `yaml:"remote"`
	// SkipSync disables checkout and pull.
	SkipSync bool `yaml:"skip_sync"`
	// Publish enables add, commit and push after the manifest update.
	Publish bool `yaml:"publish"`
	// CommitMessage is used for the publish commit.
	CommitMessage string `yaml:"commit_message"`
	// Timeout bounds every single git invocation.
	Timeout time.Duration `yaml:"timeout"`
}

const (
	// DefaultConfigFilename is the settings file looked up when no path is given.
	DefaultConfigFilename = "firmware-export.yaml"

	// DefaultFilePermissions is the file permission for settings files.
	DefaultFilePermissions = 0o600

	// DefaultManifestKey is the manifest field holding the packaged firmware version.
	DefaultManifestKey = "packaged_firmware_version"

	// DefaultTimeout bounds a single git command. Pulls over slow links need headroom.
	DefaultTimeout = 2 * time.Minute
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory field is blank after defaults.
	errFieldRequired = errors.New("field must not be empty")
	// errBadExtension is returned for extensions without a leading dot.
	errBadExtension = errors.New("artifact extension must start with a dot")
	// errBadDefine is returned for define names that are not C identifiers.
	errBadDefine = errors.New("define name must be a C identifier")
)

// Default returns the settings matching the standard firmware checkout layout.
func Default() *Config {
	return &Config{
		FirmwareRoot: ".",
		Build: BuildConfig{
			OutputDir:         filepath.Join(".pio", "build", "rapidia_export"),
			ArtifactName:      "firmware",
			ArtifactExtension: ".elf",
			VersionHeader:     filepath.Join("Marlin", "src", "inc", "RapidiaVersion.h"),
			BaseVersionDefine: "MARLIN_SHORT_BUILD_VERSION",
			RevisionDefine:    "RAPIDIA_SHORT_BUILD_VERSION",
			VersionSeparator:  "r",
		},
		Destination: DestinationConfig{
			Root:         filepath.Join("..", "rapidia-host-react-v1"),
			AssetPath:    filepath.Join("assets", "firmware", "firmware"),
			ManifestPath: filepath.Join("src", "package.json"),
			ManifestKey:  DefaultManifestKey,
		},
		VCS: VCSConfig{
			Binary:        "git",
			Remote:        "origin",
			CommitMessage: "Update packaged firmware",
			Timeout:       DefaultTimeout,
		},
	}
}

// Load reads settings from path on top of Default and validates them.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load for an explicit path. With an empty path it
// reads DefaultConfigFilename when present and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	if _, err := os.Stat(DefaultConfigFilename); errors.Is(err, os.ErrNotExist) {
		cfg := Default()

		return cfg, Validate(cfg)
	}

	return Load(DefaultConfigFilename)
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate fills defaults for blank fields, expands environment references
// in paths and checks the remaining values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	applyDefaults(cfg)

	if err := expandPaths(cfg); err != nil {
		return err
	}

	if !strings.HasPrefix(cfg.Build.ArtifactExtension, ".") {
		return fmt.Errorf("%q: %w", cfg.Build.ArtifactExtension, errBadExtension)
	}

	for _, define := range []string{cfg.Build.BaseVersionDefine, cfg.Build.RevisionDefine} {
		if !isIdentifier(define) {
			return fmt.Errorf("%q: %w", define, errBadDefine)
		}
	}

	required := map[string]string{
		"build.artifact_name":       cfg.Build.ArtifactName,
		"build.version_separator":   cfg.Build.VersionSeparator,
		"destination.asset_path":    cfg.Destination.AssetPath,
		"destination.manifest_path": cfg.Destination.ManifestPath,
		"destination.manifest_key":  cfg.Destination.ManifestKey,
	}
	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", name, errFieldRequired)
		}
	}

	return nil
}

// applyDefaults copies Default values into blank fields.
func applyDefaults(cfg *Config) {
	def := Default()

	setIfEmpty(&cfg.FirmwareRoot, def.FirmwareRoot)
	setIfEmpty(&cfg.Build.OutputDir, def.Build.OutputDir)
	setIfEmpty(&cfg.Build.ArtifactName, def.Build.ArtifactName)
	setIfEmpty(&cfg.Build.ArtifactExtension, def.Build.ArtifactExtension)
	setIfEmpty(&cfg.Build.VersionHeader, def.Build.VersionHeader)
	setIfEmpty(&cfg.Build.BaseVersionDefine, def.Build.BaseVersionDefine)
	setIfEmpty(&cfg.Build.RevisionDefine, def.Build.RevisionDefine)
	setIfEmpty(&cfg.Build.VersionSeparator, def.Build.VersionSeparator)
	setIfEmpty(&cfg.Destination.Root, def.Destination.Root)
	setIfEmpty(&cfg.Destination.AssetPath, def.Destination.AssetPath)
	setIfEmpty(&cfg.Destination.ManifestPath, def.Destination.ManifestPath)
	setIfEmpty(&cfg.Destination.ManifestKey, def.Destination.ManifestKey)
	setIfEmpty(&cfg.VCS.Binary, def.VCS.Binary)
	setIfEmpty(&cfg.VCS.Remote, def.VCS.Remote)
	setIfEmpty(&cfg.VCS.CommitMessage, def.VCS.CommitMessage)

	if cfg.VCS.Timeout <= 0 {
		cfg.VCS.Timeout = def.VCS.Timeout
	}
}

// expandPaths resolves $VAR and ${VAR} references in every path field.
func expandPaths(cfg *Config) error {
	paths := []*string{
		&cfg.FirmwareRoot,
		&cfg.Build.OutputDir,
		&cfg.Build.VersionHeader,
		&cfg.Destination.Root,
		&cfg.Destination.AssetPath,
		&cfg.Destination.ManifestPath,
		&cfg.VCS.Binary,
	}

	for _, p := range paths {
		if !strings.Contains(*p, "$") {
			continue
		}

		expanded, err := shell.Expand(*p, os.Getenv)
		if err != nil {
			return fmt.Errorf("expand %q: %w", *p, err)
		}

		*p = expanded
	}

	return nil
}

func setIfEmpty(field *string, value string) {
	if strings.TrimSpace(*field) == "" {
		*field = value
	}
}

// isIdentifier reports whether s is a valid C preprocessor macro name.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
