package config

import "path/filepath"

// ArtifactFilename is the artifact name with its extension.
func (c *Config) ArtifactFilename() string {
	return c.Build.ArtifactName + c.Build.ArtifactExtension
}

// BuildOutputPath is the directory holding the artifact.
func (c *Config) BuildOutputPath() string {
	return c.underFirmwareRoot(c.Build.OutputDir)
}

// VersionHeaderPath is the header holding the version defines.
func (c *Config) VersionHeaderPath() string {
	return c.underFirmwareRoot(c.Build.VersionHeader)
}

// DestinationRoot is the root of the destination project.
func (c *Config) DestinationRoot() string {
	return c.underFirmwareRoot(c.Destination.Root)
}

// AssetTargetPath is where the artifact is published inside the destination.
func (c *Config) AssetTargetPath() string {
	return filepath.Join(c.DestinationRoot(), c.Destination.AssetPath+c.Build.ArtifactExtension)
}

// ManifestFilePath is the destination manifest.
func (c *Config) ManifestFilePath() string {
	return filepath.Join(c.DestinationRoot(), c.Destination.ManifestPath)
}

func (c *Config) underFirmwareRoot(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}

	return filepath.Join(c.FirmwareRoot, p)
}
