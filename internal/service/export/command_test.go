package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidia/firmware-export/internal/config"
)

// TestOptionsApply overrides only the fields that were given.
func TestOptionsApply(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.VCS.Publish = true

	opts := &Options{
		Destination: "/opt/host",
		Extension:   ".hex",
		SkipSync:    true,
	}
	opts.apply(cfg)

	require.Equal(t, "/opt/host", cfg.Destination.Root)
	require.Equal(t, ".hex", cfg.Build.ArtifactExtension)
	require.Equal(t, "firmware", cfg.Build.ArtifactName)
	require.Equal(t, config.Default().Build.OutputDir, cfg.Build.OutputDir)
	require.True(t, cfg.VCS.SkipSync)
	// A flag cannot switch off publishing enabled in the settings file.
	require.True(t, cfg.VCS.Publish)
}
