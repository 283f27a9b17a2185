package firmware

import "errors"

var (
	// ErrMissingDependency reports an absent destination project or manifest.
	ErrMissingDependency = errors.New("missing dependency")
	// ErrMissingArtifact reports that the build output lacks the expected artifact.
	ErrMissingArtifact = errors.New("missing artifact")
	// ErrVersionNotFound reports absent or empty version tokens in the header.
	ErrVersionNotFound = errors.New("firmware version not found")
	// ErrDirtyWorkingTree reports uncommitted changes in the destination project.
	ErrDirtyWorkingTree = errors.New("destination has uncommitted changes")
	// ErrExportInProgress reports another export running against the same destination.
	ErrExportInProgress = errors.New("another export is in progress")
	// ErrSyncFailed reports a failed checkout or pull in the destination project.
	ErrSyncFailed = errors.New("destination sync failed")
	// ErrPublishFailed reports a failed add, commit or push in the destination project.
	ErrPublishFailed = errors.New("destination publish failed")
)
