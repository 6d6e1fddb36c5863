package errors

// Common error codes used across domains
const (
	CodeNotFound       Code = "not_found"
	CodeInvalidRequest Code = "invalid_request"
	CodeUnavailable    Code = "unavailable"
	CodeInternal       Code = "internal_error"
)

// Exit codes reported to the CI platform. Anything non-zero fails the job;
// the distinct values only help when reading runner logs after the fact.
const (
	ExitFailure  = 1
	ExitConfig   = 2
	ExitArtifact = 3
	ExitBuild    = 4
)

// ============================================================================
// Configuration Errors
// ============================================================================

var (
	// ErrUnknownJob is returned when the dispatcher sees a job name outside
	// the closed set of pipeline stages
	ErrUnknownJob = New(DomainConfig, "unknown_job", ExitConfig,
		"Unknown workflow job")

	// ErrInvalidConfig is returned when the build configuration fails validation
	ErrInvalidConfig = New(DomainConfig, CodeInvalidRequest, ExitConfig,
		"Invalid build configuration")

	// ErrMissingTarget is returned when target/subtarget metadata cannot be
	// read from the build tree's .config
	ErrMissingTarget = New(DomainConfig, "missing_target", ExitConfig,
		"Target metadata not found in .config")

	// ErrMissingHostDeps is returned when required host build tools are absent
	ErrMissingHostDeps = New(DomainConfig, "missing_host_deps", ExitConfig,
		"Required host build tools are missing")

	// ErrRunnerContext is returned when required runner environment is absent
	ErrRunnerContext = New(DomainConfig, "runner_context", ExitConfig,
		"Incomplete GitHub Actions runner environment")
)

// ============================================================================
// Artifact Errors
// ============================================================================

var (
	// ErrArtifactNotFound is returned when an expected CI artifact does not exist
	ErrArtifactNotFound = New(DomainArtifact, CodeNotFound, ExitArtifact,
		"Artifact not found")

	// ErrOutputNotFound is returned when an expected build output file or
	// pattern is missing after a build step
	ErrOutputNotFound = New(DomainArtifact, "output_not_found", ExitArtifact,
		"Expected build output not found")

	// ErrEmptyArtifact is returned when a stage would otherwise upload an
	// artifact with no matching files
	ErrEmptyArtifact = New(DomainArtifact, "empty_artifact", ExitArtifact,
		"Refusing to upload empty artifact")
)

// ============================================================================
// Build Errors
// ============================================================================

var (
	// ErrMakeFailed is returned when an external make invocation exits non-zero
	ErrMakeFailed = New(DomainBuild, "make_failed", ExitBuild,
		"External build command failed")
)

// ============================================================================
// Cache / Storage Errors
// ============================================================================

var (
	// ErrCacheAPI is returned when the Actions cache API rejects a request
	ErrCacheAPI = New(DomainCache, CodeUnavailable, ExitFailure,
		"Actions cache API request failed")

	// ErrStorage is returned for storage backend failures
	ErrStorage = New(DomainStorage, CodeInternal, ExitFailure,
		"Storage backend operation failed")
)
