// Package actions integrates the build helper with the GitHub Actions
// runner: runtime context, step outputs, the artifact exchange, and the
// Actions cache API.
package actions

import (
	"os"
	"strings"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// Context captures the runner environment a stage executes in. The CI
// platform is the single source of truth for all of these values; the
// helper never invents them.
type Context struct {
	// Job is the workflow job name (GITHUB_JOB)
	Job string

	// RunID is the unique workflow run identifier (GITHUB_RUN_ID)
	RunID string

	// Repository is the "owner/name" repository slug (GITHUB_REPOSITORY)
	Repository string

	// APIURL is the REST API base (GITHUB_API_URL)
	APIURL string

	// Token authenticates REST API calls (GITHUB_TOKEN)
	Token string

	// RuntimeToken authenticates against the artifact exchange
	// (ACTIONS_RUNTIME_TOKEN)
	RuntimeToken string

	// ResultsURL is the artifact exchange base (ACTIONS_RESULTS_URL)
	ResultsURL string

	// OutputFile is the step output sink (GITHUB_OUTPUT)
	OutputFile string
}

// FromEnv builds the runner context from the process environment.
func FromEnv() (*Context, error) {
	ctx := &Context{
		Job:          os.Getenv("GITHUB_JOB"),
		RunID:        os.Getenv("GITHUB_RUN_ID"),
		Repository:   os.Getenv("GITHUB_REPOSITORY"),
		APIURL:       os.Getenv("GITHUB_API_URL"),
		Token:        os.Getenv("GITHUB_TOKEN"),
		RuntimeToken: os.Getenv("ACTIONS_RUNTIME_TOKEN"),
		ResultsURL:   os.Getenv("ACTIONS_RESULTS_URL"),
		OutputFile:   os.Getenv("GITHUB_OUTPUT"),
	}

	if ctx.APIURL == "" {
		ctx.APIURL = "https://api.github.com"
	}

	if ctx.Job == "" {
		return nil, errors.ErrRunnerContext.WithMessage("GITHUB_JOB is not set")
	}
	if ctx.RunID == "" {
		return nil, errors.ErrRunnerContext.WithMessage("GITHUB_RUN_ID is not set")
	}
	if ctx.Repository == "" {
		return nil, errors.ErrRunnerContext.WithMessage("GITHUB_REPOSITORY is not set")
	}

	return ctx, nil
}

// CacheHit reports whether the workflow restored the toolchain cache for
// this job. The workflow exports CACHE_HIT from the cache action's output;
// any casing of "true" counts.
func CacheHit() bool {
	return strings.EqualFold(strings.TrimSpace(os.Getenv("CACHE_HIT")), "true")
}
