package actions

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wong1975/xiaomi-ax3600-stock-immortalwrt-K/src/common/errors"
)

// Artifact describes one uploaded workflow artifact.
type Artifact struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	SizeInBytes        int64  `json:"size_in_bytes"`
	ArchiveDownloadURL string `json:"archive_download_url"`
	Expired            bool   `json:"expired"`
}

// artifactList is the response from the run artifact list endpoint.
type artifactList struct {
	TotalCount int        `json:"total_count"`
	Artifacts  []Artifact `json:"artifacts"`
}

// ArtifactClient exchanges artifacts with the Actions backend for one
// workflow run. Downloads and listing go through the REST API; uploads go
// through the internal artifact exchange the runner token is scoped to.
type ArtifactClient struct {
	runnerCtx  *Context
	scope      *ResultsScope
	HTTPClient *http.Client
}

// NewArtifactClient creates an artifact client from the runner context.
// The runtime token scope is resolved lazily so download-only callers do
// not need ACTIONS_RUNTIME_TOKEN at all.
func (c *Context) NewArtifactClient() *ArtifactClient {
	return &ArtifactClient{
		runnerCtx:  c,
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

// List returns the artifacts uploaded by the current workflow run.
func (ac *ArtifactClient) List(ctx context.Context) ([]Artifact, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/actions/runs/%s/artifacts?per_page=100",
		ac.runnerCtx.APIURL, ac.runnerCtx.Repository, ac.runnerCtx.RunID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	ac.setRESTHeaders(req)

	resp, err := ac.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("artifact list request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("artifact list: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var list artifactList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode artifact list: %w", err)
	}
	return list.Artifacts, nil
}

// Download fetches the named artifact's zip archive into destDir and
// returns the local path. The artifact must belong to the current run.
func (ac *ArtifactClient) Download(ctx context.Context, name, destDir string) (string, error) {
	artifacts, err := ac.List(ctx)
	if err != nil {
		return "", err
	}

	var found *Artifact
	for i := range artifacts {
		if artifacts[i].Name == name {
			found = &artifacts[i]
			break
		}
	}
	if found == nil {
		return "", errors.ErrArtifactNotFound.WithMessagef("artifact %q not found in run %s", name, ac.runnerCtx.RunID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, found.ArchiveDownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	ac.setRESTHeaders(req)

	resp, err := ac.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("artifact download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("artifact download %q: HTTP %d: %s", name, resp.StatusCode, string(body))
	}

	destPath := filepath.Join(destDir, name+".zip")
	out, err := os.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("failed to save artifact %q: %w", name, err)
	}
	return destPath, nil
}

// Delete removes the named artifact from the current run. Missing
// artifacts are not an error; the caller only wants them gone.
func (ac *ArtifactClient) Delete(ctx context.Context, name string) error {
	artifacts, err := ac.List(ctx)
	if err != nil {
		return err
	}

	for _, artifact := range artifacts {
		if artifact.Name != name {
			continue
		}

		endpoint := fmt.Sprintf("%s/repos/%s/actions/artifacts/%d",
			ac.runnerCtx.APIURL, ac.runnerCtx.Repository, artifact.ID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		ac.setRESTHeaders(req)

		resp, err := ac.HTTPClient.Do(req)
		if err != nil {
			return fmt.Errorf("artifact delete request failed: %w", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			return fmt.Errorf("artifact delete %q: HTTP %d", name, resp.StatusCode)
		}
	}
	return nil
}

// createArtifactRequest is the artifact exchange CreateArtifact message.
type createArtifactRequest struct {
	WorkflowRunBackendID    string `json:"workflow_run_backend_id"`
	WorkflowJobRunBackendID string `json:"workflow_job_run_backend_id"`
	Name                    string `json:"name"`
	Version                 int    `json:"version"`
	ExpiresAt               string `json:"expires_at,omitempty"`
}

type createArtifactResponse struct {
	OK              bool   `json:"ok"`
	SignedUploadURL string `json:"signed_upload_url"`
}

// finalizeArtifactRequest is the artifact exchange FinalizeArtifact message.
type finalizeArtifactRequest struct {
	WorkflowRunBackendID    string `json:"workflow_run_backend_id"`
	WorkflowJobRunBackendID string `json:"workflow_job_run_backend_id"`
	Name                    string `json:"name"`
	Size                    string `json:"size"`
	Hash                    string `json:"hash,omitempty"`
}

type finalizeArtifactResponse struct {
	OK         bool   `json:"ok"`
	ArtifactID string `json:"artifact_id"`
}

const artifactServiceBase = "/twirp/github.actions.results.api.v1.ArtifactService/"

// Upload pushes a prepared zip archive to the artifact exchange under the
// given artifact name. retentionDays bounds how long the backend keeps it.
func (ac *ArtifactClient) Upload(ctx context.Context, name, zipPath string, retentionDays int) error {
	if err := ac.resolveScope(); err != nil {
		return err
	}

	info, err := os.Stat(zipPath)
	if err != nil {
		return fmt.Errorf("failed to stat upload payload: %w", err)
	}

	createReq := createArtifactRequest{
		WorkflowRunBackendID:    ac.scope.WorkflowRunBackendID,
		WorkflowJobRunBackendID: ac.scope.WorkflowJobRunBackendID,
		Name:                    name,
		Version:                 4,
	}
	if retentionDays > 0 {
		createReq.ExpiresAt = time.Now().UTC().Add(time.Duration(retentionDays) * 24 * time.Hour).Format(time.RFC3339)
	}

	var createResp createArtifactResponse
	if err := ac.twirp(ctx, "CreateArtifact", createReq, &createResp); err != nil {
		return fmt.Errorf("create artifact %q: %w", name, err)
	}
	if !createResp.OK || createResp.SignedUploadURL == "" {
		return fmt.Errorf("create artifact %q: exchange returned no upload URL", name)
	}

	digest, err := ac.putBlob(ctx, createResp.SignedUploadURL, zipPath, info.Size())
	if err != nil {
		return fmt.Errorf("upload artifact %q: %w", name, err)
	}

	finalizeReq := finalizeArtifactRequest{
		WorkflowRunBackendID:    ac.scope.WorkflowRunBackendID,
		WorkflowJobRunBackendID: ac.scope.WorkflowJobRunBackendID,
		Name:                    name,
		Size:                    strconv.FormatInt(info.Size(), 10),
		Hash:                    "sha256:" + digest,
	}

	var finalizeResp finalizeArtifactResponse
	if err := ac.twirp(ctx, "FinalizeArtifact", finalizeReq, &finalizeResp); err != nil {
		return fmt.Errorf("finalize artifact %q: %w", name, err)
	}
	if !finalizeResp.OK {
		return fmt.Errorf("finalize artifact %q: exchange rejected the upload", name)
	}
	return nil
}

// resolveScope parses the runtime token scope on first use.
func (ac *ArtifactClient) resolveScope() error {
	if ac.scope != nil {
		return nil
	}
	if ac.runnerCtx.ResultsURL == "" {
		return errors.ErrRunnerContext.WithMessage("ACTIONS_RESULTS_URL is not set")
	}
	scope, err := ParseResultsScope(ac.runnerCtx.RuntimeToken)
	if err != nil {
		return errors.ErrRunnerContext.WithCause(err)
	}
	ac.scope = scope
	return nil
}

// twirp performs one artifact exchange RPC.
func (ac *ArtifactClient) twirp(ctx context.Context, method string, body, result interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := ac.runnerCtx.ResultsURL + artifactServiceBase + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ac.runnerCtx.RuntimeToken)

	resp, err := ac.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// putBlob streams the payload to the signed blob URL and returns its
// sha256 digest.
func (ac *ArtifactClient) putBlob(ctx context.Context, signedURL, path string, size int64) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open payload: %w", err)
	}
	defer file.Close()

	hasher := sha256.New()
	reader := io.TeeReader(file, hasher)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, reader)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", "application/zip")
	req.Header.Set("x-ms-blob-type", "BlockBlob")

	resp, err := ac.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("blob upload: HTTP %d: %s", resp.StatusCode, string(respBody))
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

func (ac *ArtifactClient) setRESTHeaders(req *http.Request) {
	if ac.runnerCtx.Token != "" {
		req.Header.Set("Authorization", "Bearer "+ac.runnerCtx.Token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
}
