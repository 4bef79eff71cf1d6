// Package hub talks to the analysis hub that stores the results of earlier
// runs: the analysed commit of each branch and the issues it reported.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/thiagokokada/incrlint/internal/buildinfo"
	"github.com/thiagokokada/incrlint/internal/region"
)

const (
	DefaultHost    = "localhost:4567"
	DefaultTimeout = 10 * time.Second

	// maxErrorBody bounds how much of a failed response is kept for the
	// error message.
	maxErrorBody = 4 << 10
)

// ErrUnknownRepository is returned when the hub has no repository registered
// for a remote URL.
var ErrUnknownRepository = errors.New("repository not configured on hub")

// StatusError reports a non-2xx answer from the hub.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("hub %s: %d %s", e.Op, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("hub %s: %d %s: %s", e.Op, e.Code, http.StatusText(e.Code), e.Body)
}

// Analysis is the last analysis the hub holds for a branch.
type Analysis struct {
	Commit         string `json:"commit"`
	AnalyzedBranch string `json:"analyzedBranch"`
}

// Issue is a previously reported finding. Positions are 1-based.
type Issue struct {
	BeginLine   int    `json:"beginLine"`
	BeginColumn int    `json:"beginColumn"`
	EndLine     int    `json:"endLine"`
	EndColumn   int    `json:"endColumn"`
	Rule        string `json:"rule,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Region converts the issue position to a 0-based region.
func (i Issue) Region() region.FileRegion {
	return region.New(i.BeginLine-1, i.BeginColumn-1, i.EndLine-1, i.EndColumn-1)
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	UserAgent  string
}

// NewClient returns a client for host, either "host:port" or a full URL.
// A nil httpClient gets one with DefaultTimeout.
func NewClient(host string, httpClient *http.Client) *Client {
	base := strings.TrimSpace(host)
	if base == "" {
		base = DefaultHost
	}
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	base = strings.TrimRight(base, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		BaseURL:    base,
		HTTPClient: httpClient,
		UserAgent:  buildinfo.UserAgent(),
	}
}

// RepositoryID returns the hub id of the repository cloned from remoteURL.
func (c *Client) RepositoryID(ctx context.Context, remoteURL string) (string, error) {
	q := url.Values{}
	q.Set("url", remoteURL)
	var resp struct {
		ID *string `json:"id"`
	}
	if err := c.getJSON(ctx, "repository", []string{"repo"}, q, &resp); err != nil {
		return "", err
	}
	if resp.ID == nil || *resp.ID == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownRepository, remoteURL)
	}
	return *resp.ID, nil
}

// LastAnalysis returns the last analysis of branch in repoID.
func (c *Client) LastAnalysis(ctx context.Context, repoID, branch string) (Analysis, error) {
	var a Analysis
	if err := c.getJSON(ctx, "last analysis", []string{"analysis", repoID, branch}, nil, &a); err != nil {
		return Analysis{}, err
	}
	return a, nil
}

// PreviousIssues lists the issues reported for location on branch. An empty
// branch means the hub has nothing to compare with.
func (c *Client) PreviousIssues(ctx context.Context, repoID, branch, location string) ([]Issue, error) {
	if branch == "" {
		return nil, nil
	}
	q := url.Values{}
	q.Set("location", location)
	var issues []Issue
	if err := c.getJSON(ctx, "previous issues", []string{"analysis", "issues", repoID, branch}, q, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (c *Client) getJSON(ctx context.Context, op string, path []string, query url.Values, out any) error {
	endpoint, err := url.JoinPath(c.BaseURL, path...)
	if err != nil {
		return fmt.Errorf("hub %s: %w", op, err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("hub %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("hub %s: %w", op, err)
	}
	defer resp.Body.Close()
	slog.Debug("hub request",
		slog.String("op", op),
		slog.String("url", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("hub %s: decode response: %w", op, err)
	}
	return nil
}
