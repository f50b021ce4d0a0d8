package labelstudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/irgroup/labelstudio-to-fonduer/internal/model"
	"github.com/irgroup/labelstudio-to-fonduer/internal/util"
)

// maxResponseBytes bounds API reads; exports carry whole documents.
const maxResponseBytes int64 = 256 << 20

const maxAttempts = 3

// apiSleepFunc is replaced in tests to skip backoff waits.
var apiSleepFunc = time.Sleep

// Client talks to the annotation tool's REST API. All calls share one rate
// limiter so bulk operations cannot starve the tool.
type Client struct {
	base    *url.URL
	token   string
	hc      *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient builds a client from configuration.
func NewClient(cfg model.LabelStudioConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", cfg.URL, err)
	}
	proxy, err := util.NewProxyFunc(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RateLimit
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &Client{
		base:  base,
		token: cfg.APIKey,
		hc: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{Proxy: proxy},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		log:     logger,
	}, nil
}

// Project is the subset of project metadata the pipeline reads.
type Project struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// CheckConnection verifies the API answers and returns its release string.
func (c *Client) CheckConnection(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/api/version", nil, nil)
	if err != nil {
		return "", err
	}
	release := gjson.GetBytes(data, "release").String()
	if release == "" {
		release = "unknown"
	}
	c.log.Info("annotation tool reachable", "release", release)
	return release, nil
}

// Projects lists the projects visible to the token.
func (c *Client) Projects(ctx context.Context) ([]Project, error) {
	query := url.Values{"page_size": {"1000"}}
	data, err := c.do(ctx, http.MethodGet, "/api/projects", query, nil)
	if err != nil {
		return nil, err
	}

	// paginated responses wrap the list in "results"; older releases
	// answer with a bare array
	results := gjson.GetBytes(data, "results")
	if !results.Exists() {
		results = gjson.ParseBytes(data)
	}

	var projects []Project
	results.ForEach(func(_, p gjson.Result) bool {
		projects = append(projects, Project{ID: p.Get("id").Int(), Title: p.Get("title").String()})
		return true
	})
	return projects, nil
}

// EnsureProject returns the id of the project with the given title,
// creating it when absent. labelConfig becomes the labeling interface of a
// newly created project; existing projects keep theirs.
func (c *Client) EnsureProject(ctx context.Context, title, labelConfig string) (int64, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return 0, err
	}
	for _, p := range projects {
		if p.Title == title {
			return p.ID, nil
		}
	}

	body := map[string]string{"title": title}
	if labelConfig != "" {
		body["label_config"] = labelConfig
	}
	data, err := c.do(ctx, http.MethodPost, "/api/projects", nil, body)
	if err != nil {
		return 0, fmt.Errorf("create project %q: %w", title, err)
	}
	id := gjson.GetBytes(data, "id").Int()
	if id == 0 {
		return 0, fmt.Errorf("create project %q: no id in response", title)
	}
	c.log.Info("project created", "title", title, "id", id)
	return id, nil
}

// ImportTasks uploads tasks into a project and returns how many the tool
// accepted.
func (c *Client) ImportTasks(ctx context.Context, projectID int64, tasks any) (int64, error) {
	path := fmt.Sprintf("/api/projects/%d/import", projectID)
	data, err := c.do(ctx, http.MethodPost, path, nil, tasks)
	if err != nil {
		return 0, err
	}
	count := gjson.GetBytes(data, "task_count").Int()
	c.log.Info("tasks imported", "project", projectID, "count", count)
	return count, nil
}

// DeleteTasks removes every task of a project.
func (c *Client) DeleteTasks(ctx context.Context, projectID int64) error {
	query := url.Values{
		"id":      {"delete_tasks"},
		"project": {strconv.FormatInt(projectID, 10)},
	}
	_, err := c.do(ctx, http.MethodPost, "/api/dm/actions", query, map[string]any{})
	return err
}

// FetchExport downloads the project's annotations as export JSON. The raw
// bytes parse with ParseExportBytes.
func (c *Client) FetchExport(ctx context.Context, projectID int64) ([]byte, error) {
	path := fmt.Sprintf("/api/projects/%d/export", projectID)
	query := url.Values{
		"exportType":         {"JSON"},
		"download_all_tasks": {"false"},
	}
	return c.do(ctx, http.MethodGet, path, query, nil)
}

// do performs one API call with rate limiting and retries on transient
// failures.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			apiSleepFunc(time.Duration(attempt) * 500 * time.Millisecond)
		}
		data, retryable, err := c.once(ctx, method, path, query, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
		c.log.Warn("api call failed, retrying", "method", method, "path", path, "attempt", attempt+1, "error", err)
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path string, query url.Values, payload []byte) (data []byte, retryable bool, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, false, err
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		transient := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, transient, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, respSnippet(data))
	}
	return data, false, nil
}

func respSnippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
