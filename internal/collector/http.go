package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coursepilot/coursepilot/pkg/types"
)

const defaultTimeout = 45 * time.Second

// HTTPError is a non-2xx collector gateway response. 4xx responses are
// permanent (bad request, unknown term); everything else is transient.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements error.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("collector gateway returned status %d: %s", e.StatusCode, e.Body)
}

// Permanent reports whether the failure should not be retried.
func (e *HTTPError) Permanent() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// HTTPCollector collects catalog entities from a catalog gateway over HTTP.
// The gateway owns the actual site navigation; this client treats it as an
// opaque JSON API:
//
//	GET {base}/api/v1/{entityType}?term=...&institution=...
type HTTPCollector struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewHTTPCollector creates an HTTPCollector for the given gateway base URL.
// A non-positive timeout falls back to the default.
func NewHTTPCollector(baseURL, apiKey string, timeout time.Duration) *HTTPCollector {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPCollector{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

// Collect implements the Collector interface.
func (c *HTTPCollector) Collect(ctx context.Context, et types.EntityType, term, institution string) (*Result, error) {
	if !types.ValidEntityType(et) {
		return nil, fmt.Errorf("unknown entity type %q", et)
	}

	q := url.Values{}
	q.Set("term", term)
	q.Set("institution", institution)
	reqURL := fmt.Sprintf("%s/api/v1/%s?%s", c.baseURL, et, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating collector request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("collector request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading collector response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	result := &Result{}
	switch et {
	case types.EntityCourses:
		if err := json.Unmarshal(body, &result.Courses); err != nil {
			return nil, fmt.Errorf("decoding courses: %w", err)
		}
	case types.EntitySections:
		if err := json.Unmarshal(body, &result.Sections); err != nil {
			return nil, fmt.Errorf("decoding sections: %w", err)
		}
	case types.EntityInstructors:
		if err := json.Unmarshal(body, &result.Instructors); err != nil {
			return nil, fmt.Errorf("decoding instructors: %w", err)
		}
	}

	stamp(result, et, term, institution)
	return result, nil
}

// stamp fills in the tuple fields and collection time the gateway may omit.
func stamp(r *Result, et types.EntityType, term, institution string) {
	now := time.Now().UTC()
	switch et {
	case types.EntityCourses:
		for i := range r.Courses {
			r.Courses[i].Term = term
			r.Courses[i].Institution = institution
			if r.Courses[i].CollectedAt.IsZero() {
				r.Courses[i].CollectedAt = now
			}
		}
	case types.EntitySections:
		for i := range r.Sections {
			r.Sections[i].Term = term
			r.Sections[i].Institution = institution
			if r.Sections[i].CollectedAt.IsZero() {
				r.Sections[i].CollectedAt = now
			}
		}
	case types.EntityInstructors:
		for i := range r.Instructors {
			r.Instructors[i].Institution = institution
			if r.Instructors[i].CollectedAt.IsZero() {
				r.Instructors[i].CollectedAt = now
			}
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
