// Package backend is a typed client for the project API consumed by the dashboard.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxJSONBodySize = 10 << 20 // 10 MB

// Request outcomes reported to the RequestObserver.
const (
	OutcomeOK             = "ok"
	OutcomeHTTPError      = "http_error"
	OutcomeAppError       = "app_error"
	OutcomeTransportError = "transport_error"
)

// RequestObserver receives one observation per API call.
type RequestObserver interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
}

// Options configures a Client.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RequestIDHeader string
	HTTPClient      *http.Client
	Logger          *slog.Logger
	Observer        RequestObserver
}

// Client talks to the project API.
type Client struct {
	base     string
	http     *http.Client
	idHeader string
	logger   *slog.Logger
	observer RequestObserver
}

// New creates a new API client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:     strings.TrimRight(base.String(), "/"),
		http:     hc,
		idHeader: opts.RequestIDHeader,
		logger:   logger,
		observer: opts.Observer,
	}, nil
}

// Statistics fetches the headline counters.
func (c *Client) Statistics(ctx context.Context) (*Statistics, error) {
	var stats Statistics
	if err := c.getJSON(ctx, "statistics", "/api/statistics", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// FilterOptions fetches the values offered by each filter control.
func (c *Client) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	var opts FilterOptions
	if err := c.getJSON(ctx, "filters", "/api/filters", nil, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

// Projects fetches one page of projects matching filters. Filter keys are sent verbatim.
func (c *Client) Projects(ctx context.Context, page, perPage int, filters map[string]string) (*ProjectPage, error) {
	q := url.Values{}
	for k, v := range filters {
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var p ProjectPage
	if err := c.getJSON(ctx, "projects", "/api/projects", q, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Project fetches the full detail of a single project.
func (c *Client) Project(ctx context.Context, id int64) (*ProjectDetail, error) {
	var d ProjectDetail
	path := "/api/project/" + strconv.FormatInt(id, 10)
	if err := c.getJSON(ctx, "project", path, nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// GenerateReports asks the server to generate review reports for the given project ids.
func (c *Client) GenerateReports(ctx context.Context, ids []int64) (*ReportResult, error) {
	var res ReportResult
	if err := c.postJSON(ctx, "generate_report", "/api/generate_report", reportRequest{Projects: ids}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ExportExcel streams the spreadsheet of all projects matching filters into w.
func (c *Client) ExportExcel(ctx context.Context, filters map[string]string, w io.Writer) (int64, error) {
	if filters == nil {
		filters = map[string]string{}
	}
	body, err := json.Marshal(exportRequest{Filters: filters})
	if err != nil {
		return 0, fmt.Errorf("encoding export request: %w", err)
	}
	return c.stream(ctx, "export_excel", http.MethodPost, c.endpoint("/api/export_excel", nil), body, w)
}

// DownloadURL returns the absolute URL of a generated report file.
func (c *Client) DownloadURL(filename string) string {
	return c.endpoint("/download_report/"+url.PathEscape(filename), nil)
}

// DownloadReport streams a generated report file into w.
func (c *Client) DownloadReport(ctx context.Context, filename string, w io.Writer) (int64, error) {
	return c.stream(ctx, "download_report", http.MethodGet, c.DownloadURL(filename), nil, w)
}

func (c *Client) endpoint(path string, q url.Values) string {
	target := c.base + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	return target
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out any) error {
	return c.doJSON(ctx, op, http.MethodGet, c.endpoint(path, q), nil, out)
}

func (c *Client) postJSON(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", op, err)
	}
	return c.doJSON(ctx, op, http.MethodPost, c.endpoint(path, nil), body, out)
}

func (c *Client) doJSON(ctx context.Context, op, method, target string, body []byte, out any) (err error) {
	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	resp, err := c.send(ctx, op, method, target, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxJSONBodySize))
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpError(op, resp.StatusCode, data)
	}

	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Error != "" {
		return &AppError{Op: op, Message: eb.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

func (c *Client) stream(ctx context.Context, op, method, target string, body []byte, w io.Writer) (n int64, err error) {
	start := time.Now()
	defer func() { c.observe(op, start, err) }()

	resp, err := c.send(ctx, op, method, target, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxJSONBodySize))
		return 0, httpError(op, resp.StatusCode, data)
	}

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, &TransportError{Op: op, Err: fmt.Errorf("copying response: %w", err)}
	}
	return n, nil
}

func (c *Client) send(ctx context.Context, op, method, target string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	if c.idHeader != "" {
		req.Header.Set(c.idHeader, reqID)
	}

	c.logger.Debug("api request", "op", op, "method", method, "url", target, "request_id", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return resp, nil
}

func (c *Client) observe(op string, start time.Time, err error) {
	outcome := OutcomeOK
	var (
		httpErr *HTTPError
		appErr  *AppError
	)
	switch {
	case err == nil:
	case errors.As(err, &httpErr):
		outcome = OutcomeHTTPError
	case errors.As(err, &appErr):
		outcome = OutcomeAppError
	default:
		outcome = OutcomeTransportError
	}

	elapsed := time.Since(start)
	if err != nil {
		c.logger.Warn("api request failed", "op", op, "outcome", outcome, "elapsed", elapsed, "err", err)
	}
	if c.observer != nil {
		c.observer.ObserveRequest(op, outcome, elapsed)
	}
}

func httpError(op string, status int, body []byte) *HTTPError {
	e := &HTTPError{Op: op, StatusCode: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		e.Message = eb.Error
	}
	return e
}
