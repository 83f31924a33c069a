// Package dashboard implements the selection and pagination controller of the
// project dashboard: filter state, the current page, the cross-page selection,
// and the report and export actions built on top of them.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/config"
)

// API is the part of the project API the controller consumes.
type API interface {
	Statistics(ctx context.Context) (*backend.Statistics, error)
	FilterOptions(ctx context.Context) (*backend.FilterOptions, error)
	Projects(ctx context.Context, page, perPage int, filters map[string]string) (*backend.ProjectPage, error)
	Project(ctx context.Context, id int64) (*backend.ProjectDetail, error)
	GenerateReports(ctx context.Context, ids []int64) (*backend.ReportResult, error)
	ExportExcel(ctx context.Context, filters map[string]string, w io.Writer) (int64, error)
	DownloadURL(filename string) string
}

// Recorder receives controller events for metrics.
type Recorder interface {
	LoadSuperseded()
	SelectionChanged(size int)
	Notified(level string)
	ReportsGenerated(n int)
	ExportWritten(bytes int64)
}

type nopRecorder struct{}

func (nopRecorder) LoadSuperseded() {}
func (nopRecorder) SelectionChanged(int) {}
func (nopRecorder) Notified(string) {}
func (nopRecorder) ReportsGenerated(int) {}
func (nopRecorder) ExportWritten(int64) {}

// Status is the page-level load state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusLoadError
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusLoadError:
		return "load_error"
	default:
		return "idle"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// User-facing messages.
const (
	msgStatisticsFailed = "통계 정보를 불러오는 중 오류가 발생했습니다."
	msgOptionsFailed    = "필터 옵션을 불러오는 중 오류가 발생했습니다."
	msgProjectsFailed   = "프로젝트 목록을 불러오는 중 오류가 발생했습니다."
	msgDetailFailed     = "프로젝트 상세 정보를 불러오는 중 오류가 발생했습니다."
	msgReportFailed     = "검토의견서 생성 중 오류가 발생했습니다."
	msgReportDone       = "%d개의 검토의견서가 생성되었습니다."
	msgExportStarted    = "엑셀 파일을 생성하고 있습니다..."
	msgExportFailed     = "엑셀 내보내기 중 오류가 발생했습니다."
	msgExportDone       = "엑셀 파일이 다운로드되었습니다."
)

// Controller owns the dashboard state. It is safe for concurrent use; network
// calls run outside the state lock.
type Controller struct {
	api    API
	logger *slog.Logger
	rec    Recorder
	toast  *Toaster
	search *Debouncer
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	settings   config.DashboardConfig
	status     Status
	seq        uint64
	filterGen  uint64
	loadErr    string
	stats      backend.Statistics
	options    backend.FilterOptions
	controls   FilterControls
	criteria   FilterCriteria
	page       PageState
	selection  *Selection
	report     reportState
	lastExport *ExportResult

	obsMu     sync.Mutex
	observers map[int]Observer
	nextObs   int
}

// New creates a controller in the Idle state with empty filters and selection.
// rec and logger may be nil.
func New(api API, cfg config.DashboardConfig, rec Recorder, logger *slog.Logger) *Controller {
	if rec == nil {
		rec = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		api:       api,
		logger:    logger,
		rec:       rec,
		toast:     NewToaster(cfg.NotificationTTL, nil),
		search:    NewDebouncer(cfg.SearchDebounce),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		settings:  cfg,
		controls:  DefaultControls(),
		criteria:  FilterCriteria{},
		page:      PageState{PageSize: PageSize},
		selection: NewSelection(),
		observers: make(map[int]Observer),
	}
}

// Close cancels a pending debounced search and any load it started.
func (c *Controller) Close() {
	c.search.Stop()
	c.cancel()
}

// UpdateSettings applies reloaded dashboard settings.
func (c *Controller) UpdateSettings(cfg config.DashboardConfig) {
	c.mu.Lock()
	c.settings = cfg
	c.mu.Unlock()
	c.toast.SetTTL(cfg.NotificationTTL)
	c.search.SetWait(cfg.SearchDebounce)
	c.logger.Info("dashboard settings updated",
		"notification_ttl", cfg.NotificationTTL,
		"search_debounce", cfg.SearchDebounce,
		"progress_interval", cfg.ProgressInterval)
}

// Init loads statistics and filter options in parallel, then the first page.
// A failing panel does not stop the others; all errors are joined.
func (c *Controller) Init(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.LoadStatistics(ctx) })
	g.Go(func() error { return c.LoadFilterOptions(ctx) })
	panelErr := g.Wait()
	return errors.Join(panelErr, c.LoadPage(ctx, 1))
}

// LoadStatistics refreshes the headline counters. On failure they fall back to zero.
func (c *Controller) LoadStatistics(ctx context.Context) error {
	stats, err := c.api.Statistics(ctx)
	if err != nil {
		c.mu.Lock()
		c.stats = backend.Statistics{}
		c.mu.Unlock()
		c.logger.Error("loading statistics failed", "error", err)
		c.notify(LevelError, msgStatisticsFailed)
		c.publishState()
		return fmt.Errorf("loading statistics: %w", err)
	}

	c.mu.Lock()
	c.stats = *stats
	c.mu.Unlock()
	c.publishState()
	return nil
}

// LoadFilterOptions refreshes the values offered by each filter control. A
// control keeps its value only if the refreshed options still offer it.
func (c *Controller) LoadFilterOptions(ctx context.Context) error {
	opts, err := c.api.FilterOptions(ctx)
	if err != nil {
		c.logger.Error("loading filter options failed", "error", err)
		c.notify(LevelError, msgOptionsFailed)
		return fmt.Errorf("loading filter options: %w", err)
	}

	c.mu.Lock()
	c.options = *opts
	c.controls = reconcileControls(c.controls, *opts)
	c.mu.Unlock()
	c.publishState()
	return nil
}

// LoadPage fetches page n of the current criteria. The page number is not
// checked against TotalPages; an out-of-range page loads as an empty page.
// A response is applied only if no later load was issued meanwhile;
// otherwise ErrSuperseded is returned and state is left alone.
func (c *Controller) LoadPage(ctx context.Context, n int) error {
	if n < 1 {
		return &InputError{Message: fmt.Sprintf("page %d out of range", n)}
	}

	c.mu.Lock()
	c.seq++
	seq := c.seq
	criteria := c.criteria.Clone()
	c.status = StatusLoading
	c.mu.Unlock()
	c.publishState()

	start := time.Now()
	page, err := c.api.Projects(ctx, n, PageSize, criteria)

	c.mu.Lock()
	if seq != c.seq {
		latest := c.seq
		c.mu.Unlock()
		c.rec.LoadSuperseded()
		c.logger.Debug("discarding superseded page load", "page", n, "seq", seq, "latest", latest)
		return ErrSuperseded
	}
	if err != nil {
		c.status = StatusLoadError
		c.loadErr = err.Error()
		c.mu.Unlock()
		c.logger.Error("loading projects failed", "page", n, "error", err)
		c.notify(LevelError, msgProjectsFailed)
		c.publishState()
		return fmt.Errorf("loading page %d: %w", n, err)
	}

	records := page.Projects
	if records == nil {
		records = []backend.Record{}
	}
	c.page = PageState{
		CurrentPage: n,
		PageSize:    PageSize,
		TotalItems:  page.Total,
		TotalPages:  totalPages(page),
		Records:     records,
	}
	c.status = StatusLoaded
	c.loadErr = ""
	c.mu.Unlock()

	c.logger.Debug("page loaded",
		"page", n,
		"records", len(records),
		"total", page.Total,
		"filters", criteria.Keys(),
		"elapsed", time.Since(start))
	c.publishState()
	return nil
}

// ApplyFilters replaces the filter controls and reloads page 1.
func (c *Controller) ApplyFilters(ctx context.Context, fc FilterControls) error {
	c.search.Stop()
	c.mu.Lock()
	c.filterGen++
	c.controls = fc
	c.criteria = BuildCriteria(fc)
	c.mu.Unlock()
	return c.LoadPage(ctx, 1)
}

// SetSearch updates the search text and applies the filters once typing has
// paused for the configured debounce period. A search still in flight when
// the filters are applied, reset or typed into again is dropped.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.controls.Search = text
	c.filterGen++
	gen := c.filterGen
	c.mu.Unlock()

	c.search.Trigger(func() { c.runSearch(gen) })
}

func (c *Controller) runSearch(gen uint64) {
	c.mu.Lock()
	if gen != c.filterGen {
		latest := c.filterGen
		c.mu.Unlock()
		c.logger.Debug("dropping stale debounced search", "gen", gen, "latest", latest)
		return
	}
	fc := c.controls
	c.criteria = BuildCriteria(fc)
	c.mu.Unlock()

	if err := c.LoadPage(c.ctx, 1); err != nil && !errors.Is(err, ErrSuperseded) {
		c.logger.Warn("debounced search failed", "search", fc.Search, "error", err)
	}
}

// ResetFilters clears every control, restores the full score range and
// reloads page 1 without any constraint.
func (c *Controller) ResetFilters(ctx context.Context) error {
	c.search.Stop()
	c.mu.Lock()
	c.filterGen++
	c.controls = DefaultControls()
	c.criteria = FilterCriteria{}
	c.mu.Unlock()
	return c.LoadPage(ctx, 1)
}

// Toggle selects or deselects a single record.
func (c *Controller) Toggle(id int64, included bool) error {
	return c.mutateSelection(func(s *Selection, _ []backend.Record) { s.Toggle(id, included) })
}

// SelectAllVisible selects or deselects every record of the current page.
// Records matching the filters on other pages are not affected.
func (c *Controller) SelectAllVisible(included bool) error {
	return c.mutateSelection(func(s *Selection, page []backend.Record) { s.SetAll(page, included) })
}

// Remove deselects id, wherever its record is.
func (c *Controller) Remove(id int64) error {
	return c.mutateSelection(func(s *Selection, _ []backend.Record) { s.Remove(id) })
}

// Clear empties the selection.
func (c *Controller) Clear() error {
	return c.mutateSelection(func(s *Selection, _ []backend.Record) { s.Clear() })
}

func (c *Controller) mutateSelection(fn func(*Selection, []backend.Record)) error {
	c.mu.Lock()
	if c.status != StatusLoaded {
		c.mu.Unlock()
		return ErrNotLoaded
	}
	fn(c.selection, c.page.Records)
	size := c.selection.Len()
	c.mu.Unlock()

	c.rec.SelectionChanged(size)
	c.publishState()
	return nil
}

// ShowProjectDetail fetches the full record of id.
func (c *Controller) ShowProjectDetail(ctx context.Context, id int64) (*backend.ProjectDetail, error) {
	if err := c.requireLoaded(); err != nil {
		return nil, err
	}

	detail, err := c.api.Project(ctx, id)
	if err != nil {
		c.logger.Error("loading project detail failed", "id", id, "error", err)
		c.notify(LevelError, userMessage(err, msgDetailFailed))
		return nil, fmt.Errorf("loading project %d: %w", id, err)
	}
	return detail, nil
}

// DownloadURL returns where a generated report can be downloaded.
func (c *Controller) DownloadURL(filename string) string {
	return c.api.DownloadURL(filename)
}

// Notify shows a notification to the user.
func (c *Controller) Notify(level Level, message string) {
	c.notify(level, message)
}

func (c *Controller) requireLoaded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusLoaded {
		return ErrNotLoaded
	}
	return nil
}

func (c *Controller) notify(level Level, message string) {
	n := c.toast.Show(level, message)
	c.rec.Notified(string(level))
	for _, o := range c.observerList() {
		o.OnNotification(n)
	}
}

// Snapshot is a consistent view of the whole dashboard state.
type Snapshot struct {
	Status       Status                `json:"status"`
	LoadError    string                `json:"load_error,omitempty"`
	Statistics   backend.Statistics    `json:"statistics"`
	Options      backend.FilterOptions `json:"options"`
	Controls     FilterControls        `json:"controls"`
	Criteria     FilterCriteria        `json:"criteria"`
	Page         PageState             `json:"page"`
	Window       []PageLink            `json:"window"`
	Empty        bool                  `json:"empty"`
	Selection    SelectionView         `json:"selection"`
	Report       ReportStatus          `json:"report"`
	LastExport   *ExportResult         `json:"last_export,omitempty"`
	Notification *Notification         `json:"notification,omitempty"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	page := c.page
	page.Records = slices.Clone(page.Records)

	s := Snapshot{
		Status:       c.status,
		LoadError:    c.loadErr,
		Statistics:   c.stats,
		Options:      c.options,
		Controls:     c.controls,
		Criteria:     c.criteria.Clone(),
		Page:         page,
		Window:       PageWindow(page.CurrentPage, page.TotalPages),
		Empty:        c.status == StatusLoaded && len(page.Records) == 0,
		Selection:    c.selection.View(page.Records),
		Report:       c.report.status(),
		Notification: c.toast.Current(),
	}
	if c.lastExport != nil {
		e := *c.lastExport
		s.LastExport = &e
	}
	return s
}
