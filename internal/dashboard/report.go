package dashboard

import (
	"context"
	"fmt"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/progress"
)

// ReportLink is a generated report with the URL it can be downloaded from.
type ReportLink struct {
	backend.ReportFile
	DownloadURL string `json:"download_url"`
}

// ReportView is the outcome of a successful report generation.
type ReportView struct {
	GeneratedCount int          `json:"generated_count"`
	Files          []ReportLink `json:"files"`
}

// ReportStatus is the report panel as shown to the user.
type ReportStatus struct {
	Running  bool        `json:"running"`
	Progress float64     `json:"progress"`
	Result   *ReportView `json:"result,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type reportState struct {
	task     *progress.Task
	progress float64
	result   *ReportView
	err      string
}

func (r reportState) status() ReportStatus {
	return ReportStatus{
		Running:  r.task != nil,
		Progress: r.progress,
		Result:   r.result,
		Error:    r.err,
	}
}

// GenerateReports asks the server for review reports of every selected record.
// An empty selection is reported as a warning and sends nothing. While the
// request runs a pseudo-progress indicator advances up to the configured cap;
// it snaps to 100 on success and is stopped on every return path.
func (c *Controller) GenerateReports(ctx context.Context) (*ReportView, error) {
	c.mu.Lock()
	if c.status != StatusLoaded {
		c.mu.Unlock()
		return nil, ErrNotLoaded
	}
	if c.selection.Len() == 0 {
		c.mu.Unlock()
		c.notify(LevelWarning, ErrNothingSelected.Message)
		return nil, ErrNothingSelected
	}
	if c.report.task != nil {
		c.mu.Unlock()
		return nil, ErrReportInProgress
	}

	ids := c.selection.IDs()
	task := progress.Start(progress.Options{
		Interval: c.settings.ProgressInterval,
		Cap:      c.settings.ProgressCap,
	}, c.reportProgressed)
	c.report = reportState{task: task}
	c.mu.Unlock()
	defer c.releaseReportTask(task)

	c.logger.Info("generating reports", "projects", len(ids))
	c.publishState()

	result, err := c.api.GenerateReports(ctx, ids)
	if err != nil {
		task.Stop()
		c.mu.Lock()
		c.report.err = userMessage(err, msgReportFailed)
		c.mu.Unlock()
		c.logger.Error("report generation failed", "projects", len(ids), "error", err)
		c.notify(LevelError, msgReportFailed)
		return nil, fmt.Errorf("generating reports: %w", err)
	}

	task.Finish()

	view := &ReportView{GeneratedCount: result.GeneratedCount}
	for _, f := range result.Files {
		view.Files = append(view.Files, ReportLink{ReportFile: f, DownloadURL: c.api.DownloadURL(f.Filename)})
	}

	c.mu.Lock()
	c.report.result = view
	c.mu.Unlock()

	c.rec.ReportsGenerated(result.GeneratedCount)
	c.logger.Info("reports generated", "requested", len(ids), "generated", result.GeneratedCount)
	c.notify(LevelSuccess, fmt.Sprintf(msgReportDone, result.GeneratedCount))
	return view, nil
}

// releaseReportTask stops task and clears it from the controller. It must run
// outside c.mu: Stop waits for the task goroutine, whose callback takes c.mu.
func (c *Controller) releaseReportTask(task *progress.Task) {
	task.Stop()
	c.mu.Lock()
	if c.report.task == task {
		c.report.task = nil
	}
	c.mu.Unlock()
	c.publishState()
}

func (c *Controller) reportProgressed(p float64) {
	c.mu.Lock()
	c.report.progress = p
	c.mu.Unlock()
	for _, o := range c.observerList() {
		o.OnReportProgress(p)
	}
}
