package dashboard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SungwookYoon/searchdeposit6-web/internal/workbook"
)

// ExportResult describes a spreadsheet export saved to disk.
type ExportResult struct {
	Path       string         `json:"path"`
	Filename   string         `json:"filename"`
	Bytes      int64          `json:"bytes"`
	Rows       int            `json:"rows"`
	Sheet      string         `json:"sheet,omitempty"`
	Criteria   FilterCriteria `json:"criteria"`
	ExportedAt time.Time      `json:"exported_at"`
}

// ExportExcel exports every record matching the current filters, regardless
// of the page and selection, into <download dir>/<prefix>_<YYYY-MM-DD>.xlsx.
// A failure leaves filters and page untouched.
func (c *Controller) ExportExcel(ctx context.Context) (*ExportResult, error) {
	c.mu.Lock()
	if c.status != StatusLoaded {
		c.mu.Unlock()
		return nil, ErrNotLoaded
	}
	criteria := c.criteria.Clone()
	dir := c.settings.DownloadDir
	prefix := c.settings.ExportPrefix
	c.mu.Unlock()

	c.notify(LevelInfo, msgExportStarted)

	res, err := c.export(ctx, criteria, dir, prefix)
	if err != nil {
		c.logger.Error("excel export failed", "filters", criteria.Keys(), "error", err)
		c.notify(LevelError, msgExportFailed)
		c.publishState()
		return nil, err
	}

	c.mu.Lock()
	c.lastExport = res
	c.mu.Unlock()

	c.rec.ExportWritten(res.Bytes)
	c.logger.Info("excel exported", "path", res.Path, "bytes", res.Bytes, "rows", res.Rows)
	c.notify(LevelSuccess, msgExportDone)
	c.publishState()
	return res, nil
}

func (c *Controller) export(ctx context.Context, criteria FilterCriteria, dir, prefix string) (*ExportResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".export-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("creating export file: %w", err)
	}
	n, err := c.api.ExportExcel(ctx, criteria, tmp)
	closeErr := tmp.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("writing export file: %w", closeErr)
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("exporting excel: %w", err)
	}

	now := c.now()
	name := fmt.Sprintf("%s_%s.xlsx", prefix, now.UTC().Format(time.DateOnly))
	path := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("saving export file: %w", err)
	}

	res := &ExportResult{
		Path:       path,
		Filename:   name,
		Bytes:      n,
		Criteria:   criteria,
		ExportedAt: now,
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening export file: %w", err)
	}
	defer f.Close()

	summary, err := workbook.Inspect(f)
	if err != nil {
		// The file is saved either way; only the row count is unknown.
		c.logger.Warn("reading back exported workbook failed", "path", path, "error", err)
		res.Rows = -1
		return res, nil
	}
	res.Rows = summary.Rows
	res.Sheet = summary.Sheet
	return res, nil
}
