package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/SungwookYoon/searchdeposit6-web/internal/dashboard"
	"github.com/SungwookYoon/searchdeposit6-web/internal/format"
)

type listOutput struct {
	Page       int                      `json:"page"`
	TotalPages int                      `json:"total_pages"`
	Total      int                      `json:"total"`
	Criteria   dashboard.FilterCriteria `json:"criteria"`
	Projects   []listRow                `json:"projects"`
}

type listRow struct {
	ID     int64   `json:"id"`
	No     int     `json:"no"`
	Name   string  `json:"name"`
	Dept   string  `json:"department"`
	Budget string  `json:"budget"`
	Grade  string  `json:"grade"`
	Score  float64 `json:"score"`
	Region string  `json:"region"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.client.Statistics(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
}

// loadedController returns a controller with the given filters applied.
func (a *app) loadedController(ctx context.Context, fc dashboard.FilterControls) (*dashboard.Controller, error) {
	ctrl := a.newController()
	if err := ctrl.ApplyFilters(ctx, fc); err != nil {
		ctrl.Close()
		return nil, err
	}
	return ctrl, nil
}

func newListCmd(a *app) *cobra.Command {
	var (
		fc   dashboard.FilterControls
		page int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of projects matching the filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.loadedController(ctx, fc)
			if err != nil {
				return err
			}
			defer ctrl.Close()
			if page != 1 {
				if err := ctrl.LoadPage(ctx, page); err != nil {
					return err
				}
			}

			snap := ctrl.Snapshot()
			out := listOutput{
				Page:       snap.Page.CurrentPage,
				TotalPages: snap.Page.TotalPages,
				Total:      snap.Page.TotalItems,
				Criteria:   snap.Criteria,
				Projects:   make([]listRow, 0, len(snap.Page.Records)),
			}
			for _, r := range snap.Page.Records {
				out.Projects = append(out.Projects, listRow{
					ID:     r.ID,
					No:     r.DisplayIndex,
					Name:   r.Name,
					Dept:   r.Department,
					Budget: format.Budget(r.Budget),
					Grade:  r.Grade,
					Score:  r.Score,
					Region: r.Region,
				})
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	addFilterFlags(cmd, &fc)
	cmd.Flags().IntVar(&page, "page", 1, "Page number (1-based)")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var (
		ids         []int64
		downloadDir string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate review reports for the given project ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ctrl, err := a.loadedController(ctx, dashboard.DefaultControls())
			if err != nil {
				return err
			}
			defer ctrl.Close()

			for _, id := range ids {
				if err := ctrl.Toggle(id, true); err != nil {
					return err
				}
			}

			start := time.Now()
			view, err := ctrl.GenerateReports(ctx)
			if err != nil {
				return err
			}
			a.logger.Info("reports generated", "count", view.GeneratedCount, "elapsed", time.Since(start))

			if downloadDir != "" {
				if err := a.downloadReports(ctx, view, downloadDir); err != nil {
					return err
				}
			}
			return writeJSON(cmd.OutOrStdout(), view)
		},
	}

	cmd.Flags().Int64SliceVar(&ids, "id", nil, "Project id to include (repeatable or comma separated)")
	cmd.Flags().StringVar(&downloadDir, "download", "", "Save the generated files into this directory")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func (a *app) downloadReports(ctx context.Context, view *dashboard.ReportView, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, f := range view.Files {
		path := filepath.Join(dir, filepath.Base(f.Filename))
		out, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
		n, err := a.client.DownloadReport(ctx, f.Filename, out)
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("downloading %s: %w", f.Filename, err)
		}
		a.logger.Info("report saved", "path", path, "bytes", n)
	}
	return nil
}

func newExportCmd(a *app) *cobra.Command {
	var (
		fc  dashboard.FilterControls
		dir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every project matching the filters to an xlsx workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dir != "" {
				a.cfg.Dashboard.DownloadDir = dir
			}
			ctx := cmd.Context()
			ctrl, err := a.loadedController(ctx, fc)
			if err != nil {
				return err
			}
			defer ctrl.Close()

			res, err := ctrl.ExportExcel(ctx)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}

	addFilterFlags(cmd, &fc)
	cmd.Flags().StringVar(&dir, "dir", "", "override dashboard.download_dir")
	return cmd
}
