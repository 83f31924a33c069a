package api

import (
	"github.com/dustin/go-humanize"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/dashboard"
	"github.com/SungwookYoon/searchdeposit6-web/internal/format"
)

// rowView is one table row with its display values precomputed.
type rowView struct {
	ID           int64   `json:"id"`
	DisplayIndex int     `json:"display_index"`
	Department   string  `json:"department"`
	Name         string  `json:"name"`
	Content      string  `json:"content"`
	Budget       string  `json:"budget"`
	Grade        string  `json:"grade"`
	GradeClass   string  `json:"grade_class"`
	Score        float64 `json:"score"`
	ScoreClass   string  `json:"score_class"`
	Type         string  `json:"type"`
	Region       string  `json:"region"`
	Selected     bool    `json:"selected"`
}

// stateView is the snapshot as served by GET /ui/state.
type stateView struct {
	dashboard.Snapshot
	Rows        []rowView `json:"rows"`
	ResultCount string    `json:"result_count"`
}

func newStateView(snap dashboard.Snapshot) stateView {
	selected := make(map[int64]bool, len(snap.Selection.Visible))
	for _, r := range snap.Selection.Visible {
		selected[r.ID] = true
	}

	rows := make([]rowView, 0, len(snap.Page.Records))
	for _, r := range snap.Page.Records {
		rows = append(rows, rowView{
			ID:           r.ID,
			DisplayIndex: r.DisplayIndex,
			Department:   r.Department,
			Name:         r.Name,
			Content:      r.Content,
			Budget:       format.Budget(r.Budget),
			Grade:        r.Grade,
			GradeClass:   format.GradeClass(r.Grade),
			Score:        r.Score,
			ScoreClass:   format.ScoreClass(r.Score),
			Type:         r.Type,
			Region:       r.Region,
			Selected:     selected[r.ID],
		})
	}

	return stateView{
		Snapshot:    snap,
		Rows:        rows,
		ResultCount: format.Count(snap.Page.TotalItems),
	}
}

type detailView struct {
	*backend.ProjectDetail
	BudgetLabel string `json:"budget_label"`
	GradeClass  string `json:"grade_class"`
	ScoreClass  string `json:"score_class"`
}

func newDetailView(d *backend.ProjectDetail) detailView {
	return detailView{
		ProjectDetail: d,
		BudgetLabel:   format.Budget(d.Budget),
		GradeClass:    format.GradeClass(d.Grade),
		ScoreClass:    format.ScoreClass(d.Score),
	}
}

type exportView struct {
	*dashboard.ExportResult
	Size string `json:"size"`
}

func newExportView(res *dashboard.ExportResult) exportView {
	return exportView{ExportResult: res, Size: humanize.Bytes(uint64(res.Bytes))}
}
