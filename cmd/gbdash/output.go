package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/SungwookYoon/searchdeposit6-web/internal/dashboard"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addFilterFlags(cmd *cobra.Command, fc *dashboard.FilterControls) {
	*fc = dashboard.DefaultControls()
	cmd.Flags().StringVar(&fc.Department, "department", "", "Department filter")
	cmd.Flags().StringVar(&fc.Grade, "grade", "", "Grade filter, e.g. \"A급 직접관련\"")
	cmd.Flags().StringVar(&fc.Type, "type", "", "Project type filter")
	cmd.Flags().StringVar(&fc.Region, "region", "", "Region filter")
	cmd.Flags().StringVar(&fc.Search, "search", "", "Text search over name and content")
	cmd.Flags().IntVar(&fc.MinScore, "min-score", dashboard.DefaultMinScore, "Minimum relevance score")
	cmd.Flags().IntVar(&fc.MaxScore, "max-score", dashboard.DefaultMaxScore, "Maximum relevance score")
}
