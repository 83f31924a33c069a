package backend

// Record is one project row as returned by /api/projects. ID is stable across
// pages and reloads; DisplayIndex is the 1-based position in the filtered result.
type Record struct {
	ID           int64   `json:"index"`
	DisplayIndex int     `json:"display_index"`
	Department   string  `json:"department"`
	Name         string  `json:"name"`
	Content      string  `json:"content"`
	Budget       string  `json:"budget"`
	Grade        string  `json:"grade"`
	Score        float64 `json:"score"`
	Type         string  `json:"type"`
	Region       string  `json:"region"`
}

// ProjectDetail is the full record served by /api/project/{id}.
type ProjectDetail struct {
	ID         int64   `json:"index"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	Content    string  `json:"content"`
	Budget     string  `json:"budget"`
	Grade      string  `json:"grade"`
	Type       string  `json:"type"`
	Region     string  `json:"region"`
	Score      float64 `json:"score"`
	Period     string  `json:"period"`
	Agency     string  `json:"agency"`
	Matching   string  `json:"matching"`
	Source     string  `json:"source"`
}

// ProjectPage is one page of the filtered project list.
type ProjectPage struct {
	Projects   []Record `json:"projects"`
	Total      int      `json:"total"`
	Page       int      `json:"page"`
	PerPage    int      `json:"per_page"`
	TotalPages int      `json:"total_pages"`
}

// Statistics holds the headline counters of the dashboard.
type Statistics struct {
	TotalProjects int     `json:"total_projects"`
	AGradeCount   int     `json:"a_grade_count"`
	BGradeCount   int     `json:"b_grade_count"`
	CGradeCount   int     `json:"c_grade_count"`
	AvgScore      float64 `json:"avg_score"`
}

// FilterOptions lists the values offered by each filter control.
type FilterOptions struct {
	Departments []string `json:"departments"`
	Grades      []string `json:"grades"`
	Types       []string `json:"types"`
	Regions     []string `json:"regions"`
}

// ReportFile describes one generated review report.
type ReportFile struct {
	Filename    string  `json:"filename"`
	Path        string  `json:"path,omitempty"`
	ProjectName string  `json:"project_name"`
	Priority    float64 `json:"priority"`
}

// ReportResult is the response of /api/generate_report.
type ReportResult struct {
	Success        bool         `json:"success"`
	GeneratedCount int          `json:"generated_count"`
	Files          []ReportFile `json:"files"`
}

type reportRequest struct {
	Projects []int64 `json:"projects"`
}

type exportRequest struct {
	Filters map[string]string `json:"filters"`
}

type errorBody struct {
	Error string `json:"error"`
}
