// Package testserver runs an in-memory project API for tests.
// Filtering, paging and error shapes follow the production API contract.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
)

// Endpoint names used for failure injection and call counting.
const (
	EndpointStatistics = "statistics"
	EndpointFilters    = "filters"
	EndpointProjects   = "projects"
	EndpointProject    = "project"
	EndpointReport     = "generate_report"
	EndpointExport     = "export_excel"
	EndpointDownload   = "download_report"
)

// ExportSheet is the sheet name of exported workbooks.
const ExportSheet = "projects"

var grades = []string{"A급 직접관련", "B급 간접관련", "C급 정책참고"}

// Server is a fake project API backed by an in-memory record list.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	records   []backend.ProjectDetail
	failures  map[string]int
	appErrors map[string]string
	holds     map[int]chan struct{}
	calls     map[string]int
	reports   map[string]string

	lastQuery         url.Values
	lastReportIDs     []int64
	lastExportFilters map[string]string
}

// New starts a fake API holding n generated records with ids 0..n-1.
func New(t *testing.T, n int) *Server {
	t.Helper()

	s := &Server{
		failures:  make(map[string]int),
		appErrors: make(map[string]string),
		holds:     make(map[int]chan struct{}),
		calls:     make(map[string]int),
		reports:   make(map[string]string),
	}
	for i := 0; i < n; i++ {
		s.records = append(s.records, backend.ProjectDetail{
			ID:         int64(i),
			Name:       fmt.Sprintf("Project %03d", i),
			Department: fmt.Sprintf("Ministry %d", i%4),
			Content:    fmt.Sprintf("Regional programme number %d", i),
			Budget:     strconv.Itoa((i + 1) * 1500000),
			Grade:      grades[i%len(grades)],
			Type:       []string{"R&D", "SOC", "Welfare"}[i%3],
			Region:     []string{"North", "South"}[i%2],
			Score:      float64(i % 300),
			Period:     "2025-2027",
			Agency:     "Provincial office",
			Matching:   "Y",
			Source:     "catalogue.csv",
		})
	}

	r := mux.NewRouter()
	r.HandleFunc("/api/statistics", s.statistics).Methods("GET")
	r.HandleFunc("/api/filters", s.filters).Methods("GET")
	r.HandleFunc("/api/projects", s.projects).Methods("GET")
	r.HandleFunc("/api/project/{id:[0-9]+}", s.project).Methods("GET")
	r.HandleFunc("/api/generate_report", s.generateReport).Methods("POST")
	r.HandleFunc("/api/export_excel", s.exportExcel).Methods("POST")
	r.HandleFunc("/download_report/{filename}", s.download).Methods("GET")

	s.Server = httptest.NewServer(r)
	t.Cleanup(func() {
		s.ReleaseAll()
		s.Server.Close()
	})
	return s
}

// Fail makes every call to endpoint answer with status and a JSON error body.
// A zero status clears the failure.
func (s *Server) Fail(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.failures, endpoint)
		return
	}
	s.failures[endpoint] = status
}

// AppError makes endpoint answer 200 with an `error` field. An empty message clears it.
func (s *Server) AppError(endpoint, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		delete(s.appErrors, endpoint)
		return
	}
	s.appErrors[endpoint] = message
}

// Hold blocks project list requests for page until the returned release func is called.
func (s *Server) Hold(page int) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan struct{})
	s.holds[page] = ch
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.holds[page] == ch {
			delete(s.holds, page)
			close(ch)
		}
	}
}

// ReleaseAll unblocks every held page.
func (s *Server) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for page, ch := range s.holds {
		close(ch)
		delete(s.holds, page)
	}
}

// Calls returns how many requests endpoint has received.
func (s *Server) Calls(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[endpoint]
}

// LastQuery returns the query string of the latest project list request.
func (s *Server) LastQuery() url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastQuery
}

// LastReportIDs returns the ids of the latest report generation request.
func (s *Server) LastReportIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.lastReportIDs...)
}

// LastExportFilters returns the filters of the latest export request.
func (s *Server) LastExportFilters() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastExportFilters
}

// enter counts the call and reports whether an injected failure was written.
func (s *Server) enter(w http.ResponseWriter, endpoint string) bool {
	s.mu.Lock()
	s.calls[endpoint]++
	status, failing := s.failures[endpoint]
	msg, appFailing := s.appErrors[endpoint]
	s.mu.Unlock()

	if failing {
		writeJSON(w, status, map[string]string{"error": endpoint + " unavailable"})
		return true
	}
	if appFailing {
		writeJSON(w, http.StatusOK, map[string]string{"error": msg})
		return true
	}
	return false
}

func (s *Server) statistics(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointStatistics) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var st backend.Statistics
	var sum float64
	for _, rec := range s.records {
		st.TotalProjects++
		sum += rec.Score
		switch {
		case strings.Contains(rec.Grade, "A급"):
			st.AGradeCount++
		case strings.Contains(rec.Grade, "B급"):
			st.BGradeCount++
		case strings.Contains(rec.Grade, "C급"):
			st.CGradeCount++
		}
	}
	if st.TotalProjects > 0 {
		st.AvgScore = float64(int(sum/float64(st.TotalProjects)*10)) / 10
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) filters(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointFilters) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	opts := backend.FilterOptions{
		Departments: distinct(s.records, func(p backend.ProjectDetail) string { return p.Department }),
		Grades:      distinct(s.records, func(p backend.ProjectDetail) string { return p.Grade }),
		Types:       distinct(s.records, func(p backend.ProjectDetail) string { return p.Type }),
		Regions:     distinct(s.records, func(p backend.ProjectDetail) string { return p.Region }),
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) projects(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointProjects) {
		return
	}
	q := r.URL.Query()
	page := atoiDefault(q.Get("page"), 1)
	perPage := atoiDefault(q.Get("per_page"), 50)

	s.mu.Lock()
	s.lastQuery = q
	hold := s.holds[page]
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}

	filters := make(map[string]string)
	for k := range q {
		filters[k] = q.Get(k)
	}

	s.mu.Lock()
	matched := s.filter(filters)
	s.mu.Unlock()

	start := (page - 1) * perPage
	if start < 0 {
		start = 0
	}
	end := start + perPage
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}

	rows := make([]backend.Record, 0, end-start)
	for i, p := range matched[start:end] {
		rows = append(rows, backend.Record{
			ID:           p.ID,
			DisplayIndex: start + i + 1,
			Department:   p.Department,
			Name:         p.Name,
			Content:      p.Content,
			Budget:       p.Budget,
			Grade:        p.Grade,
			Score:        p.Score,
			Type:         p.Type,
			Region:       p.Region,
		})
	}

	writeJSON(w, http.StatusOK, backend.ProjectPage{
		Projects:   rows,
		Total:      len(matched),
		Page:       page,
		PerPage:    perPage,
		TotalPages: (len(matched) + perPage - 1) / perPage,
	})
}

func (s *Server) project(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointProject) {
		return
	}
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	s.mu.Lock()
	defer s.mu.Unlock()
	if id < 0 || id >= len(s.records) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
		return
	}
	writeJSON(w, http.StatusOK, s.records[id])
}

func (s *Server) generateReport(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointReport) {
		return
	}
	var req struct {
		Projects []int64 `json:"projects"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReportIDs = req.Projects

	if len(req.Projects) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no projects selected"})
		return
	}

	files := make([]backend.ReportFile, 0, len(req.Projects))
	for _, id := range req.Projects {
		if id < 0 || int(id) >= len(s.records) {
			continue
		}
		rec := s.records[id]
		name := fmt.Sprintf("review_%03d.txt", id)
		s.reports[name] = "Review report for " + rec.Name
		files = append(files, backend.ReportFile{
			Filename:    name,
			Path:        "/tmp/temp_reports/" + name,
			ProjectName: rec.Name,
			Priority:    float64(50 + id%50),
		})
	}
	writeJSON(w, http.StatusOK, backend.ReportResult{Success: true, GeneratedCount: len(files), Files: files})
}

func (s *Server) exportExcel(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointExport) {
		return
	}
	var req struct {
		Filters map[string]string `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "invalid request body"})
		return
	}

	s.mu.Lock()
	s.lastExportFilters = req.Filters
	matched := s.filter(req.Filters)
	s.mu.Unlock()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", ExportSheet); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	header := []any{"name", "department", "content", "budget", "grade", "score", "type", "region"}
	if err := f.SetSheetRow(ExportSheet, "A1", &header); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	for i, p := range matched {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{p.Name, p.Department, p.Content, p.Budget, p.Grade, p.Score, p.Type, p.Region}
		if err := f.SetSheetRow(ExportSheet, cell, &row); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) download(w http.ResponseWriter, r *http.Request) {
	if s.enter(w, EndpointDownload) {
		return
	}
	name := mux.Vars(r)["filename"]

	s.mu.Lock()
	body, ok := s.reports[name]
	s.mu.Unlock()

	if !ok {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(name))
	w.Write([]byte(body))
}

// filter applies the API's filter semantics. Callers hold s.mu.
func (s *Server) filter(filters map[string]string) []backend.ProjectDetail {
	var out []backend.ProjectDetail
	search := strings.ToLower(filters["search"])
	minScore, hasMin := parseScore(filters["min_score"])
	maxScore, hasMax := parseScore(filters["max_score"])

	for _, p := range s.records {
		if v := filters["department"]; v != "" && p.Department != v {
			continue
		}
		if v := filters["grade"]; v != "" && p.Grade != v {
			continue
		}
		if v := filters["type"]; v != "" && p.Type != v {
			continue
		}
		if v := filters["region"]; v != "" && p.Region != v {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Content), search) {
			continue
		}
		if hasMin && hasMax && (p.Score < minScore || p.Score > maxScore) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Record returns the generated record with the given id.
func (s *Server) Record(id int64) backend.ProjectDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[id]
}

// RequireCalls asserts the number of requests endpoint has received.
func (s *Server) RequireCalls(t *testing.T, endpoint string, want int) {
	t.Helper()
	require.Equal(t, want, s.Calls(endpoint), "calls to %s", endpoint)
}

func parseScore(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func atoiDefault(v string, def int) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func distinct(records []backend.ProjectDetail, key func(backend.ProjectDetail) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range records {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
