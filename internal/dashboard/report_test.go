package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/testserver"
)

// stubAPI serves a fixed page in memory and lets tests gate report generation.
type stubAPI struct {
	page    []backend.Record
	started chan struct{}
	gate    chan struct{}
	err     error

	mu        sync.Mutex
	reportIDs [][]int64
}

func newStubAPI(n int) *stubAPI {
	return &stubAPI{
		page:    pageOf(0, int64(n)),
		started: make(chan struct{}, 1),
		gate:    make(chan struct{}),
	}
}

func (a *stubAPI) Statistics(context.Context) (*backend.Statistics, error) {
	return &backend.Statistics{TotalProjects: len(a.page)}, nil
}

func (a *stubAPI) FilterOptions(context.Context) (*backend.FilterOptions, error) {
	return &backend.FilterOptions{}, nil
}

func (a *stubAPI) Projects(_ context.Context, page, _ int, _ map[string]string) (*backend.ProjectPage, error) {
	return &backend.ProjectPage{Projects: a.page, Total: len(a.page), Page: page, PerPage: PageSize, TotalPages: 1}, nil
}

func (a *stubAPI) Project(_ context.Context, id int64) (*backend.ProjectDetail, error) {
	return &backend.ProjectDetail{ID: id}, nil
}

func (a *stubAPI) GenerateReports(ctx context.Context, ids []int64) (*backend.ReportResult, error) {
	a.mu.Lock()
	a.reportIDs = append(a.reportIDs, ids)
	a.mu.Unlock()

	a.started <- struct{}{}
	select {
	case <-a.gate:
	case <-ctx.Done():
		return nil, &backend.TransportError{Op: "generate_report", Err: ctx.Err()}
	}
	if a.err != nil {
		return nil, a.err
	}
	res := &backend.ReportResult{Success: true, GeneratedCount: len(ids)}
	for _, id := range ids {
		res.Files = append(res.Files, backend.ReportFile{Filename: fmt.Sprintf("review_%03d.txt", id)})
	}
	return res, nil
}

func (a *stubAPI) ExportExcel(context.Context, map[string]string, io.Writer) (int64, error) {
	return 0, errors.New("not supported")
}

func (a *stubAPI) DownloadURL(filename string) string {
	return "http://api.test/download_report/" + filename
}

func stubController(t *testing.T, api *stubAPI) *Controller {
	t.Helper()
	c := New(api, testSettings(t), nil, discardLogger())
	t.Cleanup(c.Close)
	require.NoError(t, c.Init(context.Background()))
	return c
}

func TestGenerateReportsWithEmptySelection(t *testing.T) {
	c, srv, rec := initialised(t)

	_, err := c.GenerateReports(context.Background())
	require.ErrorIs(t, err, ErrNothingSelected)
	require.Equal(t, ClassUserInput, Classify(err))
	srv.RequireCalls(t, testserver.EndpointReport, 0)

	n := c.Snapshot().Notification
	require.NotNil(t, n)
	require.Equal(t, LevelWarning, n.Level)
	require.Equal(t, []string{string(LevelWarning)}, rec.levels())
}

func TestGenerateReports(t *testing.T) {
	c, srv, rec := initialised(t)

	for _, id := range []int64{9, 2, 5} {
		require.NoError(t, c.Toggle(id, true))
	}
	view, err := c.GenerateReports(context.Background())
	require.NoError(t, err)

	require.Equal(t, []int64{2, 5, 9}, srv.LastReportIDs())
	require.Equal(t, 3, view.GeneratedCount)
	require.Len(t, view.Files, 3)
	require.Equal(t, "review_002.txt", view.Files[0].Filename)
	require.Equal(t, "Project 002", view.Files[0].ProjectName)
	require.Equal(t, srv.URL+"/download_report/review_002.txt", view.Files[0].DownloadURL)

	s := c.Snapshot()
	require.False(t, s.Report.Running)
	require.Equal(t, 100.0, s.Report.Progress)
	require.Equal(t, view, s.Report.Result)
	require.Empty(t, s.Report.Error)
	require.Equal(t, LevelSuccess, s.Notification.Level)
	require.Equal(t, "3개의 검토의견서가 생성되었습니다.", s.Notification.Message)
	require.Equal(t, int32(3), rec.reports.Load())
	require.Equal(t, 3, s.Selection.Count, "selection survives generation")
}

func TestGenerateReportsServerError(t *testing.T) {
	c, srv, _ := initialised(t)
	require.NoError(t, c.Toggle(1, true))
	srv.Fail(testserver.EndpointReport, 500)

	_, err := c.GenerateReports(context.Background())
	require.Error(t, err)
	require.Equal(t, ClassNetwork, Classify(err))

	s := c.Snapshot()
	require.False(t, s.Report.Running)
	require.Nil(t, s.Report.Result)
	require.Equal(t, "generate_report unavailable", s.Report.Error)
	require.Equal(t, LevelError, s.Notification.Level)
	require.Equal(t, msgReportFailed, s.Notification.Message)
}

func TestGenerateReportsAppError(t *testing.T) {
	c, srv, _ := initialised(t)
	require.NoError(t, c.Toggle(1, true))
	srv.AppError(testserver.EndpointReport, "템플릿 파일이 없습니다")

	_, err := c.GenerateReports(context.Background())
	require.Equal(t, ClassApp, Classify(err))
	require.Equal(t, "템플릿 파일이 없습니다", c.Snapshot().Report.Error)
}

func TestGenerateReportsFallbackMessage(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := newStubAPI(5)
	api.err = &backend.TransportError{Op: "generate_report", Err: errors.New("connection reset")}
	close(api.gate)
	c := stubController(t, api)
	require.NoError(t, c.Toggle(1, true))

	_, err := c.GenerateReports(context.Background())
	require.Error(t, err)
	<-api.started
	require.Equal(t, msgReportFailed, c.Snapshot().Report.Error)
}

func TestReportProgressAdvancesWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := newStubAPI(5)
	c := stubController(t, api)
	require.NoError(t, c.SelectAllVisible(true))

	var mu sync.Mutex
	var seen []float64
	unsubscribe := c.Subscribe(ObserverFuncs{ReportProgress: func(p float64) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
	}})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() {
		_, err := c.GenerateReports(context.Background())
		done <- err
	}()
	<-api.started

	require.Eventually(t, func() bool {
		s := c.Snapshot()
		return s.Report.Running && s.Report.Progress > 0
	}, 2*time.Second, time.Millisecond)

	_, err := c.GenerateReports(context.Background())
	require.ErrorIs(t, err, ErrReportInProgress)

	close(api.gate)
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	for _, p := range seen[:len(seen)-1] {
		require.LessOrEqual(t, p, 85.0)
	}
	require.Equal(t, 100.0, seen[len(seen)-1])
	require.Len(t, api.reportIDs, 1, "the concurrent call sent nothing")
	require.Equal(t, []int64{0, 1, 2, 3, 4}, api.reportIDs[0])
}

func TestReportTaskReleasedOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := newStubAPI(3)
	c := stubController(t, api)
	require.NoError(t, c.Toggle(2, true))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.GenerateReports(ctx)
		done <- err
	}()
	<-api.started
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	s := c.Snapshot()
	require.False(t, s.Report.Running)
	require.Less(t, s.Report.Progress, 100.0)

	// a new generation may start once the cancelled one is released
	close(api.gate)
	_, err = c.GenerateReports(context.Background())
	require.NoError(t, err)
	<-api.started
}
