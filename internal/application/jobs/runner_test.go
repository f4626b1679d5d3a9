package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/joberrors"
)

type scriptedAnalyzer struct {
	mu       sync.Mutex
	statuses []domain.Status
	calls    int
	deadline []bool
}

func (a *scriptedAnalyzer) Analyze(ctx context.Context, _ domain.Request) domain.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := ctx.Deadline()
	a.deadline = append(a.deadline, ok)
	st := a.statuses[min(a.calls, len(a.statuses)-1)]
	a.calls++
	if st == domain.StatusFailed {
		return domain.Result{Status: st, ErrorMessage: "model unavailable", ItemMasterData: []itemmaster.ItemMasterRecord{}}
	}
	return domain.Result{
		Status:         st,
		MarkdownReport: "# Report",
		ItemMasterData: []itemmaster.ItemMasterRecord{{ID: "im-1", CanonicalKey: "test_anxiety"}},
	}
}

type memResults struct {
	mu    sync.Mutex
	saved []domain.Result
	jobs  []string
}

func (m *memResults) SaveResult(_ context.Context, _ string, jobID string, res *domain.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *res)
	m.jobs = append(m.jobs, jobID)
	return nil
}

func (m *memResults) LatestResult(context.Context, string) (*domain.Result, error) {
	return nil, errors.New("not used")
}

type memErrors struct {
	mu    sync.Mutex
	saved []joberrors.JobError
}

func (m *memErrors) SaveJobError(_ context.Context, e *joberrors.JobError) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *e)
	return nil
}

func (m *memErrors) ListByCase(context.Context, string, int) ([]*joberrors.JobError, error) {
	return nil, nil
}

type memReports struct {
	mu   sync.Mutex
	keys []string
}

func (m *memReports) PutReport(_ context.Context, key string, _ []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return "http://minio/" + key, nil
}

func (m *memReports) PutJSON(_ context.Context, key string, _ []byte) (string, error) {
	return m.PutReport(context.Background(), key, nil)
}

func testRequest() domain.Request {
	return domain.Request{
		CaseID:     "case-9",
		ModuleType: domain.ModulePostSecondary,
		Documents:  []domain.Document{{Filename: "a.txt", Content: "x"}},
	}
}

func TestRunRetriesWithExponentialBackoff(t *testing.T) {
	an := &scriptedAnalyzer{statuses: []domain.Status{domain.StatusFailed, domain.StatusFailed, domain.StatusCompleted}}
	results, errs, reports := &memResults{}, &memErrors{}, &memReports{}
	r := NewRunner(an, results, errs, reports, Config{MaxAttempts: 3, BaseBackoff: 100 * time.Millisecond, Timeout: time.Minute}, nil)
	var waits []time.Duration
	r.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	res := r.Run(context.Background(), "job-1", testRequest())

	if res.Status != domain.StatusCompleted || an.calls != 3 {
		t.Fatalf("status=%q calls=%d", res.Status, an.calls)
	}
	if diff := cmp.Diff([]time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, waits); diff != "" {
		t.Fatalf("backoff (-want +got):\n%s", diff)
	}
	if len(errs.saved) != 2 || errs.saved[0].Attempt != 1 || errs.saved[1].Attempt != 2 || errs.saved[0].JobID != "job-1" {
		t.Fatalf("job errors = %+v", errs.saved)
	}
	if len(results.saved) != 1 || results.saved[0].Status != domain.StatusCompleted {
		t.Fatalf("results = %+v", results.saved)
	}
	want := []string{"reports/case-9/job-1/report.md", "reports/case-9/job-1/item-master.json"}
	if diff := cmp.Diff(want, reports.keys); diff != "" {
		t.Fatalf("uploads (-want +got):\n%s", diff)
	}
	for i, ok := range an.deadline {
		if !ok {
			t.Fatalf("attempt %d ran without a deadline", i+1)
		}
	}
}

func TestRunGivesUpAfterMaxAttempts(t *testing.T) {
	an := &scriptedAnalyzer{statuses: []domain.Status{domain.StatusFailed}}
	results, errs, reports := &memResults{}, &memErrors{}, &memReports{}
	r := NewRunner(an, results, errs, reports, Config{MaxAttempts: 2, BaseBackoff: time.Millisecond}, nil)
	r.sleep = func(context.Context, time.Duration) error { return nil }

	res := r.Run(context.Background(), "job-2", testRequest())

	if res.Status != domain.StatusFailed || an.calls != 2 || len(errs.saved) != 2 {
		t.Fatalf("status=%q calls=%d errors=%d", res.Status, an.calls, len(errs.saved))
	}
	if len(results.saved) != 1 || results.saved[0].ErrorMessage == "" {
		t.Fatalf("failed result not persisted: %+v", results.saved)
	}
	if len(reports.keys) != 0 {
		t.Fatalf("failed jobs upload nothing, got %v", reports.keys)
	}
}

func TestSubmitValidatesAndRejectsAfterShutdown(t *testing.T) {
	r := NewRunner(&scriptedAnalyzer{statuses: []domain.Status{domain.StatusCompleted}}, &memResults{}, nil, nil, Config{}, nil)

	bad := testRequest()
	bad.Documents = nil
	if _, err := r.Submit(bad); !errors.Is(err, domain.ErrNoDocuments) {
		t.Fatalf("err = %v", err)
	}
	if err := r.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if _, err := r.Submit(testRequest()); !errors.Is(err, ErrClosed) {
		t.Fatalf("err = %v, want ErrClosed", err)
	}
}

type blockingAnalyzer struct {
	release  chan struct{}
	running  atomic.Int32
	maxSeen  atomic.Int32
	finished atomic.Int32
}

func (b *blockingAnalyzer) Analyze(context.Context, domain.Request) domain.Result {
	n := b.running.Add(1)
	for {
		m := b.maxSeen.Load()
		if n <= m || b.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	<-b.release
	b.running.Add(-1)
	b.finished.Add(1)
	return domain.Result{Status: domain.StatusCompleted}
}

func TestSubmitBoundsConcurrency(t *testing.T) {
	an := &blockingAnalyzer{release: make(chan struct{})}
	results := &memResults{}
	r := NewRunner(an, results, nil, nil, Config{Slots: 2}, nil)

	for i := 0; i < 5; i++ {
		if _, err := r.Submit(testRequest()); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	time.Sleep(50 * time.Millisecond)
	close(an.release)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if an.finished.Load() != 5 || len(results.saved) != 5 {
		t.Fatalf("finished=%d saved=%d", an.finished.Load(), len(results.saved))
	}
	if an.maxSeen.Load() > 2 {
		t.Fatalf("ran %d analyses at once with 2 slots", an.maxSeen.Load())
	}
}

func TestArtifactKey(t *testing.T) {
	if got := ArtifactKey(" a/b ", "", "report.md"); got != "reports/a_b/-/report.md" {
		t.Fatalf("key = %q", got)
	}
}
