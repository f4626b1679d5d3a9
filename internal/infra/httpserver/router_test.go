package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bryanwahyu/accommodation-engine/internal/application/jobs"
	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/findings"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/itemmaster"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/joberrors"
	"github.com/bryanwahyu/accommodation-engine/internal/infra/db/sqlstore"
)

type fakeJobs struct {
	got []domain.Request
	err error
}

func (f *fakeJobs) Submit(req domain.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, req)
	return "job-1", nil
}

type fakeStore struct {
	result *domain.Result
}

func (f *fakeStore) SaveResult(context.Context, string, string, *domain.Result) error { return nil }

func (f *fakeStore) LatestResult(_ context.Context, caseID string) (*domain.Result, error) {
	if f.result == nil {
		return nil, sqlstore.ErrNotFound
	}
	return f.result, nil
}

func (f *fakeStore) CreateAssessmentFinding(context.Context, *findings.Finding) error { return nil }
func (f *fakeStore) UpdateAssessmentFinding(context.Context, *findings.Finding) error { return nil }

func (f *fakeStore) GetAssessmentFindings(_ context.Context, caseID string) ([]*findings.Finding, error) {
	return []*findings.Finding{{ID: "f-1", CaseID: caseID, Type: findings.TypeStrength}}, nil
}

func (f *fakeStore) SaveItemMaster(context.Context, string, *itemmaster.ItemMasterRecord) error {
	return nil
}

func (f *fakeStore) ListItemMaster(context.Context, string) ([]*itemmaster.ItemMasterRecord, error) {
	return nil, nil
}

func (f *fakeStore) SaveJobError(context.Context, *joberrors.JobError) error { return nil }

func (f *fakeStore) ListByCase(_ context.Context, _ string, limit int) ([]*joberrors.JobError, error) {
	return []*joberrors.JobError{{Attempt: limit}}, nil
}

func newTestRouter(j *fakeJobs, store *fakeStore) http.Handler {
	return NewRouter(Deps{
		Jobs: j, Results: store, Findings: store, ItemMaster: store, JobErrors: store,
	})
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestSubmitQueuesJob(t *testing.T) {
	j := &fakeJobs{}
	h := newTestRouter(j, &fakeStore{})

	rec := do(h, http.MethodPost, "/v1/analyses", `{
		"case_id": "case-1",
		"module_type": "post_secondary",
		"pathway": "complex",
		"documents": [{"filename": "eval.pdf", "content": "WMI 78"}],
		"context": {"student_grade": "Freshman"}
	}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["job_id"] != "job-1" || resp["case_id"] != "case-1" || resp["status"] != "queued" {
		t.Fatalf("response = %v", resp)
	}
	want := []domain.Request{{
		CaseID:     "case-1",
		ModuleType: domain.ModulePostSecondary,
		Pathway:    domain.PathwayComplex,
		Documents:  []domain.Document{{Filename: "eval.pdf", Content: "WMI 78"}},
		Context:    domain.Context{StudentGrade: "Freshman"},
	}}
	if diff := cmp.Diff(want, j.got); diff != "" {
		t.Fatalf("submitted (-want +got):\n%s", diff)
	}
}

func TestSubmitRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"unknown module", `{"case_id":"c1","module_type":"college","documents":[{"filename":"a"}]}`},
		{"bad pathway", `{"case_id":"c1","module_type":"k12","pathway":"fast","documents":[{"filename":"a"}]}`},
		{"no documents", `{"case_id":"c1","module_type":"k12","documents":[]}`},
		{"bad case id", `{"case_id":"c 1","module_type":"k12","documents":[{"filename":"a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := &fakeJobs{}
			rec := do(newTestRouter(j, &fakeStore{}), http.MethodPost, "/v1/analyses", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
			}
			if len(j.got) != 0 {
				t.Fatalf("job submitted for bad input")
			}
		})
	}
}

func TestSubmitAfterShutdown(t *testing.T) {
	rec := do(newTestRouter(&fakeJobs{err: jobs.ErrClosed}, &fakeStore{}), http.MethodPost, "/v1/analyses",
		`{"case_id":"c1","module_type":"tutoring","documents":[{"filename":"a","content":"b"}]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestResultEndpoints(t *testing.T) {
	store := &fakeStore{}
	h := newTestRouter(&fakeJobs{}, store)

	if rec := do(h, http.MethodGet, "/v1/analyses/case-1", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing result status = %d", rec.Code)
	}

	store.result = &domain.Result{Status: domain.StatusCompleted, MarkdownReport: "# R", ItemMasterData: []itemmaster.ItemMasterRecord{}}
	rec := do(h, http.MethodGet, "/v1/analyses/case-1", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"markdown_report":"# R"`) {
		t.Fatalf("result = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/v1/analyses/case-1/findings", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"case_id":"case-1"`) {
		t.Fatalf("findings = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/v1/analyses/case-1/item-master", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("item master = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, "/v1/analyses/case-1/errors?limit=500", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"attempt":100`) {
		t.Fatalf("errors = %d %s", rec.Code, rec.Body.String())
	}
}

func TestAuthAppliesToAnalysesOnly(t *testing.T) {
	h := NewRouter(Deps{
		Jobs: &fakeJobs{}, Results: &fakeStore{}, Findings: &fakeStore{}, ItemMaster: &fakeStore{}, JobErrors: &fakeStore{},
		APIKeys: map[string]string{"portal": "k"},
	})
	if rec := do(h, http.MethodGet, "/v1/analyses/case-1/findings", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d", rec.Code)
	}
	if rec := do(h, http.MethodGet, "/health/live", ""); rec.Code != http.StatusOK {
		t.Fatalf("liveness status = %d", rec.Code)
	}
}

func TestWrapMapsErrors(t *testing.T) {
	r := &Router{logger: slog.Default()}
	tests := []struct {
		err  error
		want int
	}{
		{sqlstore.ErrNotFound, http.StatusNotFound},
		{errors.Join(errors.New("ctx"), domain.ErrNoDocuments), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.wrap(func(http.ResponseWriter, *http.Request) error { return tt.err })(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != tt.want {
			t.Errorf("%v -> %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}
