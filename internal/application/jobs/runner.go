package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	domain "github.com/bryanwahyu/accommodation-engine/internal/domain/analysis"
	"github.com/bryanwahyu/accommodation-engine/internal/domain/joberrors"
)

// ErrClosed is returned by Submit after Shutdown.
var ErrClosed = errors.New("job runner is shut down")

// Analyzer is the engine entry point; it never fails, it returns a result.
type Analyzer interface {
	Analyze(ctx context.Context, req domain.Request) domain.Result
}

type Config struct {
	Slots       int64
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
}

func (c Config) withDefaults() Config {
	if c.Slots <= 0 {
		c.Slots = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 2 * time.Second
	}
	return c
}

// Runner executes analyses in the background under a bounded number of
// worker slots.
type Runner struct {
	analyzer Analyzer
	results  domain.ResultRepository
	errs     joberrors.Repository
	reports  domain.ReportStore
	cfg      Config
	logger   *slog.Logger

	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
	base   context.Context
	cancel context.CancelFunc

	// sleep waits between attempts; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner wires a runner. reports may be nil to skip artifact uploads.
func NewRunner(analyzer Analyzer, results domain.ResultRepository, errs joberrors.Repository,
	reports domain.ReportStore, cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = cfg.withDefaults()
	base, cancel := context.WithCancel(context.Background())
	return &Runner{
		analyzer: analyzer,
		results:  results,
		errs:     errs,
		reports:  reports,
		cfg:      cfg,
		logger:   logger,
		sem:      semaphore.NewWeighted(cfg.Slots),
		base:     base,
		cancel:   cancel,
		sleep:    sleepCtx,
	}
}

// Submit validates the request and queues it, returning the job id.
func (r *Runner) Submit(req domain.Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrClosed
	}

	jobID := uuid.NewString()
	r.wg.Add(1)
	jobsQueued.Inc()
	go func() {
		defer r.wg.Done()
		defer jobsQueued.Dec()
		if err := r.sem.Acquire(r.base, 1); err != nil {
			r.logger.Warn("job dropped before start", slog.String("job_id", jobID), slog.Any("error", err))
			return
		}
		defer r.sem.Release(1)
		r.Run(r.base, jobID, req)
	}()
	return jobID, nil
}

// Run executes one job synchronously: attempts with retry, then persistence.
func (r *Runner) Run(ctx context.Context, jobID string, req domain.Request) domain.Result {
	log := r.logger.With(slog.String("job_id", jobID), slog.String("case_id", req.CaseID))
	start := time.Now()
	jobsRunning.Inc()
	defer jobsRunning.Dec()

	var res domain.Result
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		actx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		res = r.analyzer.Analyze(actx, req)
		timedOut := errors.Is(actx.Err(), context.DeadlineExceeded)
		cancel()
		jobAttempts.WithLabelValues(string(res.Status)).Inc()

		if res.Status == domain.StatusCompleted {
			break
		}
		if timedOut && !strings.Contains(res.ErrorMessage, "deadline") {
			res.ErrorMessage = fmt.Sprintf("attempt timed out after %s: %s", r.cfg.Timeout, res.ErrorMessage)
		}
		log.Warn("analysis attempt failed", slog.Int("attempt", attempt), slog.String("error", res.ErrorMessage))
		r.recordFailure(ctx, jobID, req, attempt, res.ErrorMessage)

		if attempt == r.cfg.MaxAttempts || ctx.Err() != nil {
			break
		}
		if err := r.sleep(ctx, r.backoff(attempt)); err != nil {
			break
		}
	}

	jobDuration.Observe(time.Since(start).Seconds())
	jobsTotal.WithLabelValues(string(res.Status)).Inc()
	r.persist(context.WithoutCancel(ctx), jobID, req, res, log)
	return res
}

// backoff is BaseBackoff doubled per completed attempt.
func (r *Runner) backoff(attempt int) time.Duration {
	return r.cfg.BaseBackoff << (attempt - 1)
}

func (r *Runner) recordFailure(ctx context.Context, jobID string, req domain.Request, attempt int, msg string) {
	if r.errs == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"pathway":   req.Pathway,
		"documents": len(req.Documents),
	})
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := r.errs.SaveJobError(sctx, &joberrors.JobError{
		CaseID:      req.CaseID,
		JobID:       jobID,
		ModuleType:  string(req.ModuleType),
		Attempt:     attempt,
		Message:     msg,
		DetailsJSON: string(details),
	})
	if err != nil {
		r.logger.Error("save job error failed", slog.String("job_id", jobID), slog.Any("error", err))
	}
}

func (r *Runner) persist(ctx context.Context, jobID string, req domain.Request, res domain.Result, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if r.results != nil {
		if err := r.results.SaveResult(ctx, req.CaseID, jobID, &res); err != nil {
			log.Error("save result failed", slog.Any("error", err))
		}
	}
	if r.reports == nil || res.Status != domain.StatusCompleted {
		log.Info("job finished", slog.String("status", string(res.Status)))
		return
	}

	url, err := r.reports.PutReport(ctx, ArtifactKey(req.CaseID, jobID, "report.md"), []byte(res.MarkdownReport))
	if err != nil {
		log.Error("upload report failed", slog.Any("error", err))
	}
	payload, err := json.Marshal(res.ItemMasterData)
	if err == nil {
		_, err = r.reports.PutJSON(ctx, ArtifactKey(req.CaseID, jobID, "item-master.json"), payload)
	}
	if err != nil {
		log.Error("upload item master failed", slog.Any("error", err))
	}
	log.Info("job finished", slog.String("status", string(res.Status)), slog.String("report_url", url))
}

// Shutdown stops accepting jobs and waits for running ones until ctx ends,
// then cancels whatever is left.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		<-done
		return ctx.Err()
	}
}

// ArtifactKey is the object key layout for a job's artifacts.
func ArtifactKey(caseID, jobID, name string) string {
	clean := func(v string) string {
		v = strings.ReplaceAll(strings.TrimSpace(v), "/", "_")
		if v == "" {
			return "-"
		}
		return v
	}
	return path.Join("reports", clean(caseID), clean(jobID), name)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
