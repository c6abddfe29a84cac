// Package scanner implements the security analysis pipeline: package
// manifest parsing, dependency advisory matching, code pattern scanning,
// supply-chain scoring, and aggregation of the results into a SecurityReport.
//
// Engine is the pure pipeline; Service couples it to persistence and
// enforces the report lifecycle and per-repository scan exclusion.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/launchforge/secscan/intel"
	"github.com/launchforge/secscan/model"
	"github.com/launchforge/secscan/util"
)

var logger = util.InitLogger()

// ErrScanInFlight is returned when a scan is requested for a repository that
// already has one running.
var ErrScanInFlight = errors.New("a scan is already running for this repository")

// Limits bound the resource use of one scan
type Limits struct {
	MaxFiles    int           // source files enumerated before truncation
	MaxFileSize int64         // bytes; larger files are skipped
	Timeout     time.Duration // whole-scan deadline
}

// DefaultLimits returns the stock scan budget
func DefaultLimits() Limits {
	return Limits{
		MaxFiles:    20000,
		MaxFileSize: 1 << 20,
		Timeout:     5 * time.Minute,
	}
}

// Target identifies one checkout to scan
type Target struct {
	RepoID    string
	ProjectID string
	RootPath  string
	CommitSha string
}

// Outcome carries everything one engine run produced
type Outcome struct {
	Findings        []model.Vulnerability
	DependencyRisks []model.DependencyRisk
	Recommendations []model.Recommendation
	RiskScore       int
	Critical        int
	High            int
	Medium          int
	Low             int
	FilesScanned    int
	Truncated       bool
	Duration        time.Duration
}

// Engine runs the analysis pipeline against a checkout. It holds only the
// compiled catalog and limits, so a single Engine serves concurrent scans.
type Engine struct {
	catalog *intel.Catalog
	limits  Limits
}

// NewEngine builds an engine from a compiled catalog and scan limits
func NewEngine(catalog *intel.Catalog, limits Limits) *Engine {
	return &Engine{catalog: catalog, limits: limits}
}

// Scan runs the full pipeline against the target checkout. Manifests are
// parsed and source files enumerated first; then the dependency matcher,
// code scanner, and supply-chain scorer run concurrently and the scan waits
// for all three. Any scanner error aborts the whole scan.
func (e *Engine) Scan(ctx context.Context, target Target) (*Outcome, error) {
	started := time.Now()

	if target.RootPath == "" {
		return nil, fmt.Errorf("scan target has no root path")
	}
	info, err := os.Stat(target.RootPath)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", target.RootPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s is not a directory", target.RootPath)
	}

	if e.limits.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.limits.Timeout)
		defer cancel()
	}

	deps, err := parseManifests(target.RootPath)
	if err != nil {
		return nil, err
	}
	files, truncated, err := collectSourceFiles(ctx, target.RootPath, e.limits.MaxFiles, e.limits.MaxFileSize)
	if err != nil {
		return nil, err
	}

	logger.Info("scanning",
		zap.String("repo", target.RepoID),
		zap.Int("dependencies", len(deps)),
		zap.Int("files", len(files)),
		zap.Bool("truncated", truncated))

	var (
		depFindings  []model.Vulnerability
		codeFindings []model.Vulnerability
		risks        []model.DependencyRisk
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		depFindings = matchDependencies(e.catalog, deps)
		return nil
	})
	g.Go(func() error {
		var scanErr error
		codeFindings, scanErr = scanCodeFiles(gctx, e.catalog, target.RootPath, files)
		return scanErr
	})
	g.Go(func() error {
		risks = assessDependencies(e.catalog, deps)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	findings := make([]model.Vulnerability, 0, len(depFindings)+len(codeFindings))
	findings = append(findings, depFindings...)
	findings = append(findings, codeFindings...)

	// Keys are assigned here, not in the scanners, so scanner output stays
	// identical across reruns. Recommendations reference these keys.
	for i := range findings {
		findings[i].Key = uuid.NewString()
	}

	markVulnerablePackages(findings, risks)

	outcome := &Outcome{
		Findings:        findings,
		DependencyRisks: risks,
		Recommendations: synthesizeRecommendations(findings, risks),
		RiskScore:       riskScore(findings, risks),
		FilesScanned:    len(files),
		Truncated:       truncated,
		Duration:        time.Since(started),
	}
	outcome.Critical, outcome.High, outcome.Medium, outcome.Low = tallySeverities(findings)

	return outcome, nil
}

// ReportStore is the persistence surface the service needs
type ReportStore interface {
	CreateReport(ctx context.Context, report *model.SecurityReport) error
	UpdateReportStatus(ctx context.Context, key string, from, to model.ScanStatus) error
	CompleteReport(ctx context.Context, report *model.SecurityReport,
		findings []model.Vulnerability, risks []model.DependencyRisk, recs []model.Recommendation) error
	FailReport(ctx context.Context, key, cause string) error
}

// Service couples the engine to report persistence. It enforces at most one
// running scan per repository; concurrent requests get ErrScanInFlight.
type Service struct {
	engine *Engine
	store  ReportStore

	mu       sync.Mutex
	inFlight map[string]bool
}

// NewService builds a scan service around an engine and a report store
func NewService(engine *Engine, store ReportStore) *Service {
	return &Service{
		engine:   engine,
		store:    store,
		inFlight: make(map[string]bool),
	}
}

func (s *Service) acquire(repoID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[repoID] {
		return false
	}
	s.inFlight[repoID] = true
	return true
}

func (s *Service) release(repoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, repoID)
}

// RunScan executes a scan synchronously and returns the completed report
func (s *Service) RunScan(ctx context.Context, target Target) (*model.SecurityReport, error) {
	if target.RepoID == "" {
		return nil, fmt.Errorf("scan target has no repository id")
	}
	if !s.acquire(target.RepoID) {
		return nil, ErrScanInFlight
	}
	defer s.release(target.RepoID)

	report, err := s.createPending(ctx, target)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, report, target)
}

// TriggerScan creates the pending report synchronously, so the caller can
// poll it, then runs the scan in the background. Completion is observed
// through the report status.
func (s *Service) TriggerScan(ctx context.Context, target Target) (*model.SecurityReport, error) {
	if target.RepoID == "" {
		return nil, fmt.Errorf("scan target has no repository id")
	}
	if !s.acquire(target.RepoID) {
		return nil, ErrScanInFlight
	}

	report, err := s.createPending(ctx, target)
	if err != nil {
		s.release(target.RepoID)
		return nil, err
	}

	go func() {
		defer s.release(target.RepoID)
		if _, err := s.execute(context.Background(), report, target); err != nil {
			logger.Error("background scan failed",
				zap.String("report", report.Key),
				zap.String("repo", target.RepoID),
				zap.Error(err))
		}
	}()

	return report, nil
}

func (s *Service) createPending(ctx context.Context, target Target) (*model.SecurityReport, error) {
	report := model.NewSecurityReport()
	report.Key = uuid.NewString()
	report.RepoID = target.RepoID
	report.ProjectID = target.ProjectID
	report.CommitSha = target.CommitSha

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("creating report: %w", err)
	}
	return report, nil
}

func (s *Service) execute(ctx context.Context, report *model.SecurityReport, target Target) (*model.SecurityReport, error) {
	if err := s.store.UpdateReportStatus(ctx, report.Key, model.StatusPending, model.StatusScanning); err != nil {
		return nil, fmt.Errorf("marking report scanning: %w", err)
	}
	report.Status = model.StatusScanning

	outcome, err := s.engine.Scan(ctx, target)
	if err != nil {
		// The failure must be recorded even when ctx itself is what died.
		failCtx := context.WithoutCancel(ctx)
		if failErr := s.store.FailReport(failCtx, report.Key, err.Error()); failErr != nil {
			logger.Error("recording scan failure",
				zap.String("report", report.Key), zap.Error(failErr))
		}
		report.Status = model.StatusFailed
		report.Error = err.Error()
		return nil, err
	}

	for i := range outcome.Findings {
		outcome.Findings[i].ReportKey = report.Key
	}
	for i := range outcome.DependencyRisks {
		outcome.DependencyRisks[i].ReportKey = report.Key
	}
	for i := range outcome.Recommendations {
		outcome.Recommendations[i].ReportKey = report.Key
	}

	report.Status = model.StatusCompleted
	report.RiskScore = outcome.RiskScore
	report.TotalVulnerabilities = len(outcome.Findings)
	report.CriticalCount = outcome.Critical
	report.HighCount = outcome.High
	report.MediumCount = outcome.Medium
	report.LowCount = outcome.Low
	report.FilesScanned = outcome.FilesScanned
	report.Truncated = outcome.Truncated
	report.ScanDuration = outcome.Duration.Milliseconds()

	if err := s.store.CompleteReport(ctx, report, outcome.Findings, outcome.DependencyRisks, outcome.Recommendations); err != nil {
		return nil, fmt.Errorf("persisting report results: %w", err)
	}

	logger.Info("scan completed",
		zap.String("report", report.Key),
		zap.String("repo", report.RepoID),
		zap.Int("risk_score", report.RiskScore),
		zap.Int("findings", report.TotalVulnerabilities),
		zap.Duration("duration", outcome.Duration))

	return report, nil
}
