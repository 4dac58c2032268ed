package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/greenroute/greenroute/internal/snapshot"
)

// RefreshJob keeps the snapshot cache warm for the configured areas.
type RefreshJob struct {
	config   RefreshConfig
	logger   zerolog.Logger
	snapshot *snapshot.Service

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns         int64
	SuccessfulTargets int64
	FailedTargets     int64
	LastRunAt         time.Time
	LastRunDuration   time.Duration
	TotalDuration     time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config   RefreshConfig
	Logger   zerolog.Logger
	Snapshot *snapshot.Service
}

// NewRefreshJob creates a refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	if len(config.Targets) == 0 {
		config.Targets = DefaultRefreshTargets()
	}
	if config.Concurrency == 0 {
		config.Concurrency = 3
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &RefreshJob{
		config:   config,
		logger:   cfg.Logger.With().Str("component", "refresh_job").Logger(),
		snapshot: cfg.Snapshot,
		metrics:  &RefreshMetrics{},
	}
}

// RefreshResult contains the outcome of one refresh run.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	Errors       []RefreshError
}

// RefreshError records a failed target refresh.
type RefreshError struct {
	Target string
	Error  string
}

// Run refreshes every configured target through a small worker pool.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	startTime := time.Now()
	targets := j.config.OrderedTargets()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalTargets: len(targets),
	}

	j.logger.Info().
		Int("targets", len(targets)).
		Int("concurrency", j.config.Concurrency).
		Msg("starting snapshot refresh job")

	targetsChan := make(chan RefreshTarget, len(targets))
	resultsChan := make(chan targetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < j.config.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, targetsChan, resultsChan)
		}()
	}

	for _, t := range targets {
		targetsChan <- t
	}
	close(targetsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		if tr.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{
			Target: tr.target.Name,
			Error:  tr.err.Error(),
		})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("snapshot refresh job completed")

	return result
}

type targetResult struct {
	target RefreshTarget
	err    error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, targets <-chan RefreshTarget, results chan<- targetResult) {
	for target := range targets {
		select {
		case <-ctx.Done():
			results <- targetResult{target: target, err: ctx.Err()}
		default:
			results <- targetResult{target: target, err: j.refreshTarget(ctx, target)}
		}
	}
}

func (j *RefreshJob) refreshTarget(ctx context.Context, target RefreshTarget) error {
	targetCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	j.logger.Debug().Str("target", target.Name).Msg("refreshing snapshot")
	return j.snapshot.Refresh(targetCtx, target.Center, target.RadiusKm)
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulTargets += int64(result.Successful)
	j.metrics.FailedTargets += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:         j.metrics.TotalRuns,
		SuccessfulTargets: j.metrics.SuccessfulTargets,
		FailedTargets:     j.metrics.FailedTargets,
		LastRunAt:         j.metrics.LastRunAt,
		LastRunDuration:   j.metrics.LastRunDuration,
		TotalDuration:     j.metrics.TotalDuration,
	}
}
