// Package executor is the execution worker: it pulls scheduled jobs from the
// marketplace, runs them and posts their output back.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type pendingJob struct {
	RequestID  uint   `json:"request_id"`
	ProviderID uint   `json:"provider_id"`
	CodeText   string `json:"code_text"`
}

type jobResult struct {
	RequestID  uint   `json:"request_id"`
	ProviderID uint   `json:"provider_id"`
	Output     string `json:"output"`
}

type resultReceived struct {
	Message     string `json:"message"`
	RequestID   uint   `json:"request_id"`
	CompletedAt string `json:"completed_at"`
}

// AgentConfig holds configuration for the worker agent.
type AgentConfig struct {
	ServerURL    string
	PollInterval time.Duration
	HTTPTimeout  time.Duration
}

// Agent polls the marketplace for scheduled jobs. A job keeps appearing in
// the pending list until its result is recorded, so the agent remembers the
// jobs it already delivered.
type Agent struct {
	id       string
	client   *resty.Client
	runner   Runner
	interval time.Duration
	seen     map[uint]struct{}
	logger   *zap.SugaredLogger
}

func NewAgent(config AgentConfig, runner Runner) *Agent {
	if config.PollInterval <= 0 {
		config.PollInterval = 10 * time.Second
	}
	if config.HTTPTimeout <= 0 {
		config.HTTPTimeout = 5 * time.Second
	}
	id := uuid.New().String()

	return &Agent{
		id: id,
		client: resty.New().
			SetBaseURL(strings.TrimRight(config.ServerURL, "/")).
			SetTimeout(config.HTTPTimeout).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "hpc-marketplace-executor/"+id),
		runner:   runner,
		interval: config.PollInterval,
		seen:     make(map[uint]struct{}),
		logger:   zap.S().Named("executor").With("agent-id", id),
	}
}

// Run polls until the context is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Infow("executor starting", "poll-interval", a.interval)
	for {
		if _, err := a.PollOnce(ctx); err != nil && ctx.Err() == nil {
			a.logger.Errorw("poll cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			a.logger.Info("executor stopped")
			return ctx.Err()
		case <-time.After(a.interval):
		}
	}
}

// PollOnce runs one poll cycle and returns how many results were delivered.
func (a *Agent) PollOnce(ctx context.Context) (int, error) {
	jobs, err := a.fetchPending(ctx)
	if err != nil {
		return 0, err
	}

	pending := make(map[uint]struct{}, len(jobs))
	delivered := 0
	for _, job := range jobs {
		pending[job.RequestID] = struct{}{}
		if _, ok := a.seen[job.RequestID]; ok {
			continue
		}
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}

		a.logger.Infow("executing job", "request-id", job.RequestID, "provider-id", job.ProviderID)
		output, err := a.runner.Run(ctx, job.RequestID, job.CodeText)
		if err != nil {
			a.logger.Errorw("job could not be executed", "request-id", job.RequestID, "error", err)
			continue
		}

		if err := a.postResult(ctx, jobResult{RequestID: job.RequestID, ProviderID: job.ProviderID, Output: output}); err != nil {
			a.logger.Errorw("failed to post result", "request-id", job.RequestID, "error", err)
			continue
		}
		a.seen[job.RequestID] = struct{}{}
		delivered++
	}

	// Jobs no longer pending are DONE and will not come back.
	for id := range a.seen {
		if _, ok := pending[id]; !ok {
			delete(a.seen, id)
		}
	}
	return delivered, nil
}

func (a *Agent) fetchPending(ctx context.Context) ([]pendingJob, error) {
	var jobs []pendingJob
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&jobs).
		Get("/execution/pending")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending jobs: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("unexpected response status fetching pending jobs: %d", resp.StatusCode())
	}
	return jobs, nil
}

func (a *Agent) postResult(ctx context.Context, result jobResult) error {
	var received resultReceived
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(result).
		SetResult(&received).
		Post("/execution/results")
	if err != nil {
		return fmt.Errorf("failed to post result: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("unexpected response status posting result: %d: %s", resp.StatusCode(), resp.String())
	}
	a.logger.Infow("result delivered",
		"request-id", result.RequestID,
		"output-size", len(result.Output),
		"message", received.Message,
		"completed-at", received.CompletedAt)
	return nil
}
