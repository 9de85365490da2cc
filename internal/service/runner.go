// internal/service/runner.go
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	appErrors "github.com/staystra/outreach-backend/internal/errors"
	"github.com/staystra/outreach-backend/internal/model"
	"github.com/staystra/outreach-backend/internal/repository"
)

// RunState is the orchestrator's lifecycle state.
type RunState int

const (
	RunStateIdle RunState = iota
	RunStateRunning
)

func (s RunState) String() string {
	if s == RunStateRunning {
		return "running"
	}
	return "idle"
}

// RunFailure records one skipped or failed property with a human-readable
// reason.
type RunFailure struct {
	Address string `json:"address"`
	Reason  string `json:"reason"`
}

// RunReport aggregates the outcome of one processing batch.
type RunReport struct {
	Processed int          `json:"processed"`
	Sent      int          `json:"sent"`
	Failed    []RunFailure `json:"failed"`
}

// CampaignCreator persists the pre-send campaign record.
type CampaignCreator interface {
	Create(c *model.Campaign) error
}

const (
	DefaultScoreThreshold = 90.0
	DefaultRunLimit       = 10
	DefaultPacing         = 3 * time.Second
)

// Runner is the single-flight outreach orchestrator: it selects eligible
// properties and processes them sequentially with a fixed pacing delay.
// Concurrent run attempts are rejected, not queued.
type Runner struct {
	Properties repository.PropertyRepositoryInterface
	Campaigns  CampaignCreator
	Resolver   *Resolver
	Dispatcher *Dispatcher

	ScoreThreshold  float64
	Pacing          time.Duration
	AnalyzerBaseURL string

	mu    sync.Mutex
	state RunState
}

func (r *Runner) State() RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) IsRunning() bool {
	return r.State() == RunStateRunning
}

func (r *Runner) begin() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == RunStateRunning {
		return false
	}
	r.state = RunStateRunning
	return true
}

func (r *Runner) finish() {
	r.mu.Lock()
	r.state = RunStateIdle
	r.mu.Unlock()
}

// TryRun starts a run in the background and reports whether it was started.
// Used by the HTTP trigger and the scheduler, which are mutually exclusive
// through the runner's state. The state is acquired before returning, so a
// true answer is authoritative: a concurrent caller cannot also get true.
func (r *Runner) TryRun(ctx context.Context, limit int) bool {
	if !r.begin() {
		return false
	}
	go func() {
		report, err := r.run(ctx, limit)
		if err != nil {
			log.Println("⚠️ Outreach run failed:", err)
			return
		}
		if report != nil {
			log.Printf("Outreach run completed: processed=%d sent=%d failed=%d\n",
				report.Processed, report.Sent, len(report.Failed))
		}
	}()
	return true
}

// Run executes one processing batch. It returns ErrRunBusy when another run
// holds the state, and releases the state on every exit path. Only a selector
// read failure aborts the whole run; per-item failures are recorded and the
// batch continues.
func (r *Runner) Run(ctx context.Context, limit int) (*RunReport, error) {
	if !r.begin() {
		return nil, appErrors.ErrRunBusy
	}
	return r.run(ctx, limit)
}

// run executes the batch. The caller must already hold the run state; it is
// released on every exit path.
func (r *Runner) run(ctx context.Context, limit int) (*RunReport, error) {
	defer r.finish()

	if limit <= 0 {
		limit = DefaultRunLimit
	}
	threshold := r.ScoreThreshold
	if threshold == 0 {
		threshold = DefaultScoreThreshold
	}
	pacing := r.Pacing
	if pacing == 0 {
		pacing = DefaultPacing
	}

	log.Printf("Starting outreach run (limit=%d, score>%g)\n", limit, threshold)

	candidates, err := r.Properties.SelectEligible(limit, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible properties: %w", err)
	}
	log.Printf("Found %d eligible properties to process\n", len(candidates))

	report := &RunReport{Failed: []RunFailure{}}

	for i := range candidates {
		cand := &candidates[i]
		log.Printf("Processing: %s (score: %g)\n", cand.Address, cand.Score)

		if reason := r.processOne(ctx, cand); reason != "" {
			report.Failed = append(report.Failed, RunFailure{Address: cand.Address, Reason: reason})
		} else {
			report.Processed++
			report.Sent++
		}

		// Pace between items to respect downstream rate limits.
		if i < len(candidates)-1 {
			select {
			case <-time.After(pacing):
			case <-ctx.Done():
				return report, ctx.Err()
			}
		}
	}

	return report, nil
}

// processOne runs the per-property pipeline and returns a failure reason, or
// "" on a successful send.
func (r *Runner) processOne(ctx context.Context, cand *model.PropertyCandidate) string {
	if errs := ValidateMetrics(cand); len(errs) > 0 {
		log.Println("Property failed validation checks:", strings.Join(errs, "; "))
		return "failed validation: " + strings.Join(errs, "; ")
	}

	agent := ExtractAgentInfo(cand.ListingData)
	if agent.Name == "" || agent.Phone == "" {
		log.Println("No agent name or phone found in listing data, skipping...")
		return "missing agent contact info"
	}
	log.Printf("Agent: %s (%s)\n", agent.Name, agent.Phone)

	resolution := r.Resolver.Resolve(ctx, agent.Name, agent.Phone, agent.City, agent.State)
	switch resolution.Kind {
	case ResolutionCooldown:
		log.Println("Agent was contacted within the cooldown window, skipping...")
		return "recently contacted (< 30 days)"
	case ResolutionNotFound:
		log.Println("Could not find agent email, skipping...")
		return "email not found"
	}

	campaign := BuildCampaign(cand, agent, resolution.Email, r.AnalyzerBaseURL)
	if err := r.Campaigns.Create(campaign); err != nil {
		log.Println("⚠️ failed to save campaign:", err)
		return "failed to save campaign: " + err.Error()
	}

	if _, err := r.Dispatcher.Send(ctx, campaign); err != nil {
		log.Println("⚠️", err)
		return err.Error()
	}

	return ""
}
