// Package runtime is the engine façade: it orchestrates credits, validation,
// scheduling, persistence and monitoring for one Run call. Hosts construct a
// single Runtime at startup with explicit collaborators — no singletons — and
// invoke Run once per execution, from as many goroutines as they like.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"flowline.dev/flowline/engine/credit"
	"flowline.dev/flowline/engine/execution"
	"flowline.dev/flowline/engine/monitor"
	"flowline.dev/flowline/engine/object"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/schedule"
	"flowline.dev/flowline/engine/snapshot"
	"flowline.dev/flowline/engine/step"
	"flowline.dev/flowline/engine/telemetry"
	"flowline.dev/flowline/engine/trigger"
	"flowline.dev/flowline/engine/validate"
	"flowline.dev/flowline/engine/workflow"
)

var (
	// ErrInsufficientCredits means the organization's balance does not cover
	// the requested run. The returned record carries the terminal error state.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrValidationFailed means the workflow failed static validation. The
	// record's error message lists every validator finding.
	ErrValidationFailed = errors.New("workflow validation failed")
)

type (
	// Options configures a Runtime. Registry, Objects and Executions are
	// required; everything else defaults to an inert implementation.
	Options struct {
		// Registry resolves node types. Built once at startup, immutable after.
		Registry *registry.Registry
		// Objects stores binary parameter payloads.
		Objects object.Store
		// Executions persists the final record of every run.
		Executions execution.Store
		// Credits gates and meters runs. Defaults to credit.Unlimited.
		Credits credit.Service
		// Sink streams progress snapshots to observer sessions. Defaults to a
		// no-op sink.
		Sink monitor.Sink
		// Snapshots, when set, freezes the executed graph and the final record
		// as JSON artifacts next to the execution's objects.
		Snapshots *snapshot.Store
		// Steps runs named step units; hosts with durable execution substitute
		// their own. Defaults to step.Direct{}.
		Steps step.Runner
		// Logger, Metrics and Tracer default to no-op implementations.
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		Tracer  telemetry.Tracer
		// Env, Secrets and Integrations are handed to every node context.
		Env          map[string]string
		Secrets      registry.SecretSource
		Integrations registry.IntegrationSource
	}

	// Params describes one run request.
	Params struct {
		// Workflow is the graph to execute. Required.
		Workflow workflow.Workflow
		// OrganizationID is the triggering organization. Required.
		OrganizationID string
		// ComputeCredits is the requested budget. Zero skips the balance check
		// (free run); usage is still recorded.
		ComputeCredits int64
		// UserID identifies the triggering user, if any.
		UserID string
		// DeploymentID ties the run to a deployment, if any.
		DeploymentID string
		// MonitorSession enables progress streaming to the named observer
		// session. Empty disables monitoring sends.
		MonitorSession string
		// Trigger payloads; at most one is set, matching the workflow trigger.
		HTTPRequest  *trigger.HTTPRequest
		EmailMessage *trigger.EmailMessage
		QueueMessage *trigger.QueueMessage
		ScheduledAt  *time.Time
		// Visibility controls whether execution-owned objects are readable
		// outside the organization. Defaults to private.
		Visibility execution.Visibility
	}

	// Runtime orchestrates the engine components for individual runs and owns
	// the per-execution cancellation flags.
	Runtime struct {
		opts Options

		mu      sync.Mutex
		cancels map[string]*schedule.CancelFlag
	}
)

// New constructs a Runtime, validating required collaborators and defaulting
// the rest.
func New(opts Options) (*Runtime, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Objects == nil {
		return nil, errors.New("object store is required")
	}
	if opts.Executions == nil {
		return nil, errors.New("execution store is required")
	}
	if opts.Credits == nil {
		opts.Credits = credit.Unlimited{}
	}
	if opts.Sink == nil {
		opts.Sink = monitor.NoopSink{}
	}
	if opts.Steps == nil {
		opts.Steps = step.Direct{}
	}
	if opts.Logger == nil {
		opts.Logger = telemetry.NewNoopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = telemetry.NewNoopMetrics()
	}
	if opts.Tracer == nil {
		opts.Tracer = telemetry.NewNoopTracer()
	}
	return &Runtime{opts: opts, cancels: make(map[string]*schedule.CancelFlag)}, nil
}

// Run executes the workflow described by p under the given execution id and
// returns the terminal record. An empty executionID is replaced by a fresh
// time-ordered id. Budget and validation failures return the record together
// with ErrInsufficientCredits or ErrValidationFailed; node failures terminate
// the record with status error and a nil returned error; only engine-level
// failures (storage) surface as other errors.
func (r *Runtime) Run(ctx context.Context, p Params, executionID string) (execution.Record, error) {
	if p.OrganizationID == "" {
		return execution.Record{}, errors.New("organization id is required")
	}
	if executionID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return execution.Record{}, fmt.Errorf("generate execution id: %w", err)
		}
		executionID = id.String()
	}
	ctx, end := r.opts.Tracer.Start(ctx, "workflow.run")
	var runErr error
	defer func() { end(runErr) }()

	now := time.Now().UTC()
	visibility := p.Visibility
	if visibility == "" {
		visibility = execution.VisibilityPrivate
	}
	rec := execution.Record{
		ID:             executionID,
		WorkflowID:     p.Workflow.ID,
		DeploymentID:   p.DeploymentID,
		OrganizationID: p.OrganizationID,
		Status:         execution.StatusExecuting,
		StartedAt:      &now,
		Visibility:     visibility,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.opts.Logger.Info(ctx, "execution started",
		"execution_id", rec.ID, "workflow_id", rec.WorkflowID, "organization_id", rec.OrganizationID)

	cancel := schedule.NewCancelFlag()
	r.register(rec.ID, cancel)
	defer r.unregister(rec.ID)

	if p.ComputeCredits > 0 {
		ok, err := r.opts.Credits.HasEnoughCredits(ctx, p.OrganizationID)
		if err != nil {
			runErr = fmt.Errorf("check credits: %w", err)
			return r.finalize(ctx, rec, p.MonitorSession, runErr.Error()), runErr
		}
		if !ok {
			runErr = ErrInsufficientCredits
			return r.finalize(ctx, rec, p.MonitorSession, ErrInsufficientCredits.Error()), runErr
		}
	}

	if errs := validate.Validate(r.opts.Registry, p.Workflow); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		joined := strings.Join(msgs, "; ")
		runErr = fmt.Errorf("%w: %s", ErrValidationFailed, joined)
		return r.finalize(ctx, rec, p.MonitorSession, joined), runErr
	}

	if r.opts.Snapshots != nil {
		if err := r.opts.Snapshots.WriteExecutionWorkflow(ctx, rec.ID, p.Workflow); err != nil {
			runErr = fmt.Errorf("freeze workflow: %w", err)
			return r.finalize(ctx, rec, p.MonitorSession, runErr.Error()), runErr
		}
	}

	sched, err := schedule.New(schedule.Options{
		Workflow:     p.Workflow,
		Registry:     r.opts.Registry,
		Objects:      r.opts.Objects,
		Steps:        r.opts.Steps,
		Sink:         r.opts.Sink,
		SessionID:    p.MonitorSession,
		Logger:       r.opts.Logger,
		Metrics:      r.opts.Metrics,
		Cancel:       cancel,
		Env:          r.opts.Env,
		Secrets:      r.opts.Secrets,
		Integrations: r.opts.Integrations,
		Trigger: trigger.Payloads{
			HTTPRequest:  p.HTTPRequest,
			EmailMessage: p.EmailMessage,
			QueueMessage: p.QueueMessage,
			ScheduledAt:  p.ScheduledAt,
		},
	})
	if err != nil {
		runErr = err
		return r.finalize(ctx, rec, p.MonitorSession, err.Error()), runErr
	}
	if err := sched.Run(ctx, &rec); err != nil {
		runErr = fmt.Errorf("schedule: %w", err)
		return r.finalize(ctx, rec, p.MonitorSession, runErr.Error()), runErr
	}

	final := r.finalize(ctx, rec, p.MonitorSession, rec.Error)
	return final, nil
}

// Cancel raises the cooperative cancellation flag of an in-flight execution.
// It reports whether the execution was found; a finished execution is not.
func (r *Runtime) Cancel(executionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.cancels[executionID]
	if ok {
		flag.Raise()
	}
	return ok
}

// finalize stamps the terminal state on the record, records usage, persists
// the record and emits the final monitoring update. Persistence failures are
// logged and reflected in the record error but never panic the run.
func (r *Runtime) finalize(ctx context.Context, rec execution.Record, session, errMsg string) execution.Record {
	ended := time.Now().UTC()
	rec.EndedAt = &ended
	rec.UpdatedAt = ended
	rec.Error = errMsg
	if rec.Error == "" {
		for _, ne := range rec.NodeExecutions {
			if ne.Status == execution.StatusError {
				rec.Error = fmt.Sprintf("node '%s' failed: %s", ne.NodeID, ne.Error)
				break
			}
		}
	}
	if rec.Error != "" {
		rec.Status = execution.StatusError
	} else {
		rec.Status = execution.StatusCompleted
	}

	if usage := rec.Usage(); usage > 0 {
		if err := r.opts.Credits.RecordUsage(ctx, rec.OrganizationID, usage); err != nil {
			r.opts.Logger.Warn(ctx, "usage recording failed",
				"execution_id", rec.ID, "usage", usage, "error", err.Error())
		}
	}

	if err := r.opts.Executions.Save(ctx, rec); err != nil {
		r.opts.Logger.Error(ctx, err, "execution record save failed", "execution_id", rec.ID)
	}
	if r.opts.Snapshots != nil {
		if err := r.opts.Snapshots.WriteExecution(ctx, rec); err != nil {
			r.opts.Logger.Error(ctx, err, "execution snapshot failed", "execution_id", rec.ID)
		}
	}

	if session != "" {
		update := monitor.Update{SessionID: session, Final: true, Execution: rec.Clone()}
		if err := r.opts.Sink.Send(ctx, update); err != nil {
			r.opts.Logger.Warn(ctx, "final monitoring update dropped",
				"execution_id", rec.ID, "error", err.Error())
		}
	}

	r.opts.Metrics.AddCounter("flowline.executions", 1, "status", string(rec.Status))
	if rec.StartedAt != nil {
		r.opts.Metrics.RecordDuration("flowline.execution.duration", ended.Sub(*rec.StartedAt))
	}
	r.opts.Logger.Info(ctx, "execution finished",
		"execution_id", rec.ID, "status", string(rec.Status), "usage", rec.Usage())
	return rec
}

// AuthorizeObjectRead decides whether a reader may fetch an object: the
// owning organization always may; anyone may when the object belongs to a
// public execution and rec is that execution's record.
func AuthorizeObjectRead(meta object.Metadata, organizationID string, rec *execution.Record) bool {
	if meta.OrganizationID != "" && meta.OrganizationID == organizationID {
		return true
	}
	if rec == nil || meta.ExecutionID == "" {
		return false
	}
	return rec.ID == meta.ExecutionID && rec.Visibility == execution.VisibilityPublic
}

func (r *Runtime) register(id string, flag *schedule.CancelFlag) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = flag
}

func (r *Runtime) unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cancels, id)
}
