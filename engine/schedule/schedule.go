// Package schedule implements the workflow scheduler: a data-driven,
// level-synchronous dispatcher with conditional skipping. Given a validated
// graph and an execution record, it resolves every node to exactly one of
// completed, skipped or error, in data-dependency order.
//
// The scheduler is single-threaded per execution: node dispatch is serialized
// so node bodies observe a consistent view of upstream outputs. A host runs
// many schedulers in parallel; they share only the object store, the registry
// (read-only) and the monitoring sink.
//
// Skip semantics: a completed node that omits a declared output (the
// conditional fork emits exactly one of its branches) produces a skip signal
// on every edge reading that output. A node whose required input receives
// nothing but skip signals skips transitively — no execute call, no usage.
// Skip propagation stops at a conditional join, which is ready as soon as one
// branch value is present, and at nodes whose inputs are otherwise bound.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"flowline.dev/flowline/engine/execution"
	"flowline.dev/flowline/engine/monitor"
	"flowline.dev/flowline/engine/object"
	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/step"
	"flowline.dev/flowline/engine/telemetry"
	"flowline.dev/flowline/engine/trigger"
	"flowline.dev/flowline/engine/workflow"
)

// ErrAborted is the execution error recorded when a run is cancelled before
// all nodes resolved.
var ErrAborted = errors.New("aborted")

type (
	// CancelFlag is the cooperative cancellation signal shared between the
	// runtime façade and one scheduler. Raising it stops scheduling of
	// not-yet-started nodes; an in-flight node is allowed to finish.
	CancelFlag struct {
		raised atomic.Bool
	}

	// Options configures a Scheduler for one execution.
	Options struct {
		// Workflow is the validated graph to execute. Required.
		Workflow workflow.Workflow
		// Registry resolves node types to executables. Required.
		Registry *registry.Registry
		// Objects stores binary parameter payloads. Required.
		Objects object.Store
		// Steps runs the named per-node step units. Defaults to step.Direct{}.
		Steps step.Runner
		// Sink receives execution snapshots after every step. Defaults to a
		// no-op sink.
		Sink monitor.Sink
		// SessionID identifies the observer session. Empty disables monitoring
		// sends entirely.
		SessionID string
		// Logger and Metrics default to no-op implementations.
		Logger  telemetry.Logger
		Metrics telemetry.Metrics
		// Cancel is the cooperative cancellation flag. Defaults to a fresh flag.
		Cancel *CancelFlag
		// Env, Secrets, Integrations and Trigger are passed through to every
		// node context.
		Env          map[string]string
		Secrets      registry.SecretSource
		Integrations registry.IntegrationSource
		Trigger      trigger.Payloads
	}

	// Scheduler drives one execution to completion.
	Scheduler struct {
		wf      workflow.Workflow
		reg     *registry.Registry
		objects object.Store
		steps   step.Runner
		sink    monitor.Sink
		session string
		logger  telemetry.Logger
		metrics telemetry.Metrics
		cancel  *CancelFlag

		env          map[string]string
		secrets      registry.SecretSource
		integrations registry.IntegrationSource
		trigger      trigger.Payloads

		// resolved holds the terminal state of every settled node; outputs
		// holds completed nodes' wire-form outputs.
		resolved map[string]execution.Status
		outputs  map[string]map[string]param.Value
	}

	decisionKind int

	// decision is the outcome of resolving one node against the current state.
	decision struct {
		kind     decisionKind
		upstream string          // failing producer for decideError
		bindings registry.Inputs // wire-form inputs for decideRun
	}

	// inputState is the resolved view of one input: values delivered by edges,
	// the number of edges targeting it, and the first errored required producer.
	inputState struct {
		input    workflow.Input
		values   []param.Value
		edges    int
		upstream string
	}
)

const (
	decideWait decisionKind = iota
	decideRun
	decideSkip
	decideError
)

// NewCancelFlag constructs an unraised flag.
func NewCancelFlag() *CancelFlag { return &CancelFlag{} }

// Raise requests cancellation. Safe to call from any goroutine, idempotent.
func (f *CancelFlag) Raise() { f.raised.Store(true) }

// Raised reports whether cancellation was requested.
func (f *CancelFlag) Raised() bool { return f.raised.Load() }

// New constructs a Scheduler. Workflow, Registry and Objects are required;
// every other collaborator defaults to an inert implementation.
func New(opts Options) (*Scheduler, error) {
	if len(opts.Workflow.Nodes) == 0 {
		return nil, errors.New("workflow has no nodes")
	}
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if opts.Objects == nil {
		return nil, errors.New("object store is required")
	}
	s := &Scheduler{
		wf:           opts.Workflow,
		reg:          opts.Registry,
		objects:      opts.Objects,
		steps:        opts.Steps,
		sink:         opts.Sink,
		session:      opts.SessionID,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		cancel:       opts.Cancel,
		env:          opts.Env,
		secrets:      opts.Secrets,
		integrations: opts.Integrations,
		trigger:      opts.Trigger,
		resolved:     make(map[string]execution.Status, len(opts.Workflow.Nodes)),
		outputs:      make(map[string]map[string]param.Value, len(opts.Workflow.Nodes)),
	}
	if s.steps == nil {
		s.steps = step.Direct{}
	}
	if s.sink == nil {
		s.sink = monitor.NoopSink{}
	}
	if s.logger == nil {
		s.logger = telemetry.NewNoopLogger()
	}
	if s.metrics == nil {
		s.metrics = telemetry.NewNoopMetrics()
	}
	if s.cancel == nil {
		s.cancel = NewCancelFlag()
	}
	return s, nil
}

// Run executes the workflow, appending one NodeExecution per node to rec and
// emitting a monitoring snapshot after every step. It returns an error only
// for engine-level failures (object storage); node failures and cancellation
// are recorded in rec. On a validated graph Run terminates within
// O(|nodes| + |edges|) sweeps.
func (s *Scheduler) Run(ctx context.Context, rec *execution.Record) error {
	for {
		progressed := false
		for _, node := range s.wf.Nodes {
			if _, done := s.resolved[node.ID]; done {
				continue
			}
			if s.cancel.Raised() || ctx.Err() != nil {
				s.abort(ctx, rec)
				return nil
			}
			d := s.decide(node)
			switch d.kind {
			case decideWait:
				continue
			case decideSkip:
				s.settle(ctx, rec, node, execution.NodeExecution{
					NodeID: node.ID,
					Status: execution.StatusSkipped,
				})
			case decideError:
				s.settle(ctx, rec, node, execution.NodeExecution{
					NodeID: node.ID,
					Status: execution.StatusError,
					Error:  fmt.Sprintf("upstream '%s' failed", d.upstream),
				})
			case decideRun:
				if err := s.runNode(ctx, rec, node, d.bindings); err != nil {
					return err
				}
			}
			progressed = true
		}
		if !progressed {
			break
		}
	}
	// A validated graph always resolves fully; anything left indicates an
	// inconsistency between validator and scheduler and is surfaced per node.
	for _, node := range s.wf.Nodes {
		if _, done := s.resolved[node.ID]; !done {
			s.settle(ctx, rec, node, execution.NodeExecution{
				NodeID: node.ID,
				Status: execution.StatusError,
				Error:  "unresolvable inputs",
			})
		}
	}
	return nil
}

// decide resolves one node against the current state: wait for upstream,
// execute with bindings, skip, or fail from an upstream error.
func (s *Scheduler) decide(node workflow.Node) decision {
	states := make([]inputState, 0, len(node.Inputs))
	incoming := s.wf.Incoming(node.ID)
	for _, in := range node.Inputs {
		st := inputState{input: in}
		for _, e := range incoming {
			if e.Input != in.Name {
				continue
			}
			st.edges++
			status, done := s.resolved[e.From]
			if !done {
				return decision{kind: decideWait}
			}
			switch status {
			case execution.StatusCompleted:
				if v, ok := s.outputs[e.From][e.Output]; ok {
					st.values = append(st.values, v)
				}
				// Absent output: skip signal from an un-taken branch.
			case execution.StatusSkipped:
				// Skip signal.
			case execution.StatusError:
				if st.upstream == "" {
					st.upstream = e.From
				}
			}
		}
		states = append(states, st)
	}

	if node.Type == workflow.TypeConditionalJoin {
		return s.decideJoin(states)
	}

	bindings := make(registry.Inputs, len(states))
	for _, st := range states {
		if st.upstream != "" && st.input.Required {
			return decision{kind: decideError, upstream: st.upstream}
		}
		switch {
		case len(st.values) > 0:
			bindings[st.input.Name] = st.values
		case st.input.Value != nil:
			// Literal default: used when no edge delivered a value, including
			// when every incoming edge carried a skip signal.
			bindings[st.input.Name] = []param.Value{*st.input.Value}
		case st.input.Required:
			if st.edges > 0 {
				// Every source of a required input skipped: the node skips too.
				return decision{kind: decideSkip}
			}
			// Unreachable on a validated graph.
			return decision{kind: decideSkip}
		}
	}
	return decision{kind: decideRun, bindings: bindings}
}

// decideJoin applies conditional join readiness: the join forwards whichever
// branch is present and skips only when both branches skipped. Upstream
// errors propagate as usual.
func (s *Scheduler) decideJoin(states []inputState) decision {
	bindings := make(registry.Inputs)
	bound := false
	for _, st := range states {
		if st.upstream != "" {
			return decision{kind: decideError, upstream: st.upstream}
		}
		if len(st.values) > 0 {
			bindings[st.input.Name] = st.values
			bound = true
		}
	}
	if !bound {
		return decision{kind: decideSkip}
	}
	return decision{kind: decideRun, bindings: bindings}
}

// runNode performs the five-step node lifecycle inside one named step unit:
// convert wire inputs to engine form, execute, convert outputs back to wire
// form, record the trace entry, emit a monitoring update. Node failures
// (including panics, type mismatches in outputs and step timeouts) settle the
// node as errored; only object storage failures are returned to the caller.
func (s *Scheduler) runNode(ctx context.Context, rec *execution.Record, node workflow.Node, wire registry.Inputs) error {
	desc, ok := s.reg.Lookup(node.Type)
	if !ok {
		// Validation guarantees registration; treat as a node error if reached.
		s.settle(ctx, rec, node, execution.NodeExecution{
			NodeID: node.ID,
			Status: execution.StatusError,
			Error:  fmt.Sprintf("unregistered node type %q", node.Type),
		})
		return nil
	}
	started := time.Now()
	s.logger.Debug(ctx, "node execution started", "node_id", node.ID, "node_type", node.Type, "execution_id", rec.ID)

	var (
		outputs map[string]param.Value
		nodeErr error
	)
	err := s.steps.Do(ctx, "node/"+node.ID, func(stepCtx context.Context) error {
		engine, convErr := s.materialize(stepCtx, node, wire)
		if convErr != nil {
			if errors.Is(convErr, param.ErrTypeMismatch) {
				nodeErr = convErr
				return nil
			}
			return convErr
		}
		result, execErr := s.execute(stepCtx, rec, node, engine)
		if execErr != nil {
			nodeErr = execErr
			return nil
		}
		wireOut, wireErr := s.publish(stepCtx, rec, node, result)
		if wireErr != nil {
			if errors.Is(wireErr, param.ErrTypeMismatch) {
				nodeErr = wireErr
				return nil
			}
			return wireErr
		}
		outputs = wireOut
		return nil
	})
	if err != nil {
		if errors.Is(err, step.ErrTimeout) {
			nodeErr = step.ErrTimeout
		} else {
			return err
		}
	}

	elapsed := time.Since(started)
	entry := execution.NodeExecution{NodeID: node.ID}
	if nodeErr != nil {
		entry.Status = execution.StatusError
		entry.Error = nodeErr.Error()
		s.logger.Error(ctx, nodeErr, "node execution failed", "node_id", node.ID, "node_type", node.Type, "execution_id", rec.ID)
	} else {
		entry.Status = execution.StatusCompleted
		entry.Outputs = outputs
		entry.Usage = desc.ComputeCost
		s.outputs[node.ID] = outputs
		s.logger.Debug(ctx, "node execution completed", "node_id", node.ID, "node_type", node.Type, "duration_ms", elapsed.Milliseconds())
	}
	s.metrics.AddCounter("flowline.node.executions", 1, "type", node.Type, "status", string(entry.Status))
	s.metrics.RecordDuration("flowline.node.duration", elapsed, "type", node.Type)
	s.settle(ctx, rec, node, entry)
	return nil
}

// materialize converts wire-form bindings into the engine form handed to the
// node, loading binary payloads from the object store.
func (s *Scheduler) materialize(ctx context.Context, node workflow.Node, wire registry.Inputs) (registry.Inputs, error) {
	engine := make(registry.Inputs, len(wire))
	for name, values := range wire {
		in, ok := node.Input(name)
		if !ok {
			continue
		}
		converted := make([]param.Value, 0, len(values))
		for _, v := range values {
			ev, err := param.FromWire(ctx, in.Type, v, s.objects)
			if err != nil {
				return nil, err
			}
			converted = append(converted, ev)
		}
		engine[name] = converted
	}
	return engine, nil
}

// execute builds a fresh executable for the node and invokes it, mapping
// panics to node errors.
func (s *Scheduler) execute(ctx context.Context, rec *execution.Record, node workflow.Node, inputs registry.Inputs) (out map[string]param.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("node panic: %v", r)
		}
	}()
	exec, err := s.reg.NewExecutable(node)
	if err != nil {
		return nil, err
	}
	nc := &registry.Context{
		NodeID:         node.ID,
		WorkflowID:     s.wf.ID,
		ExecutionID:    rec.ID,
		OrganizationID: rec.OrganizationID,
		Inputs:         inputs,
		Env:            s.env,
		Secrets:        s.secrets,
		Integrations:   s.integrations,
		Trigger:        s.trigger,
		OnProgress: func(message string) {
			s.logger.Debug(ctx, "node progress", "node_id", node.ID, "message", message)
		},
	}
	return exec.Execute(ctx, nc)
}

// publish converts engine-form outputs back to wire form, writing fresh
// binary payloads to the object store under the execution's ownership.
// Undeclared outputs are a node error.
func (s *Scheduler) publish(ctx context.Context, rec *execution.Record, node workflow.Node, result map[string]param.Value) (map[string]param.Value, error) {
	owner := object.Ownership{OrganizationID: rec.OrganizationID, ExecutionID: rec.ID}
	wire := make(map[string]param.Value, len(result))
	for name, v := range result {
		out, ok := node.Output(name)
		if !ok {
			return nil, fmt.Errorf("%w: undeclared output %q", param.ErrTypeMismatch, name)
		}
		wv, err := param.ToWire(ctx, out.Type, v, s.objects, owner)
		if err != nil {
			return nil, err
		}
		wire[name] = wv
	}
	return wire, nil
}

// settle records the node's terminal state and pushes a monitoring snapshot.
func (s *Scheduler) settle(ctx context.Context, rec *execution.Record, node workflow.Node, entry execution.NodeExecution) {
	s.resolved[node.ID] = entry.Status
	rec.NodeExecutions = append(rec.NodeExecutions, entry)
	rec.UpdatedAt = time.Now().UTC()
	s.notify(ctx, rec)
}

// abort marks every unresolved node as skipped and records the aborted error
// on the execution. In-flight work has already finished by the time abort
// runs; only not-yet-started nodes are affected.
func (s *Scheduler) abort(ctx context.Context, rec *execution.Record) {
	for _, node := range s.wf.Nodes {
		if _, done := s.resolved[node.ID]; done {
			continue
		}
		s.resolved[node.ID] = execution.StatusSkipped
		rec.NodeExecutions = append(rec.NodeExecutions, execution.NodeExecution{
			NodeID: node.ID,
			Status: execution.StatusSkipped,
		})
	}
	rec.Error = ErrAborted.Error()
	rec.UpdatedAt = time.Now().UTC()
	s.logger.Info(ctx, "execution aborted", "execution_id", rec.ID)
	s.notify(ctx, rec)
}

// notify pushes a snapshot to the observer session, logging and swallowing
// delivery failures. The sink must never block or fail the run.
func (s *Scheduler) notify(ctx context.Context, rec *execution.Record) {
	if s.session == "" {
		return
	}
	update := monitor.Update{SessionID: s.session, Execution: rec.Clone()}
	if err := s.sink.Send(ctx, update); err != nil {
		s.logger.Warn(ctx, "monitoring update dropped", "execution_id", rec.ID, "error", err.Error())
	}
}
