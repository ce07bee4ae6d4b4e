// Package workflow defines the static workflow graph model: typed nodes wired
// by directed edges. Workflows are authored externally (UI, YAML, API) and are
// immutable for the duration of an execution; the engine only ever reads them.
package workflow

import (
	"fmt"

	"flowline.dev/flowline/engine/param"
)

// TriggerType tags how a workflow is started.
type TriggerType string

const (
	// TriggerManual marks workflows started explicitly by a user.
	TriggerManual TriggerType = "manual"
	// TriggerHTTPWebhook marks workflows started by an inbound webhook.
	TriggerHTTPWebhook TriggerType = "http_webhook"
	// TriggerHTTPRequest marks workflows invoked as synchronous HTTP endpoints.
	TriggerHTTPRequest TriggerType = "http_request"
	// TriggerEmailMessage marks workflows started by an inbound email.
	TriggerEmailMessage TriggerType = "email_message"
	// TriggerScheduled marks workflows started by a schedule tick.
	TriggerScheduled TriggerType = "scheduled"
	// TriggerQueueMessage marks workflows started by a queue message.
	TriggerQueueMessage TriggerType = "queue_message"
)

// Node types the scheduler understands as branching primitives. Their
// implementations live in the nodes package; the scheduler only needs the
// identifiers to apply join readiness rules.
const (
	// TypeConditionalFork emits exactly one of its true/false outputs per
	// execution; the absent output is the skip signal for the un-taken branch.
	TypeConditionalFork = "conditional-fork"
	// TypeConditionalJoin forwards whichever of its true/false inputs is bound.
	TypeConditionalJoin = "conditional-join"
)

type (
	// Workflow is a static directed graph of typed nodes and edges, immutable
	// per execution.
	Workflow struct {
		// ID uniquely identifies the workflow.
		ID string `json:"id" yaml:"id"`
		// Handle is the URL-safe workflow identifier within its organization.
		Handle string `json:"handle" yaml:"handle"`
		// Name is the display name.
		Name string `json:"name" yaml:"name"`
		// Trigger tags how executions of this workflow start.
		Trigger TriggerType `json:"trigger" yaml:"trigger"`
		// Nodes is the ordered node sequence. Order is stable and used by the
		// scheduler for deterministic sweeps.
		Nodes []Node `json:"nodes" yaml:"nodes"`
		// Edges is the set of directed connections between node parameters.
		Edges []Edge `json:"edges" yaml:"edges"`
	}

	// Node is one typed computation in a workflow. Its Type must resolve in
	// the node registry; Inputs and Outputs declare the instance's parameter
	// schema, including any literal values pre-set by the author.
	Node struct {
		// ID is unique and stable within the workflow.
		ID string `json:"id" yaml:"id"`
		// Type identifies the node implementation in the registry.
		Type string `json:"type" yaml:"type"`
		// Name is optional display metadata.
		Name string `json:"name,omitempty" yaml:"name,omitempty"`
		// Inputs is the ordered sequence of input parameters.
		Inputs []Input `json:"inputs,omitempty" yaml:"inputs,omitempty"`
		// Outputs is the ordered sequence of output parameters.
		Outputs []Output `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	}

	// Input declares one named node input.
	Input struct {
		// Name identifies the input on its node.
		Name string `json:"name" yaml:"name"`
		// Type is the declared parameter kind.
		Type param.Kind `json:"type" yaml:"type"`
		// Required inputs must be literally bound or edge-fed for the workflow
		// to validate.
		Required bool `json:"required,omitempty" yaml:"required,omitempty"`
		// Repeated inputs accept multiple incoming edges, accumulated into an
		// ordered list in edge declaration order.
		Repeated bool `json:"repeated,omitempty" yaml:"repeated,omitempty"`
		// Hidden marks configuration inputs that are not rendered as ports.
		Hidden bool `json:"hidden,omitempty" yaml:"hidden,omitempty"`
		// Value is the literal default or author-set configuration value. An
		// edge value wins over it unless the edge delivered a skip signal.
		Value *param.Value `json:"value,omitempty" yaml:"value,omitempty"`
	}

	// Output declares one named node output.
	Output struct {
		// Name identifies the output on its node.
		Name string `json:"name" yaml:"name"`
		// Type is the declared parameter kind.
		Type param.Kind `json:"type" yaml:"type"`
	}

	// Edge connects one node output to one node input.
	Edge struct {
		// From is the source node id.
		From string `json:"from" yaml:"from"`
		// Output is the named output on the source node.
		Output string `json:"output" yaml:"output"`
		// To is the target node id.
		To string `json:"to" yaml:"to"`
		// Input is the named input on the target node.
		Input string `json:"input" yaml:"input"`
	}
)

// Node returns the node with the given id.
func (w Workflow) Node(id string) (Node, bool) {
	for _, n := range w.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Incoming returns the edges targeting the given node, in declaration order.
func (w Workflow) Incoming(nodeID string) []Edge {
	var edges []Edge
	for _, e := range w.Edges {
		if e.To == nodeID {
			edges = append(edges, e)
		}
	}
	return edges
}

// Outgoing returns the edges originating at the given node, in declaration order.
func (w Workflow) Outgoing(nodeID string) []Edge {
	var edges []Edge
	for _, e := range w.Edges {
		if e.From == nodeID {
			edges = append(edges, e)
		}
	}
	return edges
}

// Input returns the named input parameter.
func (n Node) Input(name string) (Input, bool) {
	for _, in := range n.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// Output returns the named output parameter.
func (n Node) Output(name string) (Output, bool) {
	for _, out := range n.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return Output{}, false
}

// String implements fmt.Stringer for edge diagnostics.
func (e Edge) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", e.From, e.Output, e.To, e.Input)
}
