// Package validate implements the static workflow checks that run before any
// node executes: registered node types, well-formed connections, edge type
// compatibility, connection multiplicity, resolvable required inputs and
// acyclicity. Validation is pure — no I/O, no side effects — and accumulates
// every error rather than stopping at the first.
package validate

import (
	"fmt"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

// Kind classifies a validation error.
type Kind string

const (
	// KindCycle reports a dependency cycle.
	KindCycle Kind = "CYCLE_DETECTED"
	// KindTypeMismatch reports incompatible edge endpoint types.
	KindTypeMismatch Kind = "TYPE_MISMATCH"
	// KindInvalidConnection reports dangling references, unknown node types,
	// unknown parameter names or unresolvable required inputs.
	KindInvalidConnection Kind = "INVALID_CONNECTION"
	// KindDuplicateConnection reports multiple edges into a non-repeated input
	// or exact duplicate edges.
	KindDuplicateConnection Kind = "DUPLICATE_CONNECTION"
)

// Error is one validation finding.
type Error struct {
	// Kind classifies the finding.
	Kind Kind
	// NodeID names the offending node where one applies.
	NodeID string
	// Message is the human-readable description.
	Message string
}

// Error implements the error interface.
func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Validate runs every static check against the workflow and returns all
// findings. An empty result means the workflow is executable. The registry is
// consulted only for type existence; Validate performs no I/O.
func Validate(reg *registry.Registry, wf workflow.Workflow) []Error {
	var errs []Error

	// Node identity and type resolution.
	seen := make(map[string]struct{}, len(wf.Nodes))
	for _, n := range wf.Nodes {
		if _, dup := seen[n.ID]; dup {
			errs = append(errs, Error{
				Kind:    KindInvalidConnection,
				NodeID:  n.ID,
				Message: fmt.Sprintf("duplicate node id %q", n.ID),
			})
			continue
		}
		seen[n.ID] = struct{}{}
		if _, ok := reg.Lookup(n.Type); !ok {
			errs = append(errs, Error{
				Kind:    KindInvalidConnection,
				NodeID:  n.ID,
				Message: fmt.Sprintf("node %q has unregistered type %q", n.ID, n.Type),
			})
		}
	}

	// Edge endpoint existence and type compatibility.
	for _, e := range wf.Edges {
		src, srcOK := wf.Node(e.From)
		if !srcOK {
			errs = append(errs, Error{
				Kind:    KindInvalidConnection,
				Message: fmt.Sprintf("edge %s references unknown source node %q", e, e.From),
			})
		}
		dst, dstOK := wf.Node(e.To)
		if !dstOK {
			errs = append(errs, Error{
				Kind:    KindInvalidConnection,
				Message: fmt.Sprintf("edge %s references unknown target node %q", e, e.To),
			})
		}
		if !srcOK || !dstOK {
			continue
		}
		out, ok := src.Output(e.Output)
		if !ok {
			errs = append(errs, Error{
				Kind:    KindInvalidConnection,
				NodeID:  src.ID,
				Message: fmt.Sprintf("edge %s references unknown output %q on node %q", e, e.Output, src.ID),
			})
		}
		in, inOK := dst.Input(e.Input)
		if !inOK {
			errs = append(errs, Error{
				Kind:    KindInvalidConnection,
				NodeID:  dst.ID,
				Message: fmt.Sprintf("edge %s references unknown input %q on node %q", e, e.Input, dst.ID),
			})
		}
		if ok && inOK && !param.Compatible(out.Type, in.Type) {
			errs = append(errs, Error{
				Kind:    KindTypeMismatch,
				NodeID:  dst.ID,
				Message: fmt.Sprintf("edge %s connects %s output to %s input", e, out.Type, in.Type),
			})
		}
	}

	errs = append(errs, checkMultiplicity(wf)...)
	errs = append(errs, checkRequiredInputs(wf)...)
	errs = append(errs, checkCycles(wf)...)
	return errs
}

// checkMultiplicity flags exact duplicate edges and multiple edges into a
// non-repeated input.
func checkMultiplicity(wf workflow.Workflow) []Error {
	var errs []Error
	exact := make(map[workflow.Edge]struct{}, len(wf.Edges))
	inbound := make(map[[2]string]int, len(wf.Edges))
	for _, e := range wf.Edges {
		if _, dup := exact[e]; dup {
			errs = append(errs, Error{
				Kind:    KindDuplicateConnection,
				NodeID:  e.To,
				Message: fmt.Sprintf("duplicate edge %s", e),
			})
			continue
		}
		exact[e] = struct{}{}
		inbound[[2]string{e.To, e.Input}]++
	}
	for _, n := range wf.Nodes {
		for _, in := range n.Inputs {
			if in.Repeated {
				continue
			}
			if count := inbound[[2]string{n.ID, in.Name}]; count > 1 {
				errs = append(errs, Error{
					Kind:    KindDuplicateConnection,
					NodeID:  n.ID,
					Message: fmt.Sprintf("input %q on node %q has %d incoming edges but is not repeated", in.Name, n.ID, count),
				})
			}
		}
	}
	return errs
}

// checkRequiredInputs verifies every required input is literally bound on the
// node or targeted by at least one edge.
func checkRequiredInputs(wf workflow.Workflow) []Error {
	bound := make(map[[2]string]struct{}, len(wf.Edges))
	for _, e := range wf.Edges {
		bound[[2]string{e.To, e.Input}] = struct{}{}
	}
	var errs []Error
	for _, n := range wf.Nodes {
		for _, in := range n.Inputs {
			if !in.Required || in.Value != nil {
				continue
			}
			if _, ok := bound[[2]string{n.ID, in.Name}]; !ok {
				errs = append(errs, Error{
					Kind:    KindInvalidConnection,
					NodeID:  n.ID,
					Message: fmt.Sprintf("required input %q on node %q is neither bound nor connected", in.Name, n.ID),
				})
			}
		}
	}
	return errs
}

// checkCycles runs DFS with a recursion stack and reports one error per
// back-edge found, citing the node the back-edge returns to.
func checkCycles(wf workflow.Workflow) []Error {
	adjacent := make(map[string][]string, len(wf.Nodes))
	for _, e := range wf.Edges {
		adjacent[e.From] = append(adjacent[e.From], e.To)
	}
	const (
		unvisited = 0
		inStack   = 1
		done      = 2
	)
	state := make(map[string]int, len(wf.Nodes))
	var errs []Error
	var visit func(id string)
	visit = func(id string) {
		state[id] = inStack
		for _, next := range adjacent[id] {
			switch state[next] {
			case unvisited:
				visit(next)
			case inStack:
				errs = append(errs, Error{
					Kind:    KindCycle,
					NodeID:  next,
					Message: fmt.Sprintf("workflow contains a cycle through node %q", next),
				})
			}
		}
		state[id] = done
	}
	for _, n := range wf.Nodes {
		if state[n.ID] == unvisited {
			visit(n.ID)
		}
	}
	return errs
}
