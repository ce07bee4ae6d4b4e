package main

import (
	"context"
	"fmt"

	"flowline.dev/flowline/engine/execution"
	executioninmem "flowline.dev/flowline/engine/execution/inmem"
	"flowline.dev/flowline/engine/object"
	objectinmem "flowline.dev/flowline/engine/object/inmem"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/runtime"
	"flowline.dev/flowline/engine/workflow"
	"flowline.dev/flowline/nodes"
)

// demoWorkflow computes (2 + 3) * 7 through the builtin math nodes.
const demoWorkflow = `
id: demo
name: Demo
nodes:
  - id: two
    type: number-input
    inputs:
      - name: value
        type: number
        value: {kind: number, number: 2}
    outputs:
      - name: value
        type: number
  - id: three
    type: number-input
    inputs:
      - name: value
        type: number
        value: {kind: number, number: 3}
    outputs:
      - name: value
        type: number
  - id: add
    type: addition
    inputs:
      - name: a
        type: number
        required: true
      - name: b
        type: number
        required: true
    outputs:
      - name: result
        type: number
  - id: times
    type: multiplication
    inputs:
      - name: a
        type: number
        required: true
      - name: b
        type: number
        required: true
        value: {kind: number, number: 7}
    outputs:
      - name: result
        type: number
edges:
  - {from: two, output: value, to: add, input: a}
  - {from: three, output: value, to: add, input: b}
  - {from: add, output: result, to: times, input: a}
`

func main() {
	ctx := context.Background()

	wf, err := workflow.ParseYAML([]byte(demoWorkflow))
	if err != nil {
		panic(err)
	}

	reg := registry.New()
	nodes.RegisterAll(reg)

	objects, err := object.NewStore(objectinmem.New())
	if err != nil {
		panic(err)
	}

	rt, err := runtime.New(runtime.Options{
		Registry:   reg,
		Objects:    objects,
		Executions: executioninmem.New(),
	})
	if err != nil {
		panic(err)
	}

	rec, err := rt.Run(ctx, runtime.Params{
		Workflow:       wf,
		OrganizationID: "demo-org",
	}, "")
	if err != nil {
		panic(err)
	}

	fmt.Println("Execution:", rec.ID)
	fmt.Println("Status:", rec.Status)
	for _, node := range rec.NodeExecutions {
		if node.Status != execution.StatusCompleted {
			fmt.Printf("  %s: %s\n", node.NodeID, node.Status)
			continue
		}
		for name, value := range node.Outputs {
			fmt.Printf("  %s.%s = %g\n", node.NodeID, name, value.Number)
		}
	}
}
