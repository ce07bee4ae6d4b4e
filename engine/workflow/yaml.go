package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML decodes a workflow definition from YAML. YAML is the authoring
// format used by fixtures and host tooling; persisted snapshots always use
// JSON (see engine/snapshot).
func ParseYAML(data []byte) (Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("parse workflow yaml: %w", err)
	}
	if wf.ID == "" {
		return Workflow{}, fmt.Errorf("parse workflow yaml: missing workflow id")
	}
	return wf, nil
}
