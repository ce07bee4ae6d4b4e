package nodes

import (
	"context"
	"errors"
	"time"

	"flowline.dev/flowline/engine/param"
	"flowline.dev/flowline/engine/registry"
	"flowline.dev/flowline/engine/workflow"
)

// registerTriggers registers the trigger source nodes. Each surfaces the
// payload the runtime seeded into the node context as regular typed outputs;
// executing one without a matching payload is a node error, which only
// happens when a workflow is run with the wrong trigger.
func registerTriggers(reg *registry.Registry) {
	reg.MustRegister(registry.Descriptor{
		Type:        "http-request",
		Name:        "HTTP Request",
		Description: "Surfaces the triggering HTTP request.",
		Tags:        []string{"trigger"},
		Outputs: []workflow.Output{
			{Name: "method", Type: param.KindString},
			{Name: "path", Type: param.KindString},
			{Name: "headers", Type: param.KindJSON},
			{Name: "query", Type: param.KindJSON},
			{Name: "body", Type: param.KindString},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			req := nc.Trigger.HTTPRequest
			if req == nil {
				return nil, errors.New("no http request payload")
			}
			return map[string]param.Value{
				"method":  param.String(req.Method),
				"path":    param.String(req.Path),
				"headers": param.JSON(stringMapDoc(req.Headers)),
				"query":   param.JSON(stringMapDoc(req.Query)),
				"body":    param.String(string(req.Body)),
			}, nil
		}), nil
	})

	reg.MustRegister(registry.Descriptor{
		Type:        "email-message",
		Name:        "Email Message",
		Description: "Surfaces the triggering email.",
		Tags:        []string{"trigger"},
		Outputs: []workflow.Output{
			{Name: "from", Type: param.KindString},
			{Name: "to", Type: param.KindString},
			{Name: "subject", Type: param.KindString},
			{Name: "body", Type: param.KindString},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			msg := nc.Trigger.EmailMessage
			if msg == nil {
				return nil, errors.New("no email message payload")
			}
			return map[string]param.Value{
				"from":    param.String(msg.From),
				"to":      param.String(msg.To),
				"subject": param.String(msg.Subject),
				"body":    param.String(msg.Body),
			}, nil
		}), nil
	})

	reg.MustRegister(registry.Descriptor{
		Type:        "queue-message",
		Name:        "Queue Message",
		Description: "Surfaces the triggering queue message.",
		Tags:        []string{"trigger"},
		Outputs: []workflow.Output{
			{Name: "queue", Type: param.KindString},
			{Name: "body", Type: param.KindString},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			msg := nc.Trigger.QueueMessage
			if msg == nil {
				return nil, errors.New("no queue message payload")
			}
			return map[string]param.Value{
				"queue": param.String(msg.Queue),
				"body":  param.String(string(msg.Body)),
			}, nil
		}), nil
	})

	reg.MustRegister(registry.Descriptor{
		Type:        "schedule",
		Name:        "Schedule",
		Description: "Surfaces the schedule tick that started the run.",
		Tags:        []string{"trigger"},
		Outputs: []workflow.Output{
			{Name: "time", Type: param.KindString},
		},
	}, func(workflow.Node) (registry.Executable, error) {
		return registry.ExecuteFunc(func(_ context.Context, nc *registry.Context) (map[string]param.Value, error) {
			at := nc.Trigger.ScheduledAt
			if at == nil {
				return nil, errors.New("no schedule payload")
			}
			return map[string]param.Value{
				"time": param.String(at.UTC().Format(time.RFC3339)),
			}, nil
		}), nil
	})
}

func stringMapDoc(m map[string]string) map[string]any {
	doc := make(map[string]any, len(m))
	for k, v := range m {
		doc[k] = v
	}
	return doc
}
