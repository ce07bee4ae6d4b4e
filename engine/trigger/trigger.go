// Package trigger defines the payloads external triggers hand to a run. The
// runtime seeds at most one of them into the node execution context; trigger
// source nodes (http-request, email-message, queue-message, schedule) surface
// the payload as regular typed outputs. No synthetic node execution is
// recorded for the trigger itself.
package trigger

import "time"

type (
	// HTTPRequest is the payload of an http_webhook or http_request trigger.
	HTTPRequest struct {
		Method  string            `json:"method"`
		Path    string            `json:"path"`
		Headers map[string]string `json:"headers,omitempty"`
		Query   map[string]string `json:"query,omitempty"`
		Body    []byte            `json:"body,omitempty"`
	}

	// EmailMessage is the payload of an email_message trigger.
	EmailMessage struct {
		From    string `json:"from"`
		To      string `json:"to"`
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}

	// QueueMessage is the payload of a queue_message trigger.
	QueueMessage struct {
		Queue string `json:"queue"`
		Body  []byte `json:"body"`
	}

	// Payloads bundles the optional trigger payloads seeded into the node
	// context. At most one field is set per run.
	Payloads struct {
		HTTPRequest  *HTTPRequest
		EmailMessage *EmailMessage
		QueueMessage *QueueMessage
		ScheduledAt  *time.Time
	}
)
