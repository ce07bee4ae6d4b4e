// Package pulse implements monitor.Sink on Pulse streams. Each execution gets
// its own stream named execution/<id>; observers attach Pulse sinks (consumer
// groups) to follow the run. Updates are published as JSON envelopes, final
// snapshots under a distinct event name so tail readers can stop cleanly.
package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"flowline.dev/flowline/engine/monitor"
	pulseclient "flowline.dev/flowline/features/monitor/pulse/clients/pulse"
)

const (
	// EventUpdated names intermediate snapshot events.
	EventUpdated = "execution.updated"
	// EventFinal names the terminal snapshot event, published exactly once.
	EventFinal = "execution.final"
)

type (
	// Options configures the Pulse monitoring sink.
	Options struct {
		// Client is the Pulse client. Required.
		Client pulseclient.Client
	}

	// Sink implements monitor.Sink on Pulse streams.
	Sink struct {
		client pulseclient.Client

		mu      sync.Mutex
		streams map[string]pulseclient.Stream
	}

	// envelope is the JSON payload published per update.
	envelope struct {
		SessionID string          `json:"sessionId"`
		Final     bool            `json:"final"`
		Execution json.RawMessage `json:"execution"`
	}
)

// StreamName returns the Pulse stream name for an execution id.
func StreamName(executionID string) string {
	return fmt.Sprintf("execution/%s", executionID)
}

// New constructs a Sink.
func New(opts Options) (*Sink, error) {
	if opts.Client == nil {
		return nil, errors.New("pulse client is required")
	}
	return &Sink{
		client:  opts.Client,
		streams: make(map[string]pulseclient.Stream),
	}, nil
}

// Send publishes the update to the execution's stream. Errors are returned to
// the caller, which logs and swallows them; a failed send never affects the run.
func (s *Sink) Send(ctx context.Context, update monitor.Update) error {
	if update.SessionID == "" {
		return errors.New("session id is required")
	}
	if update.Execution.ID == "" {
		return errors.New("execution id is required")
	}
	execJSON, err := json.Marshal(update.Execution)
	if err != nil {
		return fmt.Errorf("encode execution snapshot: %w", err)
	}
	payload, err := json.Marshal(envelope{
		SessionID: update.SessionID,
		Final:     update.Final,
		Execution: execJSON,
	})
	if err != nil {
		return fmt.Errorf("encode update envelope: %w", err)
	}
	stream, err := s.stream(update.Execution.ID)
	if err != nil {
		return err
	}
	event := EventUpdated
	if update.Final {
		event = EventFinal
	}
	if _, err := stream.Add(ctx, event, payload); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying client.
func (s *Sink) Close(ctx context.Context) error {
	s.mu.Lock()
	s.streams = make(map[string]pulseclient.Stream)
	s.mu.Unlock()
	return s.client.Close(ctx)
}

// stream returns the cached handle for the execution's stream, opening it on
// first use.
func (s *Sink) stream(executionID string) (pulseclient.Stream, error) {
	name := StreamName(executionID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if stream, ok := s.streams[name]; ok {
		return stream, nil
	}
	stream, err := s.client.Stream(name)
	if err != nil {
		return nil, err
	}
	s.streams[name] = stream
	return stream, nil
}
