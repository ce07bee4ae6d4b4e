package pulse

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	streamopts "goa.design/pulse/streaming/options"

	"flowline.dev/flowline/engine/execution"
	"flowline.dev/flowline/engine/monitor"
	pulseclient "flowline.dev/flowline/features/monitor/pulse/clients/pulse"
)

type published struct {
	event   string
	payload []byte
}

// fakeStream records published events.
type fakeStream struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (s *fakeStream) Add(_ context.Context, event string, payload []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, published{event: event, payload: payload})
	return "1-0", nil
}

func (s *fakeStream) Destroy(context.Context) error { return nil }

// fakeClient hands out fake streams by name.
type fakeClient struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
	opened  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{streams: make(map[string]*fakeStream)}
}

func (c *fakeClient) Stream(name string, _ ...streamopts.Stream) (pulseclient.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.streams[name]; ok {
		return s, nil
	}
	c.opened++
	s := &fakeStream{}
	c.streams[name] = s
	return s, nil
}

func (c *fakeClient) Close(context.Context) error { return nil }

func update(final bool) monitor.Update {
	return monitor.Update{
		SessionID: "session-1",
		Final:     final,
		Execution: execution.Record{
			ID:     "exec-1",
			Status: execution.StatusExecuting,
		},
	}
}

func TestSendPublishesEnvelope(t *testing.T) {
	fake := newFakeClient()
	sink, err := New(Options{Client: fake})
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), update(false)))

	stream := fake.streams[StreamName("exec-1")]
	require.NotNil(t, stream, "stream named after the execution")
	require.Len(t, stream.events, 1)
	require.Equal(t, EventUpdated, stream.events[0].event)

	var env struct {
		SessionID string          `json:"sessionId"`
		Final     bool            `json:"final"`
		Execution json.RawMessage `json:"execution"`
	}
	require.NoError(t, json.Unmarshal(stream.events[0].payload, &env))
	require.Equal(t, "session-1", env.SessionID)
	require.False(t, env.Final)

	var rec execution.Record
	require.NoError(t, json.Unmarshal(env.Execution, &rec))
	require.Equal(t, "exec-1", rec.ID)
}

func TestSendFinalUsesDistinctEvent(t *testing.T) {
	fake := newFakeClient()
	sink, err := New(Options{Client: fake})
	require.NoError(t, err)

	require.NoError(t, sink.Send(context.Background(), update(false)))
	require.NoError(t, sink.Send(context.Background(), update(true)))

	stream := fake.streams[StreamName("exec-1")]
	require.Len(t, stream.events, 2)
	require.Equal(t, EventFinal, stream.events[1].event)
}

func TestSendReusesStreamHandles(t *testing.T) {
	fake := newFakeClient()
	sink, err := New(Options{Client: fake})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Send(context.Background(), update(false)))
	}
	require.Equal(t, 1, fake.opened, "one stream handle per execution")
}

func TestSendValidation(t *testing.T) {
	sink, err := New(Options{Client: newFakeClient()})
	require.NoError(t, err)

	missingSession := update(false)
	missingSession.SessionID = ""
	require.Error(t, sink.Send(context.Background(), missingSession))

	missingExecution := update(false)
	missingExecution.Execution.ID = ""
	require.Error(t, sink.Send(context.Background(), missingExecution))
}

func TestSendSurfacesPublishErrors(t *testing.T) {
	fake := newFakeClient()
	sink, err := New(Options{Client: fake})
	require.NoError(t, err)

	// Prime the handle, then make the stream fail.
	require.NoError(t, sink.Send(context.Background(), update(false)))
	fake.streams[StreamName("exec-1")].err = errors.New("redis down")
	require.Error(t, sink.Send(context.Background(), update(false)))
}
