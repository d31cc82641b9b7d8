package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]string
}

func newFakeStore(events ...Event) *fakeStore {
	return &fakeStore{pending: events, failed: map[int64]string{}}
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[id] = errMsg
	return nil
}

func (s *fakeStore) ExtendLease(_ context.Context, _ string, _ []int64, _ time.Duration) error {
	return nil
}

func (s *fakeStore) snapshot() ([]int64, map[int64]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := append([]int64(nil), s.sent...)
	failed := make(map[int64]string, len(s.failed))
	for k, v := range s.failed {
		failed[k] = v
	}
	return sent, failed, len(s.pending)
}

type fakeProducer struct {
	mu       sync.Mutex
	written  []kafka.Message
	failKeys map[string]error
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if err, ok := p.failKeys[string(m.Key)]; ok {
			return err
		}
		p.written = append(p.written, m)
	}
	return nil
}

func (p *fakeProducer) messages() []kafka.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Message(nil), p.written...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runRelay(t *testing.T, store Store, producer Producer) context.CancelFunc {
	t.Helper()
	relay := NewRelay(testLogger(), store, NewDispatcher(testLogger(), producer, "order-events"), "relay-test")
	relay.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = relay.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestDispatcherMessageShape(t *testing.T) {
	producer := &fakeProducer{}
	d := NewDispatcher(testLogger(), producer, "order-events")

	err := d.Dispatch(context.Background(), Event{
		ID:          7,
		AggregateID: "order-123",
		Type:        "order.placed",
		Payload:     []byte(`{"orderId":"order-123"}`),
		Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)

	msgs := producer.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "order-events", msgs[0].Topic)
	assert.Equal(t, []byte("order-123"), msgs[0].Key)
	require.Len(t, msgs[0].Headers, 2)
	assert.Equal(t, "event_type", msgs[0].Headers[0].Key)
	assert.Equal(t, []byte("order.placed"), msgs[0].Headers[0].Value)
	assert.Equal(t, "traceparent", msgs[0].Headers[1].Key)
}

func TestRelayDrainsPending(t *testing.T) {
	store := newFakeStore(
		Event{ID: 1, AggregateID: "o1", Type: "order.placed", Payload: []byte(`{}`)},
		Event{ID: 2, AggregateID: "o2", Type: "order.placed", Payload: []byte(`{}`)},
		Event{ID: 3, AggregateID: "o2", Type: "order.deleted", Payload: []byte(`{}`)},
	)
	producer := &fakeProducer{}
	runRelay(t, store, producer)

	waitFor(t, func() bool {
		sent, _, pending := store.snapshot()
		return len(sent) == 3 && pending == 0
	})
	sent, failed, _ := store.snapshot()
	assert.ElementsMatch(t, []int64{1, 2, 3}, sent)
	assert.Empty(t, failed)
	assert.Len(t, producer.messages(), 3)
}

func TestRelayMarksFailuresAndKeepsGoing(t *testing.T) {
	store := newFakeStore(
		Event{ID: 1, AggregateID: "bad", Type: "order.placed", Payload: []byte(`{}`)},
		Event{ID: 2, AggregateID: "good", Type: "order.placed", Payload: []byte(`{}`)},
	)
	producer := &fakeProducer{failKeys: map[string]error{"bad": errors.New("broker unavailable")}}
	runRelay(t, store, producer)

	waitFor(t, func() bool {
		sent, failed, _ := store.snapshot()
		return len(sent) == 1 && len(failed) == 1
	})
	sent, failed, _ := store.snapshot()
	assert.Equal(t, []int64{2}, sent)
	assert.Equal(t, "broker unavailable", failed[1])
}
