package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeReader serves queued messages, then blocks until ctx ends.
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	closed    int
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.queue) > 0 {
		m := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func cartMessage(t *testing.T, offset int64) kafka.Message {
	t.Helper()
	ev, err := NewEvent(context.Background(), "cart.changed", Aggregate{Type: "cart", ID: "guest:a"}, "test", cartPayload{Owner: "a"})
	require.NoError(t, err)
	value, err := ev.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "t.consume", Offset: offset, Value: value}
}

func testConsumer(r messageReader, h Handler) *Consumer {
	c := newConsumer(r, "t.consume", "g", h, quietLogger())
	c.backoff = time.Millisecond
	return c
}

func outcomes(outcome string) float64 {
	return testutil.ToFloat64(consumedTotal.WithLabelValues("t.consume", "g", outcome))
}

func TestConsumer_Process(t *testing.T) {
	tests := []struct {
		name     string
		results  []error
		outcome  string
		attempts int
	}{
		{"first try", []error{nil}, outcomeProcessed, 1},
		{"transient failure", []error{errors.New("redis timeout"), nil}, outcomeProcessed, 2},
		{"duplicate", []error{ErrDuplicate}, outcomeDuplicate, 1},
		{"poison", []error{errors.New("a"), errors.New("b"), errors.New("c"), nil}, outcomeFailed, handlerAttempts},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			c := testConsumer(&fakeReader{}, func(context.Context, *Event) error {
				err := tt.results[attempts]
				attempts++
				return err
			})
			before := outcomes(tt.outcome)

			assert.True(t, c.process(context.Background(), cartMessage(t, 1)))
			assert.Equal(t, tt.attempts, attempts)
			assert.Equal(t, before+1, outcomes(tt.outcome))
		})
	}
}

func TestConsumer_ProcessUndecodable(t *testing.T) {
	c := testConsumer(&fakeReader{}, func(context.Context, *Event) error {
		t.Fatal("handler must not see undecodable messages")
		return nil
	})
	before := outcomes(outcomeUndecodable)

	assert.True(t, c.process(context.Background(), kafka.Message{Value: []byte("{not json")}))
	assert.Equal(t, before+1, outcomes(outcomeUndecodable))
}

func TestConsumer_ProcessCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := testConsumer(&fakeReader{}, func(context.Context, *Event) error {
		cancel()
		return errors.New("backend down")
	})
	c.backoff = time.Hour

	assert.False(t, c.process(ctx, cartMessage(t, 1)))
}

func TestConsumer_StartCommitsAndCloses(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{cartMessage(t, 10), {Offset: 11, Value: []byte("junk")}, cartMessage(t, 12)}}
	ctx, cancel := context.WithCancel(context.Background())

	var seen int
	c := testConsumer(r, func(context.Context, *Event) error {
		seen++
		if seen == 2 {
			cancel()
		}
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Equal(t, 2, seen)
	assert.Equal(t, []int64{10, 11, 12}, r.committed)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, r.closed)
}
