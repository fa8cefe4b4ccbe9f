package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	notes chan Notification
	calls chan struct{}
	err   error
}

func newStubSource() *stubSource {
	return &stubSource{
		notes: make(chan Notification, 16),
		calls: make(chan struct{}, 16),
	}
}

func (s *stubSource) WaitForNotification(ctx context.Context) (Notification, error) {
	select {
	case s.calls <- struct{}{}:
	default:
	}
	if s.err != nil {
		return Notification{}, s.err
	}
	select {
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	case n := <-s.notes:
		return n, nil
	}
}

func awaitCall(t *testing.T, s *stubSource) {
	t.Helper()
	select {
	case <-s.calls:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected source to be polled")
	}
}

func TestNewNotifierRequiresSource(t *testing.T) {
	notifier, err := NewNotifier(NotifierOptions{})
	require.ErrorIs(t, err, ErrSourceRequired)
	assert.Nil(t, notifier)
}

func TestNotifier_DeliversToSubscribersOfChannel(t *testing.T) {
	src := newStubSource()
	notifier, err := NewNotifier(NotifierOptions{Source: src})
	require.NoError(t, err)
	defer notifier.StopAll()

	unsubA, chA := notifier.Subscribe("status")
	defer unsubA()
	unsubB, chB := notifier.Subscribe("status")
	defer unsubB()
	unsubC, chC := notifier.Subscribe("moves")
	defer unsubC()

	src.notes <- Notification{Channel: "status", Payload: []byte(`{"queue_id":1}`)}

	for _, ch := range []<-chan Notification{chA, chB} {
		select {
		case n := <-ch:
			assert.Equal(t, "status", n.Channel)
			var body struct {
				QueueID int64 `json:"queue_id"`
			}
			require.NoError(t, n.Decode(&body))
			assert.Equal(t, int64(1), body.QueueID)
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expected notification to be delivered")
		}
	}

	select {
	case n := <-chC:
		t.Fatalf("unexpected delivery on other channel: %+v", n)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNotifier_PreservesOrderWithinChannel(t *testing.T) {
	src := newStubSource()
	notifier, err := NewNotifier(NotifierOptions{Source: src})
	require.NoError(t, err)
	defer notifier.StopAll()

	unsub, ch := notifier.Subscribe("status")
	defer unsub()

	for _, p := range []string{"1", "2", "3"} {
		src.notes <- Notification{Channel: "status", Payload: []byte(p)}
	}
	for _, want := range []string{"1", "2", "3"} {
		select {
		case n := <-ch:
			assert.Equal(t, want, string(n.Payload))
		case <-time.After(500 * time.Millisecond):
			t.Fatal("expected notification")
		}
	}
}

func TestNotifier_FullSubscriberDoesNotBlockOthers(t *testing.T) {
	src := newStubSource()
	notifier, err := NewNotifier(NotifierOptions{Source: src, Buffer: 1})
	require.NoError(t, err)
	defer notifier.StopAll()

	_, slow := notifier.Subscribe("status")
	unsub, fast := notifier.Subscribe("status")
	defer unsub()

	src.notes <- Notification{Channel: "status", Payload: []byte("a")}
	<-fast
	src.notes <- Notification{Channel: "status", Payload: []byte("b")}

	select {
	case n := <-fast:
		assert.Equal(t, "b", string(n.Payload))
	case <-time.After(500 * time.Millisecond):
		t.Fatal("fast subscriber starved by slow subscriber")
	}
	assert.Eventually(t, func() bool { return notifier.Dropped() == 1 }, time.Second, 10*time.Millisecond)
	assert.Len(t, slow, 1)
}

func TestNotifier_LaggedSubscriberGetsMarkerOnceDrained(t *testing.T) {
	src := newStubSource()
	notifier, err := NewNotifier(NotifierOptions{Source: src, Buffer: 2})
	require.NoError(t, err)
	defer notifier.StopAll()

	unsub, ch := notifier.Subscribe("status")
	defer unsub()

	for _, p := range []string{"1", "2", "3", "4"} {
		src.notes <- Notification{Channel: "status", Payload: []byte(p)}
	}
	require.Eventually(t, func() bool { return notifier.Dropped() >= 2 }, time.Second, 5*time.Millisecond)

	// The source stays quiet; the marker still arrives once there is room.
	var got []Notification
	require.Eventually(t, func() bool {
		select {
		case n := <-ch:
			got = append(got, n)
		default:
		}
		return len(got) > 0 && got[len(got)-1].Lagged
	}, time.Second, 5*time.Millisecond)

	require.Len(t, got, 3)
	assert.Equal(t, "1", string(got[0].Payload))
	assert.Equal(t, "2", string(got[1].Payload))
	assert.Equal(t, "status", got[2].Channel)
	assert.Empty(t, got[2].Payload)

	// Delivery resumes normally after the marker.
	src.notes <- Notification{Channel: "status", Payload: []byte("5")}
	select {
	case n := <-ch:
		assert.False(t, n.Lagged)
		assert.Equal(t, "5", string(n.Payload))
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected delivery after catching up")
	}
}

func TestNotifier_UnsubscribeClosesChannel(t *testing.T) {
	src := newStubSource()
	notifier, err := NewNotifier(NotifierOptions{Source: src})
	require.NoError(t, err)

	unsub, ch := notifier.Subscribe("status")
	awaitCall(t, src)

	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after unsubscribe")
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestNotifier_StopAllClosesChannels(t *testing.T) {
	src := newStubSource()
	src.err = errors.New("boom")
	notifier, err := NewNotifier(NotifierOptions{Source: src, Backoff: 10 * time.Millisecond})
	require.NoError(t, err)

	unsubA, chA := notifier.Subscribe("status")
	unsubB, chB := notifier.Subscribe("moves")
	awaitCall(t, src)

	notifier.StopAll()

	for _, ch := range []<-chan Notification{chA, chB} {
		select {
		case _, ok := <-ch:
			assert.False(t, ok, "channels should be closed after StopAll")
		case <-time.After(200 * time.Millisecond):
			t.Fatal("expected channel to close after StopAll")
		}
	}

	unsubA()
	unsubB()
}

func TestNotifier_RetriesAfterSourceError(t *testing.T) {
	src := newStubSource()
	src.err = errors.New("connection reset")
	notifier, err := NewNotifier(NotifierOptions{Source: src, Backoff: 5 * time.Millisecond})
	require.NoError(t, err)
	defer notifier.StopAll()

	unsub, _ := notifier.Subscribe("status")
	defer unsub()

	awaitCall(t, src)
	awaitCall(t, src)
}
