package events

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arabicbase/arabicbase/internal/domain"
	"github.com/arabicbase/arabicbase/internal/logger"
)

func startBroker(t *testing.T) *Broker {
	t.Helper()
	b := NewBroker(nil, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return b
}

func receive(t *testing.T, sub *Subscriber) Event {
	t.Helper()
	select {
	case e := <-sub.C:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestBroker_FiltersByUser(t *testing.T) {
	b := startBroker(t)

	alice, err := b.Subscribe("alice")
	require.NoError(t, err)
	bob, err := b.Subscribe("bob")
	require.NoError(t, err)

	b.Publish(NewEntryDeletedEvent("alice", "e1"))
	b.Publish(NewLoadedEvent("", "global", 3))

	got := receive(t, alice)
	assert.Equal(t, EntryDeleted, got.Type)
	assert.Equal(t, EntryDeletedData{EntryID: "e1"}, got.Data)

	assert.Equal(t, EntriesLoaded, receive(t, alice).Type)
	assert.Equal(t, EntriesLoaded, receive(t, bob).Type)

	select {
	case e := <-bob.C:
		t.Fatalf("bob received %s meant for alice", e.Type)
	default:
	}
}

func TestBroker_SlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := NewBroker(nil, logger.Discard())
	sub, err := b.Subscribe("")
	require.NoError(t, err)

	for range subscriberBuffer + 5 {
		b.broadcast(NewEntryDeletedEvent("u", "e"))
	}
	assert.Len(t, sub.C, subscriberBuffer)
}

func TestBroker_EntryEventCarriesSnapshot(t *testing.T) {
	e := &domain.Entry{ID: "e1", OwnerID: "u1", Term: "شو"}
	event := NewEntryEvent(EntryCreated, e)
	e.Term = "changed"

	assert.Equal(t, "u1", event.UserID)
	assert.Equal(t, "شو", event.Data.(EntryData).Entry.Term)
}

func TestBroker_ShutdownDrainsAndCloses(t *testing.T) {
	b := NewBroker(nil, logger.Discard())
	sub, err := b.Subscribe("u1")
	require.NoError(t, err)

	b.Publish(NewEntryDeletedEvent("u1", "e1"))
	require.NoError(t, b.Shutdown(context.Background()))

	e, ok := <-sub.C
	require.True(t, ok)
	assert.Equal(t, EntryDeleted, e.Type)

	_, ok = <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.SubscriberCount())

	// Publishing after shutdown is a no-op.
	b.Publish(NewEntryDeletedEvent("u1", "e2"))
	require.NoError(t, b.Shutdown(context.Background()))
}

func TestBroker_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewBroker(nil, logger.Discard())
	sub, err := b.Subscribe("u1")
	require.NoError(t, err)

	b.Unsubscribe(sub.ID)
	b.Unsubscribe(sub.ID)

	assert.Equal(t, 0, b.SubscriberCount())
	_, ok := <-sub.Done
	assert.False(t, ok)
}

func TestHandler_StreamsUserEvents(t *testing.T) {
	b := startBroker(t)
	h := NewHandler(b, func(r *http.Request) (string, bool) {
		user := r.Header.Get("X-User")
		return user, user != ""
	}, logger.Discard())

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set("X-User", "u1")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() string {
		for lines.Scan() {
			if line := lines.Text(); line != "" {
				return line
			}
		}
		return ""
	}

	assert.Equal(t, "event: connected", next())
	assert.True(t, strings.HasPrefix(next(), "data: "))

	require.Eventually(t, func() bool { return b.SubscriberCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	b.Publish(NewEntryDeletedEvent("someone-else", "e0"))
	b.Publish(NewEntryDeletedEvent("u1", "e1"))

	assert.Equal(t, "event: entry.deleted", next())
	data := next()
	assert.Contains(t, data, `"entry_id":"e1"`)
	assert.Contains(t, data, `"type":"entry.deleted"`)
}

func TestHandler_RejectsAnonymous(t *testing.T) {
	b := NewBroker(nil, logger.Discard())
	h := NewHandler(b, func(*http.Request) (string, bool) { return "", false }, logger.Discard())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/events", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
