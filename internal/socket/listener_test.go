package socket

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/apiclient"
	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/db"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
	"github.com/Marga-Ghale/ora-scrum-client/internal/retry"
	"github.com/Marga-Ghale/ora-scrum-client/internal/testutil/fakeapi"
)

const waitFor = 2 * time.Second

type listenerFixture struct {
	srv    *fakeapi.Server
	userID string
	api    *apiclient.Client
	store  *cache.Store
	l      *Listener

	mu   sync.Mutex
	seen []Message

	cancel context.CancelFunc
	done   chan error
}

func newListenerFixture(t *testing.T, access string) *listenerFixture {
	t.Helper()
	srv := fakeapi.New(t)
	user := srv.AddUser("Ada Lovelace", "ada@example.com", "secret123")
	good, refresh := srv.IssueTokens(user.ID)
	if access == "" {
		access = good
	}

	api := apiclient.New(srv.URL(), apiclient.WithStorage(db.NewMemoryDB()), apiclient.WithTimeout(5*time.Second))
	require.NoError(t, api.SetTokens(context.Background(), apiclient.Tokens{AccessToken: access, RefreshToken: refresh}))

	store := cache.New(cache.Options{DefaultStaleTime: time.Minute})
	t.Cleanup(store.Close)

	f := &listenerFixture{srv: srv, userID: user.ID, api: api, store: store}
	f.l = NewListener(Options{
		URL:     srv.WSURL(),
		Tokens:  api,
		Store:   store,
		Retryer: retry.NewFixed(10*time.Millisecond, 5),
		Logger:  zerolog.Nop(),
		OnMessage: func(m Message) {
			f.mu.Lock()
			f.seen = append(f.seen, m)
			f.mu.Unlock()
		},
	})
	return f
}

func (f *listenerFixture) start(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	f.done = make(chan error, 1)
	go func() { f.done <- f.l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-f.done
	})
	require.Eventually(t, f.l.Connected, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool { return f.srv.Connections() == 1 }, waitFor, 5*time.Millisecond)
}

func (f *listenerFixture) seenTypes() []MessageType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]MessageType, 0, len(f.seen))
	for _, m := range f.seen {
		out = append(out, m.Type)
	}
	return out
}

func (f *listenerFixture) sawAction(action string) bool {
	for _, a := range f.srv.Received() {
		if a.Action == action {
			return true
		}
	}
	return false
}

func TestPushInvalidatesCache(t *testing.T) {
	f := newListenerFixture(t, "")
	f.store.Write(query.NotificationListKey, []byte(`[]`))
	f.store.Write(query.TaskDetailKey("t1"), []byte(`{"id":"t1"}`))
	f.start(t)

	f.srv.Push("notification", map[string]any{"id": "n1"})
	require.Eventually(t, func() bool {
		e, ok := f.store.Read(query.NotificationListKey)
		return ok && e.Invalidated
	}, waitFor, 5*time.Millisecond)

	e, ok := f.store.Read(query.TaskDetailKey("t1"))
	require.True(t, ok)
	assert.False(t, e.Invalidated)
}

func TestBatchedFramesAreAllHandled(t *testing.T) {
	f := newListenerFixture(t, "")
	f.start(t)

	f.srv.Push("sprint_started", map[string]any{"sprintId": "s1"})
	f.srv.Push("chat_message", map[string]any{"channelId": "c1"})
	f.srv.Push("team_created", nil)

	require.Eventually(t, func() bool { return len(f.seenTypes()) >= 2 }, waitFor, 5*time.Millisecond)
	assert.Equal(t, []MessageType{MessageSprintStarted, MessageChatMessage}, f.seenTypes())
}

func TestJoinAndLeaveRooms(t *testing.T) {
	f := newListenerFixture(t, "")
	f.start(t)

	f.l.JoinRoom(ProjectRoom("p1"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"project:p1", "user:" + f.userID}, f.srv.Rooms(f.userID))
	}, waitFor, 5*time.Millisecond)

	f.l.LeaveRoom(ProjectRoom("p1"))
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual([]string{"user:" + f.userID}, f.srv.Rooms(f.userID))
	}, waitFor, 5*time.Millisecond)
	assert.Empty(t, f.l.Rooms())
}

func TestRoomsReplayedAfterReconnect(t *testing.T) {
	f := newListenerFixture(t, "")
	f.l.JoinRoom(WorkspaceRoom("w1"))
	f.l.JoinRoom(ChannelRoom("c1"))
	f.start(t)

	want := []string{"channel:c1", "user:" + f.userID, "workspace:w1"}
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, f.srv.Rooms(f.userID))
	}, waitFor, 5*time.Millisecond)

	f.srv.DropConnections()
	require.Eventually(t, func() bool { return f.srv.Dials() == 2 }, waitFor, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(want, f.srv.Rooms(f.userID))
	}, waitFor, 5*time.Millisecond)
}

func TestPingIsAnsweredWithPong(t *testing.T) {
	f := newListenerFixture(t, "")
	f.start(t)

	f.srv.Push("ping", nil)
	require.Eventually(t, func() bool { return f.sawAction("pong") }, waitFor, 5*time.Millisecond)
}

func TestSendTyping(t *testing.T) {
	f := newListenerFixture(t, "")
	assert.Error(t, f.l.Send(ClientMessage{Action: "typing"}))
	f.start(t)

	require.NoError(t, f.l.Send(ClientMessage{Action: "typing", Room: ChannelRoom("c1")}))
	require.Eventually(t, func() bool { return f.sawAction("typing") }, waitFor, 5*time.Millisecond)

	big := ClientMessage{Action: "typing", Payload: map[string]any{"text": string(make([]byte, maxMessageSize))}}
	assert.ErrorIs(t, f.l.Send(big), ErrTooLarge)
}

func TestRejectedHandshakeRefreshesToken(t *testing.T) {
	f := newListenerFixture(t, "not-a-jwt")
	f.start(t)

	assert.NotEqual(t, "not-a-jwt", f.api.AccessToken())
	assert.GreaterOrEqual(t, f.srv.Hits("POST", "/auth/refresh"), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newListenerFixture(t, "")
	f.start(t)

	f.cancel()
	select {
	case err := <-f.done:
		assert.NoError(t, err)
		f.done <- err
	case <-time.After(waitFor):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, f.l.Connected())
}

func TestRunWithoutTokenGivesUp(t *testing.T) {
	srv := fakeapi.New(t)
	api := apiclient.New(srv.URL(), apiclient.WithStorage(db.NewMemoryDB()))
	l := NewListener(Options{URL: srv.WSURL(), Tokens: api, Logger: zerolog.Nop()})

	err := l.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
	assert.Zero(t, srv.Dials())
}
