package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

type chatFixture struct {
	*harness
	bob     models.User
	channel models.ChatChannel
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	h := newHarness(t)
	ws := h.srv.AddWorkspace("Acme", h.user.ID)
	bob := h.srv.AddUser("Bob", "bob@example.com", "pw")
	ch := h.srv.AddChannel(ws.ID, "general", types.ChannelTeam, h.user.ID, bob.ID)

	// The sender shown on optimistic messages comes from the cached user.
	_, err := h.c.Auth.CurrentUser(context.Background())
	require.NoError(t, err)
	return &chatFixture{harness: h, bob: bob, channel: ch}
}

func (f *chatFixture) firstPage(t *testing.T) []models.ChatMessage {
	t.Helper()
	return cached[[]models.ChatMessage](t, f.c, ChatMessageListKey(f.channel.ID, DefaultMessagePage, 0))
}

type sendResult struct {
	msg *models.ChatMessage
	err error
}

func TestSendMessageShowsTemporaryThenConfirmed(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	f.srv.AddMessage(f.channel.ID, f.bob.ID, "hi")

	_, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)

	release := f.srv.Hold("POST", "/chat/channels/:id/messages")
	done := make(chan sendResult, 1)
	go func() {
		m, err := f.c.Chat.SendMessage(ctx, f.channel.ID, models.SendMessageRequest{Content: "hello bob"})
		done <- sendResult{m, err}
	}()

	waitHit(t, f.srv, "POST", "/chat/channels/:id/messages", 1)
	page := f.firstPage(t)
	require.Len(t, page, 2)
	assert.True(t, page[0].IsTemporary())
	assert.Equal(t, "hello bob", page[0].Content)
	assert.Equal(t, f.user.ID, page[0].UserID)

	release()
	res := <-done
	require.NoError(t, res.err)
	assert.False(t, res.msg.IsTemporary())

	page = f.firstPage(t)
	require.Len(t, page, 2)
	assert.Equal(t, res.msg.ID, page[0].ID)
	assert.Equal(t, "hi", page[1].Content)
}

func TestSendMessageRejectedRestoresPage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)
	f.srv.Fail("POST", "/chat/channels/:id/messages", 500)

	_, err = f.c.Chat.SendMessage(ctx, f.channel.ID, models.SendMessageRequest{Content: "lost"})
	require.Error(t, err)
	assert.Empty(t, f.firstPage(t))
}

func TestSendIntoUncachedPageRefetchesChannel(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	f.srv.AddMessage(f.channel.ID, f.bob.ID, "one")
	f.srv.AddMessage(f.channel.ID, f.bob.ID, "two")

	_, err := f.c.Chat.SendMessage(ctx, f.channel.ID, models.SendMessageRequest{Content: "three"})
	require.NoError(t, err)

	page, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)
	assert.Equal(t, StateSuccess, page.State)
	assert.False(t, page.Stale)
	contents := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		contents = append(contents, m.Content)
	}
	assert.ElementsMatch(t, []string{"one", "two", "three"}, contents)
}

func TestThreadReplyRefetchesThreadAndChannel(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	parent := f.srv.AddMessage(f.channel.ID, f.bob.ID, "question")

	_, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)
	_, err = f.c.Chat.Thread(ctx, parent.ID)
	require.NoError(t, err)
	pagesBefore := f.srv.Hits("GET", "/chat/channels/:id/messages")
	threadsBefore := f.srv.Hits("GET", "/chat/messages/:id/thread")

	reply, err := f.c.Chat.SendMessage(ctx, f.channel.ID, models.SendMessageRequest{Content: "answer", ParentID: &parent.ID})
	require.NoError(t, err)

	thread, err := f.c.Chat.Thread(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, thread.Data, 1)
	assert.Equal(t, reply.ID, thread.Data[0].ID)
	assert.Equal(t, threadsBefore+1, f.srv.Hits("GET", "/chat/messages/:id/thread"))

	_, err = f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)
	assert.Equal(t, pagesBefore+1, f.srv.Hits("GET", "/chat/channels/:id/messages"))
}

func TestSendMessageRejectsBlankContent(t *testing.T) {
	f := newChatFixture(t)

	_, err := f.c.Chat.SendMessage(context.Background(), f.channel.ID, models.SendMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, f.srv.Hits("POST", "/chat/channels/:id/messages"))
}

func TestUnreadCountsFollowSendAndMarkRead(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.c.Chat.SendMessage(ctx, f.channel.ID, models.SendMessageRequest{Content: "ping"})
	require.NoError(t, err)

	bobClient := loggedIn(t, f.srv, f.bob.ID)
	unread, err := bobClient.Chat.UnreadCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{f.channel.ID: 1}, unread.Data)

	require.NoError(t, bobClient.Chat.MarkRead(ctx, f.channel.ID))
	unread, err = bobClient.Chat.UnreadCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread.Data[f.channel.ID])
}

func TestEditAndDeleteMessageUpdateCachedPages(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	mine := f.srv.AddMessage(f.channel.ID, f.user.ID, "tpyo")

	_, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)

	edited, err := f.c.Chat.EditMessage(ctx, f.channel.ID, mine.ID, "typo")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)

	page, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "typo", page.Data[0].Content)

	require.NoError(t, f.c.Chat.DeleteMessage(ctx, f.channel.ID, mine.ID))
	stored, ok := f.srv.Message(mine.ID)
	require.True(t, ok)
	assert.True(t, stored.IsDeleted)
}

func TestReactionsRoundTrip(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	msg := f.srv.AddMessage(f.channel.ID, f.bob.ID, "ship it")

	_, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)

	require.NoError(t, f.c.Chat.AddReaction(ctx, f.channel.ID, msg.ID, "🚀"))
	stored, _ := f.srv.Message(msg.ID)
	require.Len(t, stored.Reactions, 1)
	assert.Equal(t, f.user.ID, stored.Reactions[0].UserID)

	require.NoError(t, f.c.Chat.RemoveReaction(ctx, f.channel.ID, msg.ID, "🚀"))
	stored, _ = f.srv.Message(msg.ID)
	assert.Empty(t, stored.Reactions)

	page, err := f.c.Chat.Messages(ctx, f.channel.ID, DefaultMessagePage, 0)
	require.NoError(t, err)
	assert.Empty(t, page.Data[0].Reactions)
}

func TestSearchFiltersLocally(t *testing.T) {
	f := newChatFixture(t)
	f.srv.AddMessage(f.channel.ID, f.bob.ID, "Deploy on Friday")
	f.srv.AddMessage(f.channel.ID, f.bob.ID, "lunch?")

	res, err := f.c.Chat.Search(context.Background(), f.channel.ID, "deploy")
	require.NoError(t, err)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Deploy on Friday", res.Data[0].Content)
}

func TestDirectChannelIsReused(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()
	carol := f.srv.AddUser("Carol", "carol@example.com", "pw")

	first, err := f.c.Chat.CreateDirect(ctx, models.CreateDirectChannelRequest{UserID: carol.ID})
	require.NoError(t, err)
	second, err := f.c.Chat.CreateDirect(ctx, models.CreateDirectChannelRequest{UserID: carol.ID})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, types.ChannelDirect, first.Type)
}
