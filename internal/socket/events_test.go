package socket

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/query"
)

func parse(t *testing.T, raw string) Message {
	t.Helper()
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	return msg
}

func TestMessageReadsPayloadOrData(t *testing.T) {
	msg := parse(t, `{"type":"task_updated","payload":{"task":{"id":"t1"}}}`)
	assert.Equal(t, "t1", msg.str("task.id"))

	msg = parse(t, `{"type":"task_updated","data":{"taskId":"t2"}}`)
	assert.Equal(t, "t2", msg.str("task.id", "taskId"))
	assert.Empty(t, msg.str("missing", "taskId.nested"))
}

func TestInvalidations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []cache.Key
	}{
		{
			name: "notification",
			raw:  `{"type":"notification","payload":{"id":"n1"}}`,
			want: []cache.Key{query.NotificationsKey},
		},
		{
			name: "task status carries detail",
			raw:  `{"type":"task_status_changed","payload":{"taskId":"t1","status":"done"}}`,
			want: []cache.Key{query.NotificationsKey, query.TaskListsKey, query.TaskBacklogsKey,
				query.TaskSprintsKey, query.TaskMineKey, query.TaskDetailKey("t1")},
		},
		{
			name: "task created leaves details alone",
			raw:  `{"type":"task_created","payload":{"task":{"id":"t9"}}}`,
			want: []cache.Key{query.NotificationsKey, query.TaskListsKey, query.TaskBacklogsKey,
				query.TaskSprintsKey, query.TaskMineKey},
		},
		{
			name: "comment on known task",
			raw:  `{"type":"comment_added","payload":{"taskId":"t1"}}`,
			want: []cache.Key{query.NotificationsKey, query.TaskCommentKey("t1")},
		},
		{
			name: "comment without task",
			raw:  `{"type":"comment_deleted"}`,
			want: []cache.Key{query.NotificationsKey, query.TaskCommentsKey},
		},
		{
			name: "sprint",
			raw:  `{"type":"sprint_started","payload":{"sprintId":"s1"}}`,
			want: []cache.Key{query.NotificationsKey, query.SprintsKey},
		},
		{
			name: "chat message in channel",
			raw:  `{"type":"chat_message","data":{"channelId":"c1","messageId":"m1"}}`,
			want: []cache.Key{query.ChatChannelMessagesKey("c1"), query.ChatUnreadKey, query.ChatChannelsKey},
		},
		{
			name: "reaction without channel",
			raw:  `{"type":"chat_reaction_added","payload":{"emoji":"+1"}}`,
			want: []cache.Key{query.ChatMessagesKey, query.ChatThreadsKey},
		},
		{
			name: "chat member",
			raw:  `{"type":"chat_member_added","payload":{"channelId":"c1"}}`,
			want: []cache.Key{query.ChatChannelsKey, query.ChatMembersKey("c1")},
		},
		{
			name: "folder",
			raw:  `{"type":"folder_deleted","payload":{"id":"f1"}}`,
			want: []cache.Key{query.FoldersKey, query.ProjectFolderListsKey, query.ProjectListsKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			keys, known := Invalidations(parse(t, tt.raw))
			assert.True(t, known)
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestInvalidationsControlAndUnknown(t *testing.T) {
	keys, known := Invalidations(Message{Type: MessagePing})
	assert.True(t, known)
	assert.Empty(t, keys)

	keys, known = Invalidations(Message{Type: "team_created"})
	assert.False(t, known)
	assert.Empty(t, keys)
}
