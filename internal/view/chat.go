package view

import (
	"sort"
	"time"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/types"
)

const unknownChannelName = "Unknown Channel"

// ReactionGroup counts one emoji on a message.
type ReactionGroup struct {
	Emoji   string   `json:"emoji"`
	Count   int      `json:"count"`
	UserIDs []string `json:"userIds"`
}

// GroupReactions merges reactions per emoji, most used first. Ties keep the
// order each emoji was first used in.
func GroupReactions(reactions []models.ChatReaction) []ReactionGroup {
	groups := []ReactionGroup{}
	index := make(map[string]int)
	for _, r := range reactions {
		i, ok := index[r.Emoji]
		if !ok {
			i = len(groups)
			index[r.Emoji] = i
			groups = append(groups, ReactionGroup{Emoji: r.Emoji})
		}
		groups[i].Count++
		groups[i].UserIDs = append(groups[i].UserIDs, r.UserID)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].Count > groups[j].Count })
	return groups
}

// HasReacted reports whether userID already reacted with emoji.
func HasReacted(reactions []models.ChatReaction, userID, emoji string) bool {
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			return true
		}
	}
	return false
}

// ChannelDisplayName names direct channels after the other participant.
func ChannelDisplayName(ch models.ChatChannel) string {
	if ch.Type == types.ChannelDirect && ch.OtherUser != nil {
		return DisplayName(*ch.OtherUser)
	}
	if ch.Name != "" {
		return ch.Name
	}
	return unknownChannelName
}

// MessageRow is a chat message ready for display.
type MessageRow struct {
	models.ChatMessage
	SenderName string          `json:"senderName"`
	Pending    bool            `json:"pending"`
	Reactions  []ReactionGroup `json:"reactions"`
}

func NewMessageRow(m models.ChatMessage) MessageRow {
	row := MessageRow{
		ChatMessage: m,
		SenderName:  unknownUserName,
		Pending:     m.IsTemporary(),
		Reactions:   GroupReactions(m.Reactions),
	}
	if m.Sender != nil {
		row.SenderName = DisplayName(*m.Sender)
	}
	return row
}

// GroupMessages buckets a page of messages by day.
func GroupMessages(messages []models.ChatMessage, now time.Time) []DateGroup[MessageRow] {
	rows := make([]MessageRow, 0, len(messages))
	for _, m := range messages {
		if m.IsDeleted {
			continue
		}
		rows = append(rows, NewMessageRow(m))
	}
	return GroupByDate(rows, func(r MessageRow) time.Time { return r.CreatedAt }, now)
}
