package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ============================================
// Notification
// ============================================

type Notification struct {
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Read      bool              `json:"read"`
	Data      map[string]string `json:"data,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

// Notification data is free-form on the backend; non-string values are
// coerced so a single odd payload cannot fail the whole list.
func (n *Notification) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID        string                     `json:"id"`
		UserID    string                     `json:"userId"`
		Type      string                     `json:"type"`
		Title     string                     `json:"title"`
		Message   string                     `json:"message"`
		Read      bool                       `json:"read"`
		IsRead    bool                       `json:"isRead"`
		Data      map[string]json.RawMessage `json:"data"`
		CreatedAt time.Time                  `json:"createdAt"`
	}
	var a alias
	if err := decodeTolerant(data, &a); err != nil {
		return err
	}
	*n = Notification{
		ID:        a.ID,
		UserID:    a.UserID,
		Type:      strings.ToUpper(strings.TrimSpace(a.Type)),
		Title:     a.Title,
		Message:   a.Message,
		Read:      a.Read || a.IsRead,
		CreatedAt: a.CreatedAt,
	}
	if len(a.Data) > 0 {
		n.Data = make(map[string]string, len(a.Data))
		for k, raw := range a.Data {
			n.Data[k] = rawString(raw)
		}
	}
	return nil
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

type NotificationCount struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}
