package query

import (
	"context"
	"errors"

	"github.com/Marga-Ghale/ora-scrum-client/internal/cache"
	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
	"github.com/Marga-Ghale/ora-scrum-client/internal/optimistic"
)

type NotificationQueries struct{ c *Client }

const (
	notificationsPath      = "/notifications"
	notificationUnreadPath = "/notifications?unread=true"
	notificationCountPath  = "/notifications/count"
)

func (q *NotificationQueries) List(ctx context.Context) (Result[[]models.Notification], error) {
	return read[[]models.Notification](ctx, q.c, NotificationListKey, notificationsPath)
}

func (q *NotificationQueries) Unread(ctx context.Context) (Result[[]models.Notification], error) {
	return read[[]models.Notification](ctx, q.c, NotificationUnreadKey, notificationUnreadPath)
}

func (q *NotificationQueries) Count(ctx context.Context) (Result[models.NotificationCount], error) {
	return read[models.NotificationCount](ctx, q.c, NotificationCountKey, notificationCountPath)
}

// PollList refetches the full list regardless of freshness.
func (q *NotificationQueries) PollList(ctx context.Context) error {
	_, err := q.c.store.Refetch(ctx, NotificationListKey, getJSON[[]models.Notification](q.c, notificationsPath))
	return err
}

// PollUnread refetches the unread list and the counters.
func (q *NotificationQueries) PollUnread(ctx context.Context) error {
	_, unreadErr := q.c.store.Refetch(ctx, NotificationUnreadKey, getJSON[[]models.Notification](q.c, notificationUnreadPath))
	_, countErr := q.c.store.Refetch(ctx, NotificationCountKey, getJSON[models.NotificationCount](q.c, notificationCountPath))
	return errors.Join(unreadErr, countErr)
}

// MarkRead flags one notification read in the cached lists and decrements
// the unread counter if the list showed it unread. Without a cached list the
// counter is decremented anyway, never below zero.
func (q *NotificationQueries) MarkRead(ctx context.Context, id string) error {
	seen, wasUnread := false, false
	targets := []cache.Op{
		cache.UpdateJSON(NotificationListKey, func(list *[]models.Notification) bool {
			for i := range *list {
				if (*list)[i].ID == id {
					seen, wasUnread = true, !(*list)[i].Read
					(*list)[i].Read = true
					return wasUnread
				}
			}
			return false
		}),
		dropNotification(NotificationUnreadKey, id),
		cache.UpdateJSON(NotificationCountKey, func(c *models.NotificationCount) bool {
			if seen && !wasUnread {
				return false
			}
			c.Unread = max(0, c.Unread-1)
			return true
		}),
	}
	return q.run(ctx, targets, func(ctx context.Context) error {
		return q.c.exec(ctx, put, "/notifications/"+id+"/read", nil)
	})
}

func (q *NotificationQueries) MarkAllRead(ctx context.Context) error {
	targets := []cache.Op{
		cache.UpdateJSON(NotificationListKey, func(list *[]models.Notification) bool {
			changed := false
			for i := range *list {
				if !(*list)[i].Read {
					(*list)[i].Read = true
					changed = true
				}
			}
			return changed
		}),
		cache.SetJSON(NotificationUnreadKey, []models.Notification{}),
		cache.UpdateJSON(NotificationCountKey, func(c *models.NotificationCount) bool {
			c.Unread = 0
			return true
		}),
	}
	return q.run(ctx, targets, func(ctx context.Context) error {
		return q.c.exec(ctx, put, "/notifications/read-all", nil)
	})
}

// Delete removes one notification. The counters only move when the cached
// list tells whether it was unread.
func (q *NotificationQueries) Delete(ctx context.Context, id string) error {
	seen, wasUnread := false, false
	targets := []cache.Op{
		cache.UpdateJSON(NotificationListKey, func(list *[]models.Notification) bool {
			for i, n := range *list {
				if n.ID == id {
					seen, wasUnread = true, !n.Read
					*list = append((*list)[:i:i], (*list)[i+1:]...)
					return true
				}
			}
			return false
		}),
		dropNotification(NotificationUnreadKey, id),
		cache.UpdateJSON(NotificationCountKey, func(c *models.NotificationCount) bool {
			if !seen {
				return false
			}
			c.Total = max(0, c.Total-1)
			if wasUnread {
				c.Unread = max(0, c.Unread-1)
			}
			return true
		}),
	}
	return q.run(ctx, targets, func(ctx context.Context) error {
		return q.c.exec(ctx, del, "/notifications/"+id, nil)
	})
}

func (q *NotificationQueries) DeleteAll(ctx context.Context) error {
	targets := []cache.Op{
		cache.SetJSON(NotificationListKey, []models.Notification{}),
		cache.SetJSON(NotificationUnreadKey, []models.Notification{}),
		cache.SetJSON(NotificationCountKey, models.NotificationCount{}),
	}
	return q.run(ctx, targets, func(ctx context.Context) error {
		return q.c.exec(ctx, del, notificationsPath, nil)
	})
}

func (q *NotificationQueries) run(ctx context.Context, targets []cache.Op, call func(context.Context) error) error {
	_, err := optimistic.Run(ctx, q.c.store, optimistic.Plan[struct{}]{
		Targets: targets,
		Cancel:  []cache.Key{NotificationsKey},
		Call: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, call(ctx)
		},
		Invalidate: []cache.Key{NotificationsKey},
	})
	return err
}

func dropNotification(key cache.Key, id string) cache.Op {
	return cache.UpdateJSON(key, func(list *[]models.Notification) bool {
		for i, n := range *list {
			if n.ID == id {
				*list = append((*list)[:i:i], (*list)[i+1:]...)
				return true
			}
		}
		return false
	})
}
