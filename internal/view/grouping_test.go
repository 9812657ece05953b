package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/ora-scrum-client/internal/models"
)

var now = time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC) // a Friday

func notificationAt(id string, at time.Time) models.Notification {
	return models.Notification{ID: id, Type: "TASK_ASSIGNED", CreatedAt: at}
}

func createdAt(n models.Notification) time.Time { return n.CreatedAt }

func TestGroupByDateLabelsFourBuckets(t *testing.T) {
	var list []models.Notification
	offsets := []struct {
		days  int
		count int
	}{{0, 6}, {1, 5}, {3, 5}, {10, 4}}
	for _, o := range offsets {
		for i := 0; i < o.count; i++ {
			at := now.AddDate(0, 0, -o.days).Add(-time.Duration(i) * time.Minute)
			list = append(list, notificationAt(at.Format(time.RFC3339), at))
		}
	}
	require.Len(t, list, 20)

	groups := GroupByDate(list, createdAt, now)

	require.Len(t, groups, 4)
	assert.Equal(t, "Today", groups[0].Label)
	assert.Equal(t, "Yesterday", groups[1].Label)
	assert.Equal(t, "Tuesday, March 12", groups[2].Label)
	assert.Equal(t, "Mar 5, 2024", groups[3].Label)

	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}
	assert.Equal(t, 20, total)
}

func TestGroupByDateKeepsOrderAndItems(t *testing.T) {
	list := []models.Notification{
		notificationAt("a", now.Add(-time.Hour)),
		notificationAt("b", now.AddDate(0, 0, -1)),
		notificationAt("c", now.Add(-2*time.Hour)),
		notificationAt("d", now.AddDate(0, 0, -1).Add(-time.Hour)),
		notificationAt("e", now.Add(-3*time.Hour)),
	}
	original := append([]models.Notification(nil), list...)

	groups := GroupByDate(list, createdAt, now)

	var flat []string
	for _, g := range groups {
		for _, n := range g.Items {
			flat = append(flat, n.ID)
		}
	}
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, flat)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "c", "e"}, ids(groups[0].Items))
	assert.Equal(t, []string{"b", "d"}, ids(groups[1].Items))
	assert.Equal(t, original, list, "input must not be reordered")
}

func TestGroupByDateUsesCalendarDays(t *testing.T) {
	justBeforeMidnight := time.Date(2024, 3, 14, 23, 59, 0, 0, time.UTC)
	earlyToday := time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC)

	groups := GroupByDate([]models.Notification{
		notificationAt("today", earlyToday),
		notificationAt("yesterday", justBeforeMidnight),
	}, createdAt, now)

	require.Len(t, groups, 2)
	assert.Equal(t, "Today", groups[0].Label)
	assert.Equal(t, "Yesterday", groups[1].Label)
}

func TestGroupByDateComparesInNowLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	localNow := time.Date(2024, 3, 15, 8, 0, 0, 0, loc)
	// 23:00 UTC on the 14th is 09:00 on the 15th in loc.
	at := time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC)

	groups := GroupByDate([]models.Notification{notificationAt("x", at)}, createdAt, localNow)

	require.Len(t, groups, 1)
	assert.Equal(t, "Today", groups[0].Label)
}

func TestGroupByDateEmpty(t *testing.T) {
	assert.Empty(t, GroupByDate(nil, createdAt, now))
}

func ids(list []models.Notification) []string {
	out := make([]string, len(list))
	for i, n := range list {
		out[i] = n.ID
	}
	return out
}
