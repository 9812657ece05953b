// Package view derives presentation models from cached entities: date
// buckets, notification ordering and links, member partitions, reaction
// groups and board columns. Nothing here touches the network or the cache.
package view

import "time"

// DateGroup is one calendar day of items.
type DateGroup[T any] struct {
	Label string `json:"label"`
	Items []T    `json:"items"`
}

// GroupByDate buckets items per calendar day of at(item), compared in now's
// location. Buckets keep the order in which their day first appears and
// items keep their relative order, so a newest-first input yields Today,
// Yesterday, then older days. items is not modified.
func GroupByDate[T any](items []T, at func(T) time.Time, now time.Time) []DateGroup[T] {
	if len(items) == 0 {
		return nil
	}

	loc := now.Location()
	today := startOfDay(now)

	var groups []DateGroup[T]
	index := make(map[time.Time]int)
	for _, item := range items {
		day := startOfDay(at(item).In(loc))
		i, ok := index[day]
		if !ok {
			i = len(groups)
			index[day] = i
			groups = append(groups, DateGroup[T]{Label: dayLabel(day, today)})
		}
		groups[i].Items = append(groups[i].Items, item)
	}
	return groups
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dayLabel names day relative to today. Both are midnights in one location.
func dayLabel(day, today time.Time) string {
	switch daysBetween(day, today) {
	case 0:
		return "Today"
	case 1:
		return "Yesterday"
	case 2, 3, 4, 5, 6:
		return day.Format("Monday, January 2")
	default:
		return day.Format("Jan 2, 2006")
	}
}

// daysBetween counts calendar days from day to today. Dates are compared
// rather than durations so DST shifts cannot skew the count.
func daysBetween(day, today time.Time) int {
	a := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
	b := time.Date(today.Year(), today.Month(), today.Day(), 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}
