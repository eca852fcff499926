package notification

import (
	"sort"
)

type groupKey struct {
	collectionID string
	typ          Type
}

// Aggregate rolls up unread, unarchived notifications into dashboard buckets.
// Each (collection, type) pair yields exactly one entry.
func Aggregate(notifications []Notification) DashboardSummary {
	groups := make(map[groupKey]*DashboardEntry)
	unread := 0

	for _, n := range notifications {
		if n.IsRead || n.IsArchived {
			continue
		}
		unread++

		key := groupKey{collectionID: n.CollectionID, typ: n.Type}
		entry, ok := groups[key]
		if !ok {
			entry = &DashboardEntry{
				CollectionID:    n.CollectionID,
				CollectionName:  n.CollectionName,
				Type:            n.Type,
				HighestPriority: n.Priority,
				LatestAt:        n.Timestamp,
			}
			groups[key] = entry
		}
		entry.Count++
		if n.Priority.Higher(entry.HighestPriority) {
			entry.HighestPriority = n.Priority
		}
		if n.Timestamp.After(entry.LatestAt) {
			entry.LatestAt = n.Timestamp
			if n.CollectionName != "" {
				entry.CollectionName = n.CollectionName
			}
		}
	}

	summary := DashboardSummary{
		CriticalBlockers: []DashboardEntry{},
		PendingMentions:  []DashboardEntry{},
		NearingSLA:       []DashboardEntry{},
		ReadyForReview:   []DashboardEntry{},
		UnreadCount:      unread,
	}
	for _, entry := range groups {
		switch entry.Type {
		case TypeBlocker:
			summary.CriticalBlockers = append(summary.CriticalBlockers, *entry)
		case TypeMention:
			summary.PendingMentions = append(summary.PendingMentions, *entry)
		case TypeApproval:
			summary.NearingSLA = append(summary.NearingSLA, *entry)
		case TypeCompletion:
			summary.ReadyForReview = append(summary.ReadyForReview, *entry)
		}
	}

	sortEntries(summary.CriticalBlockers)
	sortEntries(summary.PendingMentions)
	sortEntries(summary.NearingSLA)
	sortEntries(summary.ReadyForReview)
	return summary
}

func sortEntries(entries []DashboardEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].LatestAt.Equal(entries[j].LatestAt) {
			return entries[i].LatestAt.After(entries[j].LatestAt)
		}
		return entries[i].CollectionID < entries[j].CollectionID
	})
}
