package notification

// ListOptions provides filtering options for listing notifications.
type ListOptions struct {
	RecipientID     string
	CollectionID    string
	Type            Type
	Priority        Priority
	UnreadOnly      bool
	IncludeArchived bool
	Limit           int
	Offset          int
}
