package collection

// ListOptions provides filtering options for listing collections.
type ListOptions struct {
	Owner  string
	States []State
	Limit  int
	Offset int
}

// TimelineOptions provides filtering options for listing timeline events.
type TimelineOptions struct {
	Type  TimelineEventType
	Limit int
}
