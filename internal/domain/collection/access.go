package collection

// AccessSummary is the collection-level view of dataset access paths.
type AccessSummary struct {
	AlreadyOpenPct     int    `json:"alreadyOpenPct"`
	ReadyToGrantPct    int    `json:"readyToGrantPct"`
	NeedsApprovalPct   int    `json:"needsApprovalPct"`
	MissingLocationPct int    `json:"missingLocationPct"`
	DatasetCount       int    `json:"datasetCount"`
	ETA                string `json:"eta,omitempty"`
}

// ETA labels.
const (
	ETAInstant   = "~1 hour"
	ETAApproval  = "2–5 business days"
	ETADiscovery = "pending discovery"
)

// Aggregate averages the dataset breakdowns. Each bucket is rounded
// half-up on its own, so the percentages need not sum to 100.
func Aggregate(datasets []Dataset) AccessSummary {
	n := len(datasets)
	if n == 0 {
		return AccessSummary{}
	}

	var open, ready, approval, missing int
	for _, d := range datasets {
		open += d.AccessBreakdown.AlreadyOpen
		ready += d.AccessBreakdown.ReadyToGrant
		approval += d.AccessBreakdown.NeedsApproval
		missing += d.AccessBreakdown.MissingLocation
	}

	return AccessSummary{
		AlreadyOpenPct:     divRound(open, n),
		ReadyToGrantPct:    divRound(ready, n),
		NeedsApprovalPct:   divRound(approval, n),
		MissingLocationPct: divRound(missing, n),
		DatasetCount:       n,
	}
}

// EstimateUsersWithAccess applies a percentage to a user count, rounding half-up.
func EstimateUsersWithAccess(totalUsers, pct int) int {
	if totalUsers <= 0 || pct <= 0 {
		return 0
	}
	return divRound(totalUsers*pct, 100)
}

// EstimateCompletionETA picks the label of the dominant access bucket.
// Ties go to the slower bucket.
func EstimateCompletionETA(s AccessSummary) string {
	instant := s.AlreadyOpenPct + s.ReadyToGrantPct
	approval := s.NeedsApprovalPct
	discovery := s.MissingLocationPct

	switch {
	case instant == 0 && approval == 0 && discovery == 0:
		return ETADiscovery
	case discovery >= approval && discovery >= instant:
		return ETADiscovery
	case approval >= instant:
		return ETAApproval
	default:
		return ETAInstant
	}
}

// divRound divides non-negative integers rounding half-up.
func divRound(num, den int) int {
	return (num*2 + den) / (den * 2)
}
