package collection

import (
	"fmt"
	"strings"
)

// ValidateBreakdown checks the breakdown holds non-negative percentages summing to 100.
func ValidateBreakdown(b AccessBreakdown) error {
	values := []int{b.AlreadyOpen, b.ReadyToGrant, b.NeedsApproval, b.MissingLocation}
	sum := 0
	for _, v := range values {
		if v < 0 {
			return fmt.Errorf("%w: access breakdown values must be non-negative", ErrValidation)
		}
		sum += v
	}
	if sum != 100 {
		return fmt.Errorf("%w: access breakdown must sum to 100, got %d", ErrValidation, sum)
	}
	return nil
}

// ValidateDataset validates a dataset before it is attached.
func ValidateDataset(d Dataset) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("%w: dataset id required", ErrValidation)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("%w: dataset name required", ErrValidation)
	}
	if !validDatasetStatus(d.Status) {
		return fmt.Errorf("%w: unknown dataset status %q", ErrValidation, d.Status)
	}
	return ValidateBreakdown(d.AccessBreakdown)
}

// ValidateTerms checks the dependencies between terms flags.
func ValidateTerms(t AgreementOfTerms) error {
	beyond := t.BeyondPrimaryUse.AIResearch || t.BeyondPrimaryUse.SoftwareDevelopment
	if beyond && !t.HasPrimaryUse() {
		return fmt.Errorf("%w: beyond-primary use requires a primary use", ErrValidation)
	}
	if t.ExternalSharing.Public && !t.Publication.External {
		return fmt.Errorf("%w: public sharing requires external publication", ErrValidation)
	}
	return nil
}

// ValidateUsers validates individual user assignments.
func ValidateUsers(users []UserAssignment) error {
	seen := make(map[string]bool, len(users))
	for _, u := range users {
		if strings.TrimSpace(u.UserID) == "" {
			return fmt.Errorf("%w: user id required", ErrValidation)
		}
		if seen[u.UserID] {
			return fmt.Errorf("%w: duplicate user %s", ErrValidation, u.UserID)
		}
		seen[u.UserID] = true
		switch u.Role {
		case RoleRequester, RoleReviewer, RoleMember:
		default:
			return fmt.Errorf("%w: unknown role %q", ErrValidation, u.Role)
		}
	}
	return nil
}

func validDatasetStatus(s DatasetStatus) bool {
	switch s {
	case DatasetAvailable, DatasetPendingReview, DatasetRestricted, DatasetUnavailable:
		return true
	}
	return false
}
