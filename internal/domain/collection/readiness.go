package collection

type readinessRule struct {
	label string
	link  string
	check func(c *Collection) bool
}

var readinessRules = []readinessRule{
	{
		label: "At least one dataset",
		link:  "datasets",
		check: func(c *Collection) bool { return len(c.Datasets) > 0 },
	},
	{
		label: "User scope defined",
		link:  "users",
		check: func(c *Collection) bool {
			return len(c.Users) > 0 || len(c.Scope.Roles) > 0 || len(c.Scope.Orgs) > 0
		},
	},
	{
		label: "Terms selected",
		link:  "terms",
		check: func(c *Collection) bool { return c.Terms.HasPrimaryUse() },
	},
}

// GetReadinessItems evaluates the submission checklist in order.
func GetReadinessItems(c *Collection) []ReadinessItem {
	items := make([]ReadinessItem, 0, len(readinessRules))
	for _, rule := range readinessRules {
		items = append(items, ReadinessItem{
			Label:    rule.label,
			Complete: rule.check(c),
			Link:     rule.link,
		})
	}
	return items
}

// IsReadyForAIP reports whether every checklist item is complete.
func IsReadyForAIP(c *Collection) bool {
	for _, rule := range readinessRules {
		if !rule.check(c) {
			return false
		}
	}
	return true
}

// Evaluate returns the checklist together with its completion counts.
func Evaluate(c *Collection) Readiness {
	items := GetReadinessItems(c)
	completed := 0
	for _, item := range items {
		if item.Complete {
			completed++
		}
	}
	return Readiness{
		Items:     items,
		Completed: completed,
		Total:     len(items),
		Ready:     completed == len(items),
	}
}
