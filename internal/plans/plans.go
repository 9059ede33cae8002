// Package plans defines the subscription tiers and feature gating rules.
package plans

import "strings"

// Plan is a subscription tier. Tiers form a strict order and are always
// compared by rank, never by name equality.
type Plan string

const (
	Starter      Plan = "STARTER"
	Basic        Plan = "BASIC"
	Professional Plan = "PROFESSIONAL"
	Enterprise   Plan = "ENTERPRISE"
	Network      Plan = "NETWORK"
)

// rank maps each known plan to its ordinal position. Unknown plans rank
// below STARTER so they never satisfy any minimum.
var rank = map[Plan]int{
	Starter:      1,
	Basic:        2,
	Professional: 3,
	Enterprise:   4,
	Network:      5,
}

// Parse normalizes a plan name. The bool result reports whether the name is
// a known tier.
func Parse(s string) (Plan, bool) {
	p := Plan(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := rank[p]
	return p, ok
}

// Rank returns the ordinal position of p, or 0 for unknown plans.
func Rank(p Plan) int {
	return rank[p]
}

// MeetsMinimum reports whether current grants access to a feature requiring
// at least the required tier.
func MeetsMinimum(current, required Plan) bool {
	cur, ok := rank[current]
	if !ok {
		return false
	}
	req, ok := rank[required]
	if !ok {
		return false
	}
	return cur >= req
}

// All returns the tiers in ascending order.
func All() []Plan {
	return []Plan{Starter, Basic, Professional, Enterprise, Network}
}
