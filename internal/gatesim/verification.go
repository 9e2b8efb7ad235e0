package gatesim

import "fmt"

// verify cross-checks the final snapshot and returns every disagreement.
func verify(stats *Stats) []string {
	var problems []string
	after, before := stats.After, stats.Before

	if occupied := after.Assignment.ByStatus["occupied"]; occupied != after.Checkout.ActiveSessions {
		problems = append(problems, fmt.Sprintf("occupied spots %d != active sessions %d",
			occupied, after.Checkout.ActiveSessions))
	}

	sum := 0
	for _, n := range after.Assignment.ByStatus {
		sum += n
	}
	if sum != after.Assignment.TotalSpots {
		problems = append(problems, fmt.Sprintf("spots by status sum to %d, total is %d",
			sum, after.Assignment.TotalSpots))
	}

	parked := after.Checkout.ActiveSessions - before.Checkout.ActiveSessions
	left := after.Checkout.CompletedSessions - before.Checkout.CompletedSessions
	if parked+left > stats.Entries.Accepted {
		problems = append(problems, fmt.Sprintf("%d sessions opened from %d accepted entries",
			parked+left, stats.Entries.Accepted))
	}
	if left > stats.Exits.Accepted {
		problems = append(problems, fmt.Sprintf("%d sessions closed from %d accepted exits",
			left, stats.Exits.Accepted))
	}
	if after.Checkout.Revenue < before.Checkout.Revenue {
		problems = append(problems, "revenue decreased")
	}
	return problems
}
