package pipeline

import (
	"github.com/SecOpsGit/EXEgesis/sim"
)

// An IssuePolicy picks the dispatch port for an issuable uop when several
// ports can serve its resource class. Policies must be deterministic: the
// same uop and port occupancies always produce the same choice.
type IssuePolicy interface {
	// Select returns the index, within eligible, of the port the uop should
	// issue to. It returns ok=false when no eligible port can accept the
	// uop this cycle; the reorder buffer then retries next cycle.
	Select(uop *ROBUop, eligible []*sim.DispatchPort) (choice int, ok bool)
}

// LeastLoaded returns the policy that assigns each issuable uop to the
// eligible port with the fewest queued uops, recomputed fresh per cycle.
// Ties break toward the lowest port index.
func LeastLoaded() IssuePolicy {
	return leastLoadedPolicy{}
}

type leastLoadedPolicy struct{}

func (leastLoadedPolicy) Select(
	_ *ROBUop,
	eligible []*sim.DispatchPort,
) (int, bool) {
	choice := -1
	bestLoad := 0

	for i, port := range eligible {
		if !port.CanPush() {
			continue
		}

		load := port.Size()
		if choice == -1 || load < bestLoad {
			choice = i
			bestLoad = load
		}
	}

	if choice == -1 {
		return 0, false
	}

	return choice, true
}

// FirstFit returns the policy that assigns each issuable uop to the first
// eligible port that can accept it.
func FirstFit() IssuePolicy {
	return firstFitPolicy{}
}

type firstFitPolicy struct{}

func (firstFitPolicy) Select(
	_ *ROBUop,
	eligible []*sim.DispatchPort,
) (int, bool) {
	for i, port := range eligible {
		if port.CanPush() {
			return i, true
		}
	}

	return 0, false
}
