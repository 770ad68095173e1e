package simulation

import (
	"reflect"
	"testing"

	"github.com/claudiarawson/CECS-427-Network-Dynamic-Population-Model/internal/models"
)

// AssertRoundCount asserts the number of rounds produced, round 0 included.
func AssertRoundCount(t *testing.T, result *Result, want int) {
	t.Helper()
	if got := len(result.Rounds); got != want {
		t.Errorf("AssertRoundCount: got %d rounds, want %d", got, want)
	}
}

// AssertReason asserts why the run ended.
func AssertReason(t *testing.T, result *Result, want Reason) {
	t.Helper()
	if result.Summary.Reason != want {
		t.Errorf("AssertReason: reason = %s, want %s", result.Summary.Reason, want)
	}
}

// AssertStatusAt asserts the state of a node in a given round.
func AssertStatusAt(t *testing.T, result *Result, round int, node string, want models.NodeState) {
	t.Helper()
	if round >= len(result.Rounds) {
		t.Errorf("AssertStatusAt: round %d not produced (%d rounds)", round, len(result.Rounds))
		return
	}
	got, ok := result.Rounds[round].State(node)
	if !ok {
		t.Errorf("AssertStatusAt: round %d: node %s not found", round, node)
		return
	}
	if got != want {
		t.Errorf("AssertStatusAt: round %d: node %s = %v, want %v", round, node, got, want)
	}
}

// AssertStatusSet asserts exactly which nodes hold status st in a round.
func AssertStatusSet(t *testing.T, result *Result, round int, st models.Status, want ...string) {
	t.Helper()
	if round >= len(result.Rounds) {
		t.Errorf("AssertStatusSet: round %d not produced (%d rounds)", round, len(result.Rounds))
		return
	}
	got := result.Rounds[round].WithStatus(st)
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AssertStatusSet: round %d: %s = %v, want %v", round, st, got, want)
	}
}

// AssertMonotoneAdoption asserts that no Adopted node ever reverts.
func AssertMonotoneAdoption(t *testing.T, result *Result) {
	t.Helper()
	for i := 1; i < len(result.Rounds); i++ {
		prev, cur := result.Rounds[i-1], result.Rounds[i]
		for _, id := range prev.WithStatus(models.Adopted) {
			if st, _ := cur.State(id); !st.Adopted() {
				t.Errorf("AssertMonotoneAdoption: round %d: node %s reverted to %v", cur.Round, id, st)
			}
		}
	}
}

// AssertAbsorbing asserts that Sheltered, Vaccinated and Recovered nodes
// keep their state until the end of the run.
func AssertAbsorbing(t *testing.T, result *Result) {
	t.Helper()
	for i := 1; i < len(result.Rounds); i++ {
		prev, cur := result.Rounds[i-1], result.Rounds[i]
		for j := 0; j < prev.Len(); j++ {
			id, was := prev.At(j)
			if !was.Status.Immune() {
				continue
			}
			if st, _ := cur.State(id); st != was {
				t.Errorf("AssertAbsorbing: round %d: node %s left %v for %v", cur.Round, id, was, st)
			}
		}
	}
}

// AssertConservation asserts that every round accounts for every node.
func AssertConservation(t *testing.T, result *Result, nodes int) {
	t.Helper()
	for _, r := range result.Rounds {
		total := 0
		for _, n := range r.Counts() {
			total += n
		}
		if total != nodes || r.Len() != nodes {
			t.Errorf("AssertConservation: round %d: %d nodes counted, want %d", r.Round, total, nodes)
		}
	}
}

// AssertSameRun asserts that two results produced identical rounds.
func AssertSameRun(t *testing.T, a, b *Result) {
	t.Helper()
	if len(a.Rounds) != len(b.Rounds) {
		t.Errorf("AssertSameRun: %d rounds vs %d", len(a.Rounds), len(b.Rounds))
		return
	}
	for i := range a.Rounds {
		if !reflect.DeepEqual(a.Rounds[i].States(), b.Rounds[i].States()) {
			t.Errorf("AssertSameRun: round %d differs", i)
			return
		}
		if a.Rounds[i].NewTransitions != b.Rounds[i].NewTransitions {
			t.Errorf("AssertSameRun: round %d new transitions %d vs %d", i, a.Rounds[i].NewTransitions, b.Rounds[i].NewTransitions)
		}
	}
}
