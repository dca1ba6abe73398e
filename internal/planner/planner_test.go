package planner_test

import (
	"testing"

	"github.com/mailstash/mailstash/internal/planner"
	"github.com/mailstash/mailstash/internal/testutil"
)

func TestPlanSyncIsSetDifference(t *testing.T) {
	remote := []string{"a", "b", "c", "d"}
	known := testutil.MakeSet("b", "d")

	fetch := planner.Plan(remote, known, planner.ModeSync)

	if len(fetch) != 2 || !fetch["a"] || !fetch["c"] {
		t.Errorf("fetch set = %v, want {a, c}", fetch)
	}
}

func TestPlanSyncEmptyWhenFullyCached(t *testing.T) {
	remote := []string{"a", "b"}
	known := testutil.MakeSet("a", "b", "c")

	fetch := planner.Plan(remote, known, planner.ModeSync)

	if len(fetch) != 0 {
		t.Errorf("fetch set = %v, want empty", fetch)
	}
}

func TestPlanForceBypassesCache(t *testing.T) {
	remote := []string{"a", "b", "c"}
	known := testutil.MakeSet("a", "b", "c")

	fetch := planner.Plan(remote, known, planner.ModeForce)

	if len(fetch) != 3 {
		t.Errorf("fetch set = %v, want all of %v", fetch, remote)
	}
	for _, id := range remote {
		if !fetch[id] {
			t.Errorf("fetch set missing %q", id)
		}
	}
}

func TestPlanDegenerateInputs(t *testing.T) {
	if fetch := planner.Plan(nil, testutil.MakeSet("a"), planner.ModeSync); len(fetch) != 0 {
		t.Errorf("empty remote: fetch set = %v, want empty", fetch)
	}

	fetch := planner.Plan([]string{"a", "b"}, map[string]bool{}, planner.ModeSync)
	if len(fetch) != 2 || !fetch["a"] || !fetch["b"] {
		t.Errorf("first full sync: fetch set = %v, want {a, b}", fetch)
	}
}

func TestOrderPreservesRemoteOrder(t *testing.T) {
	remote := []string{"c", "a", "b", "d"}
	fetch := testutil.MakeSet("d", "a")

	testutil.AssertStrings(t, planner.Order(remote, fetch), "a", "d")
}
