package state_test

import (
	"testing"

	"github.com/openinquiry/inquiry/internal/testutil"
	"github.com/openinquiry/inquiry/pkg/domain"
	"github.com/openinquiry/inquiry/pkg/state"
)

func TestInvestigation_TransitionsDoNotMutateOriginal(t *testing.T) {
	original := state.New("inv-1", "the merger", 5)

	updated := original.
		WithMessage("first").
		WithSubtasks(testutil.NewTestSubtask("sub-0", "scan the wires")).
		WithAssignment("sub-0", "wire_reader").
		WithFindings(testutil.NewTestFinding("news", "Reuters confirms the merger"))

	testutil.AssertEqual(t, 0, len(original.Messages), "original messages")
	testutil.AssertEqual(t, 0, len(original.Subtasks), "original subtasks")
	testutil.AssertEqual(t, 0, len(original.Assignments), "original assignments")
	testutil.AssertEqual(t, 0, len(original.Findings), "original findings")

	testutil.AssertEqual(t, 1, len(updated.Messages), "updated messages")
	testutil.AssertEqual(t, 1, len(updated.Subtasks), "updated subtasks")
	testutil.AssertEqual(t, "wire_reader", updated.Assignments["sub-0"], "updated assignment")
	testutil.AssertEqual(t, 1, len(updated.Findings), "updated findings")
}

func TestInvestigation_MessageTrailOrdered(t *testing.T) {
	inv := state.New("inv-1", "the merger", 5).
		WithMessage("analyzed").
		WithMessage("assigned").
		WithMessage("coordinated")

	testutil.AssertEqual(t, 3, len(inv.Messages), "message count")
	testutil.AssertEqual(t, "analyzed", inv.Messages[0], "first message")
	testutil.AssertEqual(t, "coordinated", inv.Messages[2], "last message")
}

func TestInvestigation_SubtaskStatus(t *testing.T) {
	inv := state.New("inv-1", "the merger", 5).WithSubtasks(
		testutil.NewTestSubtask("sub-0", "scan the wires"),
		testutil.NewTestSubtask("sub-1", "read the filings"),
	)

	testutil.AssertEqual(t, 2, len(inv.PendingSubtasks()), "all pending initially")

	inv = inv.WithSubtaskStatus("sub-0", domain.TaskStatusAssigned)
	pending := inv.PendingSubtasks()
	testutil.AssertEqual(t, 1, len(pending), "one left pending")
	testutil.AssertEqual(t, "sub-1", pending[0].ID, "remaining pending id")

	// Unknown ids are ignored rather than panicking
	inv = inv.WithSubtaskStatus("sub-missing", domain.TaskStatusCompleted)
	testutil.AssertEqual(t, 1, len(inv.PendingSubtasks()), "unchanged after unknown id")
}

func TestInvestigation_EvaluationMergesCoverage(t *testing.T) {
	inv := state.New("inv-1", "the merger", 5).
		WithEvaluation(0.4, map[string]float64{"source_diversity": 0.5}, domain.ActionExplore).
		WithEvaluation(0.7, map[string]float64{"geographic_coverage": 0.6}, domain.ActionRefine)

	testutil.AssertEqual(t, 0.7, inv.SignalStrength, "latest signal wins")
	testutil.AssertEqual(t, domain.ActionRefine, inv.NextAction, "latest action wins")
	testutil.AssertEqual(t, 0.5, inv.Coverage["source_diversity"], "earlier dimension retained")
	testutil.AssertEqual(t, 0.6, inv.Coverage["geographic_coverage"], "new dimension merged")
}

func TestInvestigation_RefinementCounter(t *testing.T) {
	inv := state.New("inv-1", "the merger", 3)
	inv = inv.WithRefinement().WithRefinement()

	testutil.AssertEqual(t, 2, inv.RefinementCount, "refinement count")
	testutil.AssertEqual(t, 3, inv.MaxRefinements, "cap carried through")
}

func TestSnapshotStore_SaveLoadRoundTrip(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	store := state.NewSnapshotStore()

	inv := state.New("inv-1", "the merger", 5).WithMessage("analyzed")
	testutil.AssertNoError(t, store.Save(ctx, inv), "save")

	loaded, err := store.Load(ctx, "inv-1")
	testutil.AssertNoError(t, err, "load")
	testutil.AssertEqual(t, "the merger", loaded.Objective, "objective")
	testutil.AssertEqual(t, 1, len(loaded.Messages), "messages")

	// The stored copy must not alias the caller's value
	loaded.Assignments["sub-0"] = "wire_reader"
	reloaded, _ := store.Load(ctx, "inv-1")
	testutil.AssertEqual(t, 0, len(reloaded.Assignments), "store isolated from caller edits")
}

func TestSnapshotStore_RequiresID(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	store := state.NewSnapshotStore()

	err := store.Save(ctx, state.Investigation{})
	testutil.AssertError(t, err, "save without id")
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	store := state.NewSnapshotStore()

	_, err := store.Load(ctx, "inv-unknown")
	testutil.AssertError(t, err, "load missing snapshot")
}

func TestSnapshotStore_OverwriteAndDelete(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	store := state.NewSnapshotStore()

	first := state.New("inv-1", "the merger", 5)
	testutil.AssertNoError(t, store.Save(ctx, first), "save first")
	testutil.AssertNoError(t, store.Save(ctx, first.WithMessage("updated")), "overwrite")

	loaded, err := store.Load(ctx, "inv-1")
	testutil.AssertNoError(t, err, "load")
	testutil.AssertEqual(t, 1, len(loaded.Messages), "latest snapshot wins")

	testutil.AssertNoError(t, store.Delete(ctx, "inv-1"), "delete")
	_, err = store.Load(ctx, "inv-1")
	testutil.AssertError(t, err, "load after delete")
}

func TestSnapshotStore_ListOrderedByCreation(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	store := state.NewSnapshotStore()

	for _, id := range []string{"inv-a", "inv-b", "inv-c"} {
		testutil.AssertNoError(t, store.Save(ctx, state.New(id, "objective "+id, 5)), "save "+id)
	}

	all, err := store.List(ctx)
	testutil.AssertNoError(t, err, "list")
	testutil.AssertEqual(t, 3, len(all), "snapshot count")
	testutil.AssertEqual(t, "inv-a", all[0].ID, "oldest first")
	testutil.AssertEqual(t, "inv-c", all[2].ID, "newest last")
}
