package decompose_test

import (
	"strings"
	"testing"

	"github.com/openinquiry/inquiry/internal/testutil"
	"github.com/openinquiry/inquiry/pkg/decompose"
)

func TestRuleBased_InterrogativeSplit(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	d := decompose.NewRuleBased()

	subtasks, err := d.Decompose(ctx, "Who ordered the shutdown, when did it happen, and why?")
	testutil.AssertNoError(t, err, "decompose")
	testutil.AssertEqual(t, 3, len(subtasks), "one subtask per interrogative")

	// Keyword order fixes both ids and the priority stagger
	testutil.AssertEqual(t, "sub-0", subtasks[0].ID, "who id")
	testutil.AssertEqual(t, "sub-3", subtasks[1].ID, "when id")
	testutil.AssertEqual(t, "sub-4", subtasks[2].ID, "why id")
	testutil.AssertEqual(t, 10, subtasks[0].Priority, "first priority")
	testutil.AssertEqual(t, 9, subtasks[1].Priority, "second priority")
	testutil.AssertEqual(t, 8, subtasks[2].Priority, "third priority")

	if !strings.Contains(subtasks[0].Description, "actors involved") {
		t.Errorf("unexpected who description: %s", subtasks[0].Description)
	}
	testutil.AssertEqual(t, "specialized", subtasks[2].SuggestedSources[0], "why source")
}

func TestRuleBased_Deterministic(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	d := decompose.NewRuleBased()

	first, err := d.Decompose(ctx, "What happened and how?")
	testutil.AssertNoError(t, err, "first decompose")
	second, err := d.Decompose(ctx, "What happened and how?")
	testutil.AssertNoError(t, err, "second decompose")

	testutil.AssertEqual(t, len(first), len(second), "same subtask count")
	for i := range first {
		testutil.AssertEqual(t, first[i].ID, second[i].ID, "same id")
		testutil.AssertEqual(t, first[i].Priority, second[i].Priority, "same priority")
	}
}

func TestRuleBased_CatchAll(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	d := decompose.NewRuleBased()

	subtasks, err := d.Decompose(ctx, "the refinery incident")
	testutil.AssertNoError(t, err, "decompose")
	testutil.AssertEqual(t, 1, len(subtasks), "single catch-all subtask")
	testutil.AssertEqual(t, "sub-0", subtasks[0].ID, "id")
	testutil.AssertEqual(t, 5, subtasks[0].Priority, "priority")
	testutil.AssertEqual(t, "news", subtasks[0].SuggestedSources[0], "source")
	if !strings.Contains(subtasks[0].Description, "the refinery incident") {
		t.Errorf("catch-all must carry the objective: %s", subtasks[0].Description)
	}
}

func TestRuleBased_WholeWordMatching(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	d := decompose.NewRuleBased()

	// "somewhat" and "showdown" must not trigger what/how subtasks
	subtasks, err := d.Decompose(ctx, "a somewhat tense showdown")
	testutil.AssertNoError(t, err, "decompose")
	testutil.AssertEqual(t, 1, len(subtasks), "catch-all only")
}

func TestRuleBased_EmptyObjective(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	d := decompose.NewRuleBased()

	subtasks, err := d.Decompose(ctx, "   ")
	testutil.AssertNoError(t, err, "decompose")
	testutil.AssertEqual(t, 0, len(subtasks), "no subtasks for empty objective")
}
