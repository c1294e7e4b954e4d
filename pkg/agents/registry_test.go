package agents_test

import (
	"testing"

	"github.com/openinquiry/inquiry/internal/testutil"
	"github.com/openinquiry/inquiry/pkg/agents"
	"github.com/openinquiry/inquiry/pkg/domain"
)

func TestStaticRegistry_RegisterAndGet(t *testing.T) {
	r := agents.NewStaticRegistry()

	err := r.Register(domain.Agent{Name: "wire_reader", Capabilities: []string{"news"}})
	testutil.AssertNoError(t, err, "register")

	agent, err := r.Get("wire_reader")
	testutil.AssertNoError(t, err, "get")
	testutil.AssertEqual(t, "news", agent.Capabilities[0], "capabilities")

	_, err = r.Get("unknown")
	testutil.AssertError(t, err, "unknown agent")
}

func TestStaticRegistry_RejectsEmptyName(t *testing.T) {
	r := agents.NewStaticRegistry()
	testutil.AssertError(t, r.Register(domain.Agent{}), "empty name")
}

func TestStaticRegistry_RejectsDuplicate(t *testing.T) {
	r := agents.NewStaticRegistry()
	testutil.AssertNoError(t, r.Register(domain.Agent{Name: "wire_reader"}), "first register")
	testutil.AssertError(t, r.Register(domain.Agent{Name: "wire_reader"}), "duplicate register")
}

func TestStaticRegistry_ActiveAgentsSorted(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	r := agents.NewStaticRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		testutil.AssertNoError(t, r.Register(domain.Agent{Name: name}), "register "+name)
	}

	active, err := r.GetActiveAgents(ctx)
	testutil.AssertNoError(t, err, "active agents")
	testutil.AssertEqual(t, 3, len(active), "count")
	testutil.AssertEqual(t, "alpha", active[0].Name, "first")
	testutil.AssertEqual(t, "mid", active[1].Name, "second")
	testutil.AssertEqual(t, "zeta", active[2].Name, "third")
}

func TestDefaultRegistry_Roster(t *testing.T) {
	ctx := testutil.NewTestContext(t)
	r := agents.NewDefaultRegistry()

	active, err := r.GetActiveAgents(ctx)
	testutil.AssertNoError(t, err, "active agents")
	testutil.AssertEqual(t, 5, len(active), "roster size")

	general, err := r.Get(domain.GeneralWorker)
	testutil.AssertNoError(t, err, "general worker present")
	testutil.AssertEqual(t, domain.GeneralWorker, general.Name, "general worker name")
}
