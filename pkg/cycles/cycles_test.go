package cycles

import (
	"testing"

	"github.com/ritzau/citegraph/pkg/graph"
)

func TestFindCycles_NoCycles(t *testing.T) {
	g := graph.NewIDGraph()

	// Parent chain: root -> a -> b
	g.AddEdge("root", "a")
	g.AddEdge("a", "b")

	cycles := FindCycles(g)

	if len(cycles) != 0 {
		t.Errorf("Expected no cycles, but found %d", len(cycles))
	}
}

func TestFindCycles_SimpleCycle(t *testing.T) {
	g := graph.NewIDGraph()

	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	cycles := FindCycles(g)

	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}

	ids := cycles[0].IDs
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Errorf("Expected cycle [a b], got %v", ids)
	}
}

func TestFindCycles_SelfLoop(t *testing.T) {
	g := graph.NewIDGraph()

	g.AddEdge("root", "x")
	g.AddEdge("x", "x")

	cycles := FindCycles(g)

	if len(cycles) != 1 {
		t.Fatalf("Expected 1 cycle, but found %d", len(cycles))
	}
	if len(cycles[0].IDs) != 1 || cycles[0].IDs[0] != "x" {
		t.Errorf("Expected self loop on x, got %v", cycles[0].IDs)
	}
}

func TestFindCycles_MultipleCycles(t *testing.T) {
	g := graph.NewIDGraph()

	// Cycle 1: a -> b -> a
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	// Cycle 2: c -> d -> e -> c
	g.AddEdge("c", "d")
	g.AddEdge("d", "e")
	g.AddEdge("e", "c")

	// Acyclic tail
	g.AddEdge("e", "f")

	cycles := FindCycles(g)

	if len(cycles) != 2 {
		t.Fatalf("Expected 2 cycles, but found %d", len(cycles))
	}
	if len(cycles[0].IDs) != 2 || len(cycles[1].IDs) != 3 {
		t.Errorf("Expected cycles of sizes 2 and 3, got %v", cycles)
	}
	if cycles[1].IDs[0] != "c" {
		t.Errorf("Expected second cycle to start at c, got %v", cycles[1].IDs)
	}
}
