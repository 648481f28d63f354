package graph

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func noop(_ context.Context, s State) (State, error) { return s, nil }

func set(key string, value any) NodeFunc {
	return func(_ context.Context, s State) (State, error) {
		s[key] = value
		return s, nil
	}
}

func TestNewGraph(t *testing.T) {
	if NewGraph() == nil {
		t.Errorf("NewGraph returned nil")
	}
}

func TestAddNodeEmptyName(t *testing.T) {
	g := NewGraph()

	defer func() {
		if r := recover(); r != "node name cannot be empty" {
			t.Errorf("Expected panic 'node name cannot be empty', got %v", r)
		}
	}()

	g.AddNode(&Node{Name: "", Type: NodeTypeStep, Execute: noop})
}

func TestAddNodeDuplicate(t *testing.T) {
	g := NewGraph()
	g.AddNode(&Node{Name: "dup_node", Type: NodeTypeStep, Execute: noop})

	defer func() {
		if r := recover(); r != "node dup_node already exists" {
			t.Errorf("Expected panic 'node dup_node already exists', got %v", r)
		}
	}()
	g.AddNode(&Node{Name: "dup_node", Type: NodeTypeStep, Execute: noop})
}

func TestAddNodeRequiresFunctions(t *testing.T) {
	for _, node := range []*Node{
		{Name: "step", Type: NodeTypeStep},
		{Name: "cond", Type: NodeTypeCondition},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for node %s", node.Name)
				}
			}()
			NewGraph().AddNode(node)
		}()
	}
}

func TestAutoSetStartAndEnd(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, noop).
		AddNode("end", NodeTypeEnd, noop).
		AddEdge("start", "end").
		Build()

	if g.startNode != "start" || g.endNode != "end" {
		t.Fatalf("start/end not auto-set: %q %q", g.startNode, g.endNode)
	}
}

func TestExecuteLinear(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, set("a", 1)).
		AddNode("middle", NodeTypeStep, set("b", 2)).
		AddNode("end", NodeTypeEnd, set("c", 3)).
		AddEdge("start", "middle").
		AddEdge("middle", "end").
		Build()

	state, err := g.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	want := State{"a": 1, "b": 2, "c": 3}
	if !reflect.DeepEqual(state, want) {
		t.Fatalf("state = %v, want %v", state, want)
	}
}

func TestExecuteConditionRouting(t *testing.T) {
	build := func(branch string) *Graph {
		return NewBuilder().
			AddNode("start", NodeTypeStart, noop).
			AddConditionNode("gate", func(context.Context, State) (string, error) {
				return branch, nil
			}, map[string]string{"left": "left", "right": "right"}).
			AddNode("left", NodeTypeStep, set("path", "left")).
			AddNode("right", NodeTypeStep, set("path", "right")).
			AddNode("end", NodeTypeEnd, noop).
			AddEdge("start", "gate").
			AddEdge("left", "end").
			AddEdge("right", "end").
			Build()
	}

	for _, branch := range []string{"left", "right"} {
		state, err := build(branch).Execute(context.Background(), State{})
		if err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		if state["path"] != branch {
			t.Fatalf("expected %s branch, got %v", branch, state["path"])
		}
	}

	_, err := build("middle").Execute(context.Background(), State{})
	if err == nil || !strings.Contains(err.Error(), `no branch for "middle"`) {
		t.Fatalf("expected missing branch error, got %v", err)
	}
}

func TestExecuteStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	reached := false
	g := NewBuilder().
		AddNode("start", NodeTypeStart, func(context.Context, State) (State, error) { return nil, boom }).
		AddNode("end", NodeTypeEnd, func(_ context.Context, s State) (State, error) {
			reached = true
			return s, nil
		}).
		AddEdge("start", "end").
		Build()

	if _, err := g.Execute(context.Background(), nil); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if reached {
		t.Fatal("end node must not run after a failure")
	}
}

func TestExecuteDetectsLoops(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, noop).
		AddConditionNode("loop", func(context.Context, State) (string, error) { return "again", nil },
			map[string]string{"again": "start", "done": "end"}).
		AddNode("end", NodeTypeEnd, noop).
		AddEdge("start", "loop").
		SetMaxVisits(3).
		Build()

	_, err := g.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "infinite loop detected") {
		t.Fatalf("expected loop detection, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	g := NewBuilder().
		AddNode("start", NodeTypeStart, noop).
		AddNode("end", NodeTypeEnd, noop).
		Build()
	if err := g.Validate(); err == nil || !strings.Contains(err.Error(), "no next node") {
		t.Fatalf("expected missing edge error, got %v", err)
	}

	g = NewBuilder().
		AddNode("start", NodeTypeStart, noop).
		AddNode("end", NodeTypeEnd, noop).
		AddEdge("start", "nowhere").
		Build()
	if err := g.Validate(); err == nil || !strings.Contains(err.Error(), "unknown node nowhere") {
		t.Fatalf("expected unknown node error, got %v", err)
	}

	if err := NewGraph().Validate(); err == nil {
		t.Fatal("expected error for empty graph")
	}
}

func TestAddEdgeTwicePanics(t *testing.T) {
	b := NewBuilder().
		AddNode("a", NodeTypeStart, noop).
		AddNode("b", NodeTypeStep, noop).
		AddNode("c", NodeTypeStep, noop).
		AddEdge("a", "b")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for second edge")
		}
	}()
	b.AddEdge("a", "c")
}

func TestInterceptorSeesEveryNode(t *testing.T) {
	var path []string
	g := NewBuilder().
		AddNode("start", NodeTypeStart, noop).
		AddConditionNode("gate", func(context.Context, State) (string, error) { return "go", nil },
			map[string]string{"go": "end"}).
		AddNode("end", NodeTypeEnd, noop).
		AddEdge("start", "gate").
		WithInterceptor(func(ctx context.Context, node *Node, run func(context.Context) error) error {
			path = append(path, node.Name)
			return run(ctx)
		}).
		Build()

	if _, err := g.Execute(context.Background(), nil); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !reflect.DeepEqual(path, []string{"start", "gate", "end"}) {
		t.Fatalf("unexpected path %v", path)
	}
}

func TestExecuteHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewBuilder().
		AddNode("start", NodeTypeStart, func(_ context.Context, s State) (State, error) {
			cancel()
			return s, nil
		}).
		AddNode("end", NodeTypeEnd, noop).
		AddEdge("start", "end").
		Build()

	if _, err := g.Execute(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
