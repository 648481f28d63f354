package graph

import (
	"context"
	"fmt"
	"sort"
)

// NodeType represents the type of a node in the graph
type NodeType string

const (
	NodeTypeStart     NodeType = "start"
	NodeTypeEnd       NodeType = "end"
	NodeTypeStep      NodeType = "step"
	NodeTypeCondition NodeType = "condition"
)

// State represents the execution state passed between nodes
type State map[string]any

// NodeFunc is the function executed by a node
type NodeFunc func(context.Context, State) (State, error)

// ConditionFunc evaluates a condition and returns the label of the branch to take
type ConditionFunc func(context.Context, State) (string, error)

// Interceptor wraps the execution of every node, for tracing or logging.
// It must call run exactly once and return its error.
type Interceptor func(ctx context.Context, node *Node, run func(context.Context) error) error

// Node represents a node in the execution graph
type Node struct {
	Name      string
	Type      NodeType
	Execute   NodeFunc
	Condition ConditionFunc     // Only for condition nodes
	Next      string            // Outgoing edge for non-condition nodes
	NextMap   map[string]string // For condition nodes: condition result -> next node
}

// Graph is a state machine: every node hands the state to exactly one
// successor, chosen statically or by a condition, until the end node runs.
type Graph struct {
	nodes       map[string]*Node
	startNode   string
	endNode     string
	maxVisits   int
	interceptor Interceptor
}

// NewGraph creates a new graph
func NewGraph() *Graph {
	return &Graph{
		nodes:     make(map[string]*Node),
		maxVisits: 10,
	}
}

func (g *Graph) validateNode(node *Node) {
	if node.Name == "" {
		panic("node name cannot be empty")
	}

	switch node.Type {
	case NodeTypeCondition:
		if node.Condition == nil {
			panic(fmt.Sprintf("condition node %s must have non-nil Condition function", node.Name))
		}
	default:
		if node.Execute == nil {
			panic(fmt.Sprintf("node %s of type %s must have non-nil Execute function", node.Name, node.Type))
		}
	}
}

// AddNode adds a node to the graph
func (g *Graph) AddNode(node *Node) {
	if _, exists := g.nodes[node.Name]; exists {
		panic(fmt.Sprintf("node %s already exists", node.Name))
	}

	g.validateNode(node)

	g.nodes[node.Name] = node

	// Auto-set start and end nodes
	if node.Type == NodeTypeStart {
		g.startNode = node.Name
	}
	if node.Type == NodeTypeEnd {
		g.endNode = node.Name
	}
}

// SetStartNode sets the start node
func (g *Graph) SetStartNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.startNode = name
}

// SetEndNode sets the end node
func (g *Graph) SetEndNode(name string) {
	if _, exists := g.nodes[name]; !exists {
		panic(fmt.Sprintf("node %s not found", name))
	}
	g.endNode = name
}

// SetInterceptor installs an interceptor around every node.
func (g *Graph) SetInterceptor(i Interceptor) {
	g.interceptor = i
}

// Validate checks that every edge points at a known node and that an end
// node is reachable by name.
func (g *Graph) Validate() error {
	if g.startNode == "" {
		return fmt.Errorf("start node not set")
	}
	if g.endNode == "" {
		return fmt.Errorf("end node not set")
	}
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		node := g.nodes[name]
		switch node.Type {
		case NodeTypeEnd:
			continue
		case NodeTypeCondition:
			if len(node.NextMap) == 0 {
				return fmt.Errorf("condition node %s has no branches", name)
			}
			for label, next := range node.NextMap {
				if _, ok := g.nodes[next]; !ok {
					return fmt.Errorf("node %s branch %q points at unknown node %s", name, label, next)
				}
			}
		default:
			if node.Next == "" {
				return fmt.Errorf("no next node specified for node %s", name)
			}
			if _, ok := g.nodes[node.Next]; !ok {
				return fmt.Errorf("node %s points at unknown node %s", name, node.Next)
			}
		}
	}
	return nil
}

// Execute runs the graph from the start node until the end node returns.
// Node errors abort the run; a node visited more than the configured
// maximum is treated as a loop.
func (g *Graph) Execute(ctx context.Context, initialState State) (State, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	state := initialState
	if state == nil {
		state = make(State)
	}

	visited := make(map[string]int)
	current := g.startNode
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		node := g.nodes[current]

		// Detect runaway loops by counting how many times we revisit a node.
		visited[current]++
		if visited[current] > g.maxVisits {
			return nil, fmt.Errorf("infinite loop detected at node %s", current)
		}

		var next string
		err := g.run(ctx, node, func(ctx context.Context) error {
			var err error
			next, state, err = g.step(ctx, node, state)
			return err
		})
		if err != nil {
			return nil, err
		}

		if node.Type == NodeTypeEnd {
			return state, nil
		}
		current = next
	}
}

func (g *Graph) run(ctx context.Context, node *Node, fn func(context.Context) error) error {
	if g.interceptor == nil {
		return fn(ctx)
	}
	return g.interceptor(ctx, node, fn)
}

func (g *Graph) step(ctx context.Context, node *Node, state State) (string, State, error) {
	switch node.Type {
	case NodeTypeCondition:
		result, err := node.Condition(ctx, state)
		if err != nil {
			return "", nil, fmt.Errorf("error evaluating condition at node %s: %w", node.Name, err)
		}
		next, ok := node.NextMap[result]
		if !ok {
			return "", nil, fmt.Errorf("node %s has no branch for %q", node.Name, result)
		}
		return next, state, nil
	default:
		out, err := node.Execute(ctx, state)
		if err != nil {
			return "", nil, fmt.Errorf("error executing node %s: %w", node.Name, err)
		}
		if out == nil {
			out = state
		}
		return node.Next, out, nil
	}
}

// GetNode returns a node by name
func (g *Graph) GetNode(name string) (*Node, error) {
	node, exists := g.nodes[name]
	if !exists {
		return nil, fmt.Errorf("node %s not found", name)
	}
	return node, nil
}

// SetMaxVisits sets the maximum number of visits to a node
func (g *Graph) SetMaxVisits(maxVisits int) {
	g.maxVisits = maxVisits
}

// Builder helps build graphs fluently
type Builder struct {
	graph *Graph
}

// NewBuilder creates a new graph builder
func NewBuilder() *Builder {
	return &Builder{
		graph: NewGraph(),
	}
}

// AddNode adds a node to the graph
func (b *Builder) AddNode(name string, nodeType NodeType, execute NodeFunc) *Builder {
	b.graph.AddNode(&Node{
		Name:    name,
		Type:    nodeType,
		Execute: execute,
	})
	return b
}

// AddConditionNode adds a condition node
func (b *Builder) AddConditionNode(name string, condition ConditionFunc, nextMap map[string]string) *Builder {
	b.graph.AddNode(&Node{
		Name:      name,
		Type:      NodeTypeCondition,
		Condition: condition,
		NextMap:   nextMap,
	})
	return b
}

// AddEdge connects two nodes. A node has at most one outgoing edge.
func (b *Builder) AddEdge(from, to string) *Builder {
	node, exists := b.graph.nodes[from]
	if !exists {
		panic(fmt.Sprintf("node %s not found", from))
	}
	if node.Type == NodeTypeCondition {
		panic(fmt.Sprintf("condition node %s routes through its branch map", from))
	}
	if node.Next != "" && node.Next != to {
		panic(fmt.Sprintf("node %s already has an edge to %s", from, node.Next))
	}
	node.Next = to
	return b
}

// SetStart sets the start node
func (b *Builder) SetStart(name string) *Builder {
	b.graph.SetStartNode(name)
	return b
}

// SetEnd sets the end node
func (b *Builder) SetEnd(name string) *Builder {
	b.graph.SetEndNode(name)
	return b
}

// SetMaxVisits sets the maximum number of visits to a node
func (b *Builder) SetMaxVisits(maxVisits int) *Builder {
	b.graph.SetMaxVisits(maxVisits)
	return b
}

// WithInterceptor installs an interceptor around every node.
func (b *Builder) WithInterceptor(i Interceptor) *Builder {
	b.graph.SetInterceptor(i)
	return b
}

// Build returns the constructed graph
func (b *Builder) Build() *Graph {
	return b.graph
}
