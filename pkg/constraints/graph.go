package constraints

// RelationshipGraph is a directed graph of entities connected by relationships
// (from_entity -> to_entity). Node and edge order follow insertion order.
type RelationshipGraph struct {
	// Adjacency list: entity -> entities it points to
	edges map[string][]string
	// Source nodes in first-seen order
	order []string
}

// NewRelationshipGraph creates a new empty graph.
func NewRelationshipGraph() *RelationshipGraph {
	return &RelationshipGraph{
		edges: make(map[string][]string),
	}
}

// AddEdge adds a directed edge from -> to.
func (g *RelationshipGraph) AddEdge(from, to string) {
	if _, ok := g.edges[from]; !ok {
		g.order = append(g.order, from)
	}
	g.edges[from] = append(g.edges[from], to)
}

// FindCycles runs a DFS from every unvisited source node and reports each
// back edge as a cycle: the recursion stack from the re-entered node, closed
// by that node again. The same cycle may be reported more than once when it
// is reachable from several entry points.
func (g *RelationshipGraph) FindCycles() [][]string {
	visited := make(map[string]bool)
	var stack []string
	var cycles [][]string

	var dfs func(node string)
	dfs = func(node string) {
		visited[node] = true
		stack = append(stack, node)

		for _, neighbor := range g.edges[node] {
			if !visited[neighbor] {
				dfs(neighbor)
				continue
			}
			if idx := indexOf(stack, neighbor); idx >= 0 {
				cycle := append(append([]string(nil), stack[idx:]...), neighbor)
				cycles = append(cycles, cycle)
			}
		}

		stack = stack[:len(stack)-1]
	}

	for _, node := range g.order {
		if !visited[node] {
			dfs(node)
		}
	}
	return cycles
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}
