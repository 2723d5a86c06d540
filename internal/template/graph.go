package template

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vtejapy/new-cft2/internal/config"
)

// Graph is the component dependency DAG declared in the stack manifest.
type Graph struct {
	nodes []string
	edges map[string][]string
}

// NewGraph builds a dependency graph from the manifest components. Edges run
// from a component to each upstream dependency. Dependencies naming unknown
// components are rejected.
func NewGraph(components []config.Component) (*Graph, error) {
	g := &Graph{edges: make(map[string][]string, len(components))}
	known := make(map[string]struct{}, len(components))
	for _, comp := range components {
		g.nodes = append(g.nodes, comp.Name)
		known[comp.Name] = struct{}{}
	}
	for _, comp := range components {
		for _, dep := range comp.DependsOn {
			if _, ok := known[dep]; !ok {
				return nil, fmt.Errorf("component %q depends on unknown component %q", comp.Name, dep)
			}
			if dep == comp.Name {
				return nil, fmt.Errorf("component %q depends on itself", comp.Name)
			}
			g.edges[comp.Name] = append(g.edges[comp.Name], dep)
		}
	}
	return g, nil
}

// TopoSort returns the nodes in dependency order (dependencies first).
// A cycle yields an error naming the components involved.
func (g *Graph) TopoSort() ([]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	dependents := make(map[string][]string, len(g.nodes))
	for _, n := range g.nodes {
		indegree[n] = 0
	}
	for node, deps := range g.edges {
		for _, dep := range deps {
			indegree[node]++
			dependents[dep] = append(dependents[dep], node)
		}
	}

	var ready []string
	for _, n := range g.nodes {
		if indegree[n] == 0 {
			ready = append(ready, n)
		}
	}
	sort.Strings(ready)

	var order []string
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, dep := range dependents[n] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		sort.Strings(ready)
	}

	if len(order) != len(g.nodes) {
		var cyclic []string
		for _, n := range g.nodes {
			if indegree[n] > 0 {
				cyclic = append(cyclic, n)
			}
		}
		sort.Strings(cyclic)
		return nil, fmt.Errorf("dependency cycle involving components: %s", strings.Join(cyclic, ", "))
	}
	return order, nil
}
