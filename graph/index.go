package graph

import (
	"github.com/waypoint-labs/waypoint/logger"
	"go.uber.org/zap"
)

// buildIndex flattens every element of the graph into an id->element map for
// O(1) lookup. The walk keeps a visited set keyed by element identity so
// malformed documents with duplicated or self-referential substructures still
// terminate.
func buildIndex(g *ParsedGraph) map[string]*Element {
	index := make(map[string]*Element)
	visited := make(map[*Element]struct{})
	for _, proc := range g.Processes {
		for _, el := range proc.Elements {
			indexElement(el, index, visited)
		}
	}
	return index
}

func indexElement(el *Element, index map[string]*Element, visited map[*Element]struct{}) {
	if el == nil {
		return
	}
	if _, seen := visited[el]; seen {
		return
	}
	visited[el] = struct{}{}
	if len(el.Id) == 0 {
		logger.Warn("skipping graph element without id", zap.String("kind", string(el.Kind)))
		return
	}
	if existing, ok := index[el.Id]; ok && existing != el {
		logger.Warn("duplicate element id in graph definition, keeping first occurrence", zap.String("id", el.Id))
		return
	}
	index[el.Id] = el
}
