package flow

import "fmt"

// ValidateAcyclic rejects a graph containing a cycle. The source this
// engine is modeled on does not guard against this at build time and
// instead relies on runtime visited-sets to avoid infinite recursion;
// this engine rejects cycles explicitly at load time instead, since an
// unintended cycle here would silently loop the production runner's
// downstream traversal forever.
func ValidateAcyclic(g *Graph) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(g.NodeMap))

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		fn := g.NodeMap[id]
		for _, child := range fn.AllNext() {
			switch color[child.ID] {
			case gray:
				return fmt.Errorf("workflow graph contains a cycle at node %q", child.ID)
			case white:
				if err := visit(child.ID); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range g.NodeMap {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
