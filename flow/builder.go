package flow

import (
	"fmt"

	"github.com/lyzr/flowengine/node"
	"github.com/lyzr/flowengine/registry"
)

// NodeDef is one entry of a workflow document's "nodes" array.
type NodeDef struct {
	ID   string
	Type string
	Data node.ConfigData
}

// EdgeDef is one entry of a workflow document's "edges" array.
type EdgeDef struct {
	Source       string
	Target       string
	SourceHandle string
}

// Document is the external JSON shape a Builder consumes.
type Document struct {
	Nodes []NodeDef
	Edges []EdgeDef
	Env   map[string]interface{}
}

// BuildError marks a failure that aborts loading a workflow document,
// distinct from per-edge warnings which are merely skipped.
type BuildError struct {
	msg string
}

func (e *BuildError) Error() string { return e.msg }

func wrapBuildError(err error) *BuildError {
	return &BuildError{msg: fmt.Sprintf("could not add node: %s", err.Error())}
}

// Builder translates a Document into a Graph using a node registry to
// instantiate each node definition.
type Builder struct {
	Graph    *Graph
	Registry *registry.Registry
	norm     BranchKeyNormalizer
}

// NewBuilder returns a Builder that populates graph using reg to
// instantiate node classes.
func NewBuilder(graph *Graph, reg *registry.Registry) *Builder {
	return &Builder{Graph: graph, Registry: reg}
}

// Load adds every node and edge in doc to the builder's graph. A failure
// instantiating any node aborts the whole load; an edge referencing an
// unknown node id is skipped with no error, matching the tolerant-edge /
// strict-node asymmetry of the source builder.
func (b *Builder) Load(doc Document) error {
	if err := b.addNodes(doc.Nodes); err != nil {
		return err
	}
	b.connectEdges(doc.Edges)
	return nil
}

func (b *Builder) addNodes(defs []NodeDef) error {
	for _, def := range defs {
		cfg := node.Config{ID: def.ID, Type: def.Type, Data: def.Data}
		instance, err := b.Registry.Create(cfg)
		if err != nil {
			return wrapBuildError(err)
		}
		if err := b.Graph.AddNode(NewFlowNode(cfg.ID, instance)); err != nil {
			return wrapBuildError(err)
		}
	}
	return nil
}

func (b *Builder) connectEdges(edges []EdgeDef) {
	for _, edge := range edges {
		if edge.Source == "" || edge.Target == "" {
			continue
		}
		key := b.norm.NormalizeToLowercase(edge.SourceHandle)
		if err := b.Graph.ConnectNodes(edge.Source, edge.Target, key); err != nil {
			// A bad edge does not abort the build; it is skipped
			// silently and Load does not report it.
			continue
		}
	}
}
