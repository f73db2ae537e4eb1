package postprocess

import (
	"github.com/lyzr/flowengine/flow"
	"github.com/lyzr/flowengine/node"
)

// QueueMapper assigns a deterministic queue name to every directly
// connected queue-writer -> queue-reader pair that has not already been
// given one, so users never have to coordinate queue names by hand.
type QueueMapper struct {
	graph *flow.Graph
}

// NewQueueMapper returns a QueueMapper over graph.
func NewQueueMapper(graph *flow.Graph) *QueueMapper {
	return &QueueMapper{graph: graph}
}

// Execute walks every edge in the graph and, for each writer->reader pair
// missing a queue name, assigns "queue_{writerId}_{readerId}" to both
// sides. A writer keeps the first name it is given, so a writer connected
// to several readers writes only to the queue of the first pair visited;
// each further reader is still given its own pair name.
func (m *QueueMapper) Execute(Options) error {
	for _, fn := range m.graph.NodeMap {
		writer, ok := fn.Instance.(node.QueueWriter)
		if !ok {
			continue
		}
		for _, children := range fn.Next {
			for _, child := range children {
				reader, ok := child.Instance.(node.QueueReader)
				if !ok {
					continue
				}
				m.assign(writer, reader)
			}
		}
	}
	return nil
}

func (m *QueueMapper) assign(writer node.QueueWriter, reader node.QueueReader) {
	name := "queue_" + writer.ID() + "_" + reader.ID()

	if isDefaultQueueName(writer.QueueName()) {
		writer.SetQueueName(name)
	}
	if isDefaultQueueName(reader.QueueName()) {
		reader.SetQueueName(name)
	}
}

func isDefaultQueueName(current string) bool {
	return current == "" || current == "default"
}
