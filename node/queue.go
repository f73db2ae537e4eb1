package node

// QueueEndpoint is the boundary contract a concrete node exposes when it
// reads or writes a named queue. Concrete queue-writer/queue-reader node
// implementations live outside this engine; all it needs from them is
// this accessor pair so QueueMapper can assign a deterministic queue name
// without knowing anything else about the node.
type QueueEndpoint interface {
	QueueName() string
	SetQueueName(string)
}

// QueueWriter marks a node as the producing side of a queue pairing.
type QueueWriter interface {
	Node
	QueueEndpoint
	isQueueWriter()
}

// QueueReader marks a node as the consuming side of a queue pairing.
type QueueReader interface {
	Node
	QueueEndpoint
	isQueueReader()
}

// QueueWriterMarker is embedded by queue-writer node types so they satisfy
// QueueWriter. See ProducerMarker for why this has to be an embeddable
// type rather than a method every package can declare for itself.
type QueueWriterMarker struct{}

func (QueueWriterMarker) isQueueWriter() {}

// QueueReaderMarker is embedded by queue-reader node types so they satisfy
// QueueReader.
type QueueReaderMarker struct{}

func (QueueReaderMarker) isQueueReader() {}

// QueueEndpointBase gives a concrete node QueueEndpoint bookkeeping on top
// of Base; embed it alongside QueueWriterMarker or QueueReaderMarker to
// satisfy QueueWriter or QueueReader.
type QueueEndpointBase struct {
	Base
	queueName string
}

// QueueName returns the currently assigned queue name, "" if unset.
func (q *QueueEndpointBase) QueueName() string { return q.queueName }

// SetQueueName assigns the queue name this endpoint reads or writes.
func (q *QueueEndpointBase) SetQueueName(name string) { q.queueName = name }
