package domain

// WorkItem names one candidate computation in the key space.
//
// Index is the chunk index; Name is the structured relative path rendered
// from it (see keyspace.Name). A WorkItem is created by the producer and
// consumed by exactly one worker.
type WorkItem struct {
	Index uint32 `json:"index"`
	Name  string `json:"name"`
}

func (w WorkItem) String() string {
	return w.Name
}
