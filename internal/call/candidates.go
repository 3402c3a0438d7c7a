package call

import "encoding/json"

// candidateQueue holds remote candidates that outrace the remote
// description. Until Commit is called every candidate is buffered; after
// Commit, adds pass straight through.
type candidateQueue struct {
	committed bool
	pending   []json.RawMessage
}

// Add either buffers the candidate (returning false) or reports that it can
// be applied immediately (returning true).
func (q *candidateQueue) Add(candidate json.RawMessage) bool {
	if q.committed {
		return true
	}
	q.pending = append(q.pending, candidate)
	return false
}

// Commit marks the remote description as set and returns the buffered
// candidates for application, in arrival order.
func (q *candidateQueue) Commit() []json.RawMessage {
	q.committed = true
	pending := q.pending
	q.pending = nil
	return pending
}
