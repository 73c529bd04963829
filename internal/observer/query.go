package observer

import "github.com/usestring/authwatch-mcp/internal/index"

// Query filters responses by host, method and status range.
type Query = index.Query

// Exchange is a response paired with the request that produced it, when that
// request is still in the log.
type Exchange struct {
	Request  *RequestRecord `json:"request,omitempty"`
	Response ResponseRecord `json:"response"`
}

// Query returns the responses selected by q, oldest first.
func (o *Observer) Query(q Query) []Exchange {
	seqs := o.index.Query(q)

	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Exchange, 0, len(seqs))
	for _, seq := range seqs {
		entry, ok := o.responseSeqs[seq]
		if !ok {
			continue
		}
		ex := Exchange{Response: entry.rec}
		if req, ok := o.requestSeqs[entry.requestSeq]; ok {
			ex.Request = &req
		}
		out = append(out, ex)
	}
	return out
}

// FailedResponses returns the responses with a status of 400 or above.
func (o *Observer) FailedResponses() []ResponseRecord {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var out []ResponseRecord
	for i := 0; i < o.responses.len(); i++ {
		if rec := o.responses.at(i); rec.Failed() {
			out = append(out, rec)
		}
	}
	return out
}
