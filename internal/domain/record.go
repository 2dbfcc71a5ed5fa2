package domain

import "time"

// ErrorRecord is one failed submission destined for the output error table,
// appended only under lenient policy. Keyed by group id plus endpoint when
// several endpoints run in one invocation.
type ErrorRecord struct {
	ID       string
	Endpoint string
	Action   string
	Body     string
	Error    string
	TS       time.Time
}
