package domain

import "strings"

// FaultError is a single error inside a Fault.
type FaultError struct {
	Code    string `json:"code,omitempty"`
	Element string `json:"element,omitempty"`
	Message string `json:"Message,omitempty"`
	Detail  string `json:"Detail,omitempty"`
}

// Fault is the normalized error shape of the accounting API, regardless of
// whether the wire encoding was JSON, XML or plain text. A nil *Fault means
// the submission succeeded.
type Fault struct {
	Type   string       `json:"type,omitempty"`
	Errors []FaultError `json:"Error"`
}

// SyntheticFault wraps a raw, unclassifiable response body into a Fault so
// the row is never silently dropped under lenient policy.
func SyntheticFault(raw string) *Fault {
	return &Fault{
		Errors: []FaultError{{Message: "unrecognized response body", Detail: raw}},
	}
}

// Summary renders the fault as a single line for the error table and logs.
func (f *Fault) Summary() string {
	if f == nil || len(f.Errors) == 0 {
		return ""
	}

	parts := make([]string, 0, len(f.Errors))
	for _, e := range f.Errors {
		var b strings.Builder
		if e.Code != "" {
			b.WriteString("[" + e.Code + "] ")
		}
		b.WriteString(e.Message)
		if e.Detail != "" {
			b.WriteString(": " + e.Detail)
		}
		if e.Element != "" {
			b.WriteString(" (element " + e.Element + ")")
		}
		parts = append(parts, b.String())
	}

	return strings.Join(parts, "; ")
}
