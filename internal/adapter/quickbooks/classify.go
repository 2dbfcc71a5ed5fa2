package quickbooks

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/iho/qbwriter/internal/domain"
)

// intuitNS is the namespace the v3 API uses for XML fault documents.
const intuitNS = "http://schema.intuit.com/finance/v3"

type jsonFaultEnvelope struct {
	Fault struct {
		Type  string `json:"type"`
		Error []struct {
			Message string `json:"Message"`
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
			Element string `json:"element"`
		} `json:"Error"`
	} `json:"Fault"`
}

type xmlFaultError struct {
	Code    string `xml:"code,attr"`
	Element string `xml:"element,attr"`
	Message string `xml:"Message"`
	Detail  string `xml:"Detail"`
}

// classifyFault normalizes a non-2xx response body into a Fault, dispatching
// on the declared content type. Unrecognizable bodies fail with a
// ResponseParseError under strict policy; under lenient policy they become a
// synthetic single-error fault so the row is never silently dropped.
func classifyFault(contentType string, body []byte, strict bool) (*domain.Fault, error) {
	switch {
	case strings.Contains(contentType, "json"):
		if fault := parseJSONFault(body); fault != nil {
			return fault, nil
		}
	case strings.Contains(contentType, "xml"):
		if fault := parseXMLFault(body); fault != nil {
			return fault, nil
		}
	}

	if strict {
		return nil, &domain.ResponseParseError{
			Msg:  "cannot classify error response body (content type " + contentType + ")",
			Body: string(body),
		}
	}
	return domain.SyntheticFault(string(body)), nil
}

func parseJSONFault(body []byte) *domain.Fault {
	var envelope jsonFaultEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil
	}
	if len(envelope.Fault.Error) == 0 {
		return nil
	}

	fault := &domain.Fault{Type: envelope.Fault.Type}
	for _, e := range envelope.Fault.Error {
		fault.Errors = append(fault.Errors, domain.FaultError{
			Code:    e.Code,
			Element: e.Element,
			Message: e.Message,
			Detail:  e.Detail,
		})
	}
	return fault
}

// parseXMLFault walks the document for Error elements under the Intuit
// namespace. The surrounding structure varies between IntuitResponse and
// bare Fault roots, so the walk does not assume a fixed envelope.
func parseXMLFault(body []byte) *domain.Fault {
	dec := xml.NewDecoder(bytes.NewReader(body))
	fault := &domain.Fault{}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil
		}

		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		if se.Name.Local == "Fault" && se.Name.Space == intuitNS && fault.Type == "" {
			for _, attr := range se.Attr {
				if attr.Name.Local == "type" {
					fault.Type = attr.Value
				}
			}
			continue
		}

		if se.Name.Local != "Error" || se.Name.Space != intuitNS {
			continue
		}

		var xe xmlFaultError
		if err := dec.DecodeElement(&xe, &se); err != nil {
			return nil
		}
		fault.Errors = append(fault.Errors, domain.FaultError{
			Code:    xe.Code,
			Element: xe.Element,
			Message: strings.TrimSpace(xe.Message),
			Detail:  strings.TrimSpace(xe.Detail),
		})
	}

	if len(fault.Errors) == 0 {
		return nil
	}
	return fault
}
