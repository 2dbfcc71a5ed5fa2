package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Payload is the JSON object submitted to the API for one EntryGroup.
// Immutable once built; never retried with mutation.
type Payload map[string]any

// BuildPayload maps an EntryGroup to the vendor payload for the given
// operation. Pure transform: no I/O, no state. Column presence is validated
// upfront by the run coordinator; values are trusted except for numeric
// coercion, where a bad Amount is a fatal RowDataError.
func BuildPayload(op Operation, group EntryGroup) (Payload, error) {
	switch op {
	case JournalEntryCreate:
		return buildJournalEntry(group)
	case InvoiceCreate:
		return buildInvoice(group)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperation, op)
	}
}

func buildJournalEntry(group EntryGroup) (Payload, error) {
	head := group.Rows[0]
	payload := Payload{
		"TxnDate":     head["TxnDate"],
		"DocNumber":   head["DocNumber"],
		"PrivateNote": head["PrivateNote"],
	}

	lines := make([]map[string]any, 0, len(group.Rows))
	for _, row := range group.Rows {
		amount, err := parseAmount(group.ID, row["Amount"])
		if err != nil {
			return nil, err
		}

		detail := map[string]any{
			"PostingType": row["Type"],
			"AccountRef": map[string]any{
				"name":  row["AccountRefName"],
				"value": row["AccountRefValue"],
			},
		}
		if row["ClassRefValue"] != "" {
			detail["ClassRef"] = map[string]any{
				"name":  row["ClassRefName"],
				"value": row["ClassRefValue"],
			}
		}
		if row["DepartmentRefValue"] != "" {
			detail["DepartmentRef"] = map[string]any{
				"name":  row["DepartmentRefName"],
				"value": row["DepartmentRefValue"],
			}
		}

		lines = append(lines, map[string]any{
			"JournalEntryLineDetail": detail,
			"DetailType":             "JournalEntryLineDetail",
			"Amount":                 amount,
			"Description":            row["Description"],
		})
	}

	payload["Line"] = lines
	return payload, nil
}

func buildInvoice(group EntryGroup) (Payload, error) {
	head := group.Rows[0]
	payload := Payload{
		"TxnDate":     head["TxnDate"],
		"DocNumber":   head["DocNumber"],
		"PrivateNote": head["PrivateNote"],
		"CustomerRef": map[string]any{
			"name":  head["CustomerRefName"],
			"value": head["CustomerRefValue"],
		},
	}

	lines := make([]map[string]any, 0, len(group.Rows))
	for _, row := range group.Rows {
		amount, err := parseAmount(group.ID, row["Amount"])
		if err != nil {
			return nil, err
		}

		detail := map[string]any{
			"ItemRef": map[string]any{
				"name":  row["ItemRefName"],
				"value": row["ItemRefValue"],
			},
		}
		if row["Qty"] != "" {
			qty, err := decimal.NewFromString(row["Qty"])
			if err != nil {
				return nil, &RowDataError{GroupID: group.ID, Msg: fmt.Sprintf("cannot parse Qty %q", row["Qty"])}
			}
			detail["Qty"] = qty.InexactFloat64()
		}

		lines = append(lines, map[string]any{
			"SalesItemLineDetail": detail,
			"DetailType":          "SalesItemLineDetail",
			"Amount":              amount,
			"Description":         row["Description"],
		})
	}

	payload["Line"] = lines
	return payload, nil
}

// parseAmount coerces the Amount column to a number. Parsed with decimal
// first so garbage like "12.3.4" is rejected before it reaches the API.
func parseAmount(groupID, raw string) (float64, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0, &RowDataError{GroupID: groupID, Msg: fmt.Sprintf("cannot parse Amount %q", raw)}
	}
	return d.InexactFloat64(), nil
}
