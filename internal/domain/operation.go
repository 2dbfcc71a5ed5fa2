package domain

import "fmt"

// Operation identifies one supported endpoint/action pair. The set is
// closed: adding an endpoint means adding a variant here plus a mapper case
// in BuildPayload, not editing string comparisons at call sites.
type Operation int

const (
	OperationUnknown Operation = iota
	JournalEntryCreate
	InvoiceCreate
)

// ParseOperation resolves configuration strings into an Operation.
func ParseOperation(endpoint, action string) (Operation, error) {
	switch {
	case endpoint == "journalentry" && action == "create":
		return JournalEntryCreate, nil
	case endpoint == "invoice" && action == "create":
		return InvoiceCreate, nil
	default:
		return OperationUnknown, fmt.Errorf("%w: %s/%s", ErrUnsupportedOperation, endpoint, action)
	}
}

// Endpoint returns the configuration name of the target endpoint.
func (o Operation) Endpoint() string {
	switch o {
	case JournalEntryCreate:
		return "journalentry"
	case InvoiceCreate:
		return "invoice"
	default:
		return "unknown"
	}
}

// Action returns the configuration name of the action.
func (o Operation) Action() string {
	switch o {
	case JournalEntryCreate, InvoiceCreate:
		return "create"
	default:
		return "unknown"
	}
}

// Resource returns the QuickBooks API resource path segment.
func (o Operation) Resource() string {
	switch o {
	case JournalEntryCreate:
		return "journalentry"
	case InvoiceCreate:
		return "invoice"
	default:
		return ""
	}
}

// TableName returns the expected input table file name.
func (o Operation) TableName() string {
	switch o {
	case JournalEntryCreate:
		return "journals.csv"
	case InvoiceCreate:
		return "invoices.csv"
	default:
		return ""
	}
}

func (o Operation) String() string {
	return o.Endpoint() + "/" + o.Action()
}

var journalEntryColumns = []string{
	"Id", "Type", "TxnDate", "PrivateNote", "AccountRefName", "AccountRefValue",
	"Amount", "Description", "ClassRefName", "DepartmentRefName",
	"ClassRefValue", "DepartmentRefValue", "EntityName", "DocNumber",
}

var invoiceColumns = []string{
	"Id", "TxnDate", "DocNumber", "PrivateNote", "CustomerRefName",
	"CustomerRefValue", "ItemRefName", "ItemRefValue", "Qty", "Amount",
	"Description", "EntityName",
}

// RequiredColumns returns the columns the input table header must contain
// for this operation.
func (o Operation) RequiredColumns() []string {
	switch o {
	case JournalEntryCreate:
		return journalEntryColumns
	case InvoiceCreate:
		return invoiceColumns
	default:
		return nil
	}
}
