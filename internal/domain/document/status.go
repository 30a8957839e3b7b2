package document

// Type is the kind of billing document
type Type string

const (
	TypeInvoice           Type = "invoice"
	TypeQuote             Type = "quote"
	TypeRecurringTemplate Type = "recurring_template"
)

// IsValid returns true if the type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeInvoice, TypeQuote, TypeRecurringTemplate:
		return true
	}
	return false
}

// String returns the string representation
func (t Type) String() string {
	return string(t)
}

// NumberPrefix is the prefix of human-readable document numbers
func (t Type) NumberPrefix() string {
	switch t {
	case TypeQuote:
		return "QUO"
	case TypeRecurringTemplate:
		return "REC"
	default:
		return "INV"
	}
}

// InitialStatus returns the status a new document of this type starts in
func (t Type) InitialStatus() Status {
	if t == TypeRecurringTemplate {
		return StatusActive
	}
	return StatusDraft
}

// Status is the lifecycle status of a document. The valid set depends on the type.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusViewed        Status = "viewed"
	StatusPaid          Status = "paid"
	StatusPartiallyPaid Status = "partially_paid"
	StatusOverdue       Status = "overdue"
	StatusAccepted      Status = "accepted"
	StatusDeclined      Status = "declined"
	StatusActive        Status = "active"
	StatusPaused        Status = "paused"
)

// String returns the string representation
func (s Status) String() string {
	return string(s)
}

// IsValidFor returns true if the status belongs to the given document type
func (s Status) IsValidFor(t Type) bool {
	switch t {
	case TypeInvoice:
		switch s {
		case StatusDraft, StatusSent, StatusViewed, StatusPaid, StatusPartiallyPaid, StatusOverdue:
			return true
		}
	case TypeQuote:
		switch s {
		case StatusDraft, StatusSent, StatusAccepted, StatusDeclined:
			return true
		}
	case TypeRecurringTemplate:
		return s == StatusActive || s == StatusPaused
	}
	return false
}

// CanTransition checks the status table of the given document type.
// The overdue rule also depends on the due date, see Document.UpdateStatus.
func CanTransition(t Type, from, to Status) bool {
	switch t {
	case TypeInvoice:
		return invoiceCanTransition(from, to)
	case TypeQuote:
		return quoteCanTransition(from, to)
	case TypeRecurringTemplate:
		return (from == StatusActive && to == StatusPaused) || (from == StatusPaused && to == StatusActive)
	}
	return false
}

func invoiceCanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSent || to == StatusPartiallyPaid
	case StatusSent:
		return to == StatusViewed || to == StatusPaid || to == StatusOverdue
	case StatusViewed:
		return to == StatusPaid || to == StatusOverdue
	case StatusPartiallyPaid:
		return to == StatusPaid
	case StatusOverdue:
		return to == StatusPaid
	case StatusPaid:
		return false
	}
	return false
}

func quoteCanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSent
	case StatusSent:
		return to == StatusAccepted || to == StatusDeclined
	case StatusAccepted, StatusDeclined:
		return false
	}
	return false
}

// RecurringFrequency is how often a recurring template issues an invoice.
// Issuing itself happens outside this service.
type RecurringFrequency string

const (
	FrequencyWeekly    RecurringFrequency = "weekly"
	FrequencyMonthly   RecurringFrequency = "monthly"
	FrequencyQuarterly RecurringFrequency = "quarterly"
	FrequencyYearly    RecurringFrequency = "yearly"
)

// IsValid returns true if the frequency is known
func (f RecurringFrequency) IsValid() bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return true
	}
	return false
}
