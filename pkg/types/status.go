package types

// Status is the two-phase validity state of a transaction or block.
//
// An item is born Unknown. Structural checking moves it to Illegal (terminal)
// or Legal. Contextual validation against a particular chain moves a Legal
// item to Valid or Invalid; those two are revocable, because the same item is
// re-validated once per candidate fork during tree exploration and resets to
// Legal before each run.
type Status int

const (
	// StatusUnknown means no checking has happened yet.
	StatusUnknown Status = iota

	// StatusIllegal means the item failed self-contained structural checks.
	// Illegal is terminal.
	StatusIllegal

	// StatusLegal means structural checks passed; consistency with a chain
	// has not been decided.
	StatusLegal

	// StatusInvalid means the item is legal but conflicts with the chain it
	// was validated against.
	StatusInvalid

	// StatusValid means the item is legal and consistent with every prior
	// block and transaction of the chain it was validated against.
	StatusValid
)

// IsValid reports whether the status is Valid.
func (s Status) IsValid() bool {
	return s == StatusValid
}

// IsLegal reports whether structural checks have passed, regardless of
// contextual outcome (Legal, Valid, or Invalid).
func (s Status) IsLegal() bool {
	return s == StatusLegal || s == StatusValid || s == StatusInvalid
}

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusIllegal:
		return "illegal"
	case StatusLegal:
		return "legal"
	case StatusInvalid:
		return "invalid"
	case StatusValid:
		return "valid"
	default:
		return "unrecognized"
	}
}
