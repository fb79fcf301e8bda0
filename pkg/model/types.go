package model

// Category identifies which sweep phase produced a RepairAction.
type Category string

const (
	CategoryKeys      Category = "keys"
	CategoryStructure Category = "structure"
	CategoryStale     Category = "stale"
	CategoryOrphan    Category = "orphan"
	CategoryConfig    Category = "config"
	CategoryIntegrity Category = "integrity"
)

// Severity classifies a RepairAction.
type Severity string

const (
	// SeverityInfo is an observation only; the store was not touched.
	SeverityInfo Severity = "info"
	// SeverityFixed means a mutation was applied.
	SeverityFixed Severity = "fixed"
	// SeverityWarning means a problem was found but not repaired.
	SeverityWarning Severity = "warning"
	// SeverityError means a phase failed unexpectedly.
	SeverityError Severity = "error"
)

// HashValue is a SHA-256 hash stored as hex string.
type HashValue string

// LockState represents the current state of a sweep lease.
type LockState string

const (
	LockStateHeld    LockState = "held"
	LockStateExpired LockState = "expired"
	LockStateFree    LockState = "free"
)
