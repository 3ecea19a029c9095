package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to v4 if v7 fails
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	RunID       ID
	CandidateID ID
	ScheduleID  ID
	BatchID     ID
)

// Typed constructors
func NewRunID() RunID             { return RunID(NewID()) }
func NewCandidateID() CandidateID { return CandidateID(NewID()) }
func NewScheduleID() ScheduleID   { return ScheduleID(NewID()) }
func NewBatchID() BatchID         { return BatchID(NewID()) }

// String conversions for domain IDs
func (id RunID) String() string       { return ID(id).String() }
func (id CandidateID) String() string { return ID(id).String() }
func (id ScheduleID) String() string  { return ID(id).String() }
func (id BatchID) String() string     { return ID(id).String() }

// ParseRunID parses a string into RunID
func ParseRunID(s string) (RunID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("run ID cannot be empty")
	}
	return RunID(s), nil
}

// ParseCandidateID parses a string into CandidateID
func ParseCandidateID(s string) (CandidateID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("candidate ID cannot be empty")
	}
	return CandidateID(s), nil
}

// ParseScheduleID parses a string into ScheduleID
func ParseScheduleID(s string) (ScheduleID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("schedule ID cannot be empty")
	}
	return ScheduleID(s), nil
}
