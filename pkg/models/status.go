package models

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusOpen     Status = "open"
	StatusAssign   Status = "assign"
	StatusAck      Status = "ack"
	StatusClosed   Status = "closed"
	StatusExpired  Status = "expired"
	StatusDeleted  Status = "deleted"
	StatusInactive Status = "inactive"
	StatusUnknown  Status = "unknown"
)

var validStatuses = map[Status]bool{
	StatusOpen:     true,
	StatusAssign:   true,
	StatusAck:      true,
	StatusClosed:   true,
	StatusExpired:  true,
	StatusDeleted:  true,
	StatusInactive: true,
	StatusUnknown:  true,
}

// statusTransitions is the legal transition table. closed and expired can
// only be reopened; everything else about them is terminal until the
// sweeper purges the record.
var statusTransitions = map[Status][]Status{
	StatusOpen:    {StatusAssign, StatusAck, StatusClosed, StatusExpired},
	StatusAssign:  {StatusAck, StatusOpen, StatusClosed, StatusExpired},
	StatusAck:     {StatusOpen, StatusClosed, StatusExpired},
	StatusClosed:  {StatusOpen},
	StatusExpired: {StatusOpen},
}

// IsValidStatus reports whether s is the canonical form of a status.
func IsValidStatus(s string) bool {
	return validStatuses[Status(s)]
}

// ParseStatus folds s to the canonical lowercase form, rejecting values
// outside the fixed vocabulary.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(s))
	if !validStatuses[st] {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

// CanTransition reports whether the state machine permits from -> to.
// Deletion is a soft transition allowed from any live state; the sweeper
// physically removes deleted records later.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if to == StatusDeleted {
		return from != StatusDeleted
	}
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a status ends the alert's active life.
// assign is deliberately treated like open here: some deployments use it
// as a synonym, and the sweeper must still expire assigned alerts.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusClosed, StatusExpired, StatusDeleted:
		return true
	}
	return false
}
