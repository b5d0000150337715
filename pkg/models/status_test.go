package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("ACK")
	assert.NoError(t, err)
	assert.Equal(t, StatusAck, got)

	_, err = ParseStatus("snoozed")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusOpen, StatusAck, true},
		{StatusOpen, StatusAssign, true},
		{StatusOpen, StatusClosed, true},
		{StatusOpen, StatusExpired, true},
		{StatusAssign, StatusAck, true},
		{StatusAssign, StatusOpen, true},
		{StatusAck, StatusOpen, true},
		{StatusAck, StatusClosed, true},
		{StatusClosed, StatusOpen, true},
		{StatusExpired, StatusOpen, true},

		// closed/expired are otherwise terminal until purged
		{StatusClosed, StatusAck, false},
		{StatusClosed, StatusExpired, false},
		{StatusExpired, StatusAck, false},
		{StatusExpired, StatusClosed, false},
		{StatusExpired, StatusExpired, false},

		{StatusAck, StatusAssign, false},
		{StatusOpen, StatusOpen, false},

		// soft delete is allowed from any live state
		{StatusOpen, StatusDeleted, true},
		{StatusAck, StatusDeleted, true},
		{StatusClosed, StatusDeleted, true},
		{StatusDeleted, StatusDeleted, false},
		{StatusDeleted, StatusOpen, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.True(t, StatusDeleted.IsTerminal())
	assert.False(t, StatusOpen.IsTerminal())
	assert.False(t, StatusAssign.IsTerminal())
	assert.False(t, StatusAck.IsTerminal())
}
