package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "players_room_name_idx"}
	assert.True(t, isUniqueViolation(dup))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert player: %w", dup)))

	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	// A driver error that merely mentions the index in its text is not a
	// unique violation.
	assert.False(t, isUniqueViolation(errors.New(`pq: something about "players_room_name_idx"`)))
	assert.False(t, isUniqueViolation(nil))
}
