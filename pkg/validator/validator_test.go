package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type roomParams struct {
	RoomID string `json:"roomId" binding:"required,notblank"`
	Limit  int    `json:"limit" binding:"omitempty,min=1,max=500"`
}

func TestCustomValidator_ValidateStruct(t *testing.T) {
	v := NewCustomValidator()

	assert.NoError(t, v.ValidateStruct(&roomParams{RoomID: "room-1"}))
	assert.NoError(t, v.ValidateStruct(roomParams{RoomID: "room-1", Limit: 10}))
	assert.Error(t, v.ValidateStruct(&roomParams{}))
	assert.Error(t, v.ValidateStruct(&roomParams{RoomID: "   "}))
	assert.Error(t, v.ValidateStruct(&roomParams{RoomID: "r", Limit: 501}))

	// non-struct values are not validated
	assert.NoError(t, v.ValidateStruct("plain"))
	assert.NotNil(t, v.Engine())
}
