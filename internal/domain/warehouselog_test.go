package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMovementTypeValid(t *testing.T) {
	assert.True(t, MovementReceived.Valid())
	assert.True(t, MovementAdjustment.Valid())
	assert.False(t, MovementType("teleported").Valid())
}

func TestMovementStatusValid(t *testing.T) {
	assert.True(t, MovementStatusPending.Valid())
	assert.False(t, MovementStatus("lost").Valid())
}

func TestRolePermissions(t *testing.T) {
	assert.True(t, RoleCSR.CanMutate())
	assert.False(t, RoleCSR.CanDelete())
	assert.True(t, RoleTL.CanDelete())
	assert.True(t, RoleAdmin.CanDelete())
	assert.False(t, RoleAccounting.CanMutate())
	assert.False(t, RoleAccounting.CanDelete())
}

func TestItemIsLowStock(t *testing.T) {
	item := Item{Stock: 10, MinStockLevel: 10}
	assert.True(t, item.IsLowStock())
	item.Stock = 11
	assert.False(t, item.IsLowStock())
}
