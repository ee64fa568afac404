package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestAuthContext(t *testing.T) {
	alice := common.HexToAddress("0x0000000000000000000000000000000000000001")
	bob := common.HexToAddress("0x0000000000000000000000000000000000000002")

	auth := NewAuthContext(alice)
	assert.True(t, auth.Authorized(alice))
	assert.False(t, auth.Authorized(bob))

	assert.NoError(t, auth.Require(alice))
	assert.ErrorIs(t, auth.Require(bob), ErrUnauthorized)

	multi := NewAuthContext(alice, bob)
	assert.NoError(t, multi.Require(alice))
	assert.NoError(t, multi.Require(bob))
}

func TestRequestTypeString(t *testing.T) {
	assert.Equal(t, "deposit", RequestDeposit.String())
	assert.Equal(t, "borrow", RequestBorrow.String())
	assert.Equal(t, "repay", RequestRepay.String())
}

func TestPoolStatusString(t *testing.T) {
	assert.Equal(t, "active", PoolActive.String())
	assert.Equal(t, "frozen", PoolFrozen.String())
}
