package types

import "github.com/ethereum/go-ethereum/common"

// AuthContext carries the set of identities whose authorization has been
// proven by the surrounding execution environment for the current call.
// Operations check membership; they never authenticate themselves.
type AuthContext struct {
	authorized map[common.Address]struct{}
}

// NewAuthContext builds an auth context for the given proven identities.
func NewAuthContext(addrs ...common.Address) *AuthContext {
	ctx := &AuthContext{authorized: make(map[common.Address]struct{}, len(addrs))}
	for _, addr := range addrs {
		ctx.authorized[addr] = struct{}{}
	}
	return ctx
}

// Authorized reports whether addr is proven in this context.
func (a *AuthContext) Authorized(addr common.Address) bool {
	if a == nil {
		return false
	}
	_, ok := a.authorized[addr]
	return ok
}

// Require returns ErrUnauthorized unless addr is proven in this context.
func (a *AuthContext) Require(addr common.Address) error {
	if !a.Authorized(addr) {
		return ErrUnauthorized
	}
	return nil
}
