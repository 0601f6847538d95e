package authorization

import (
	"context"
	"errors"
)

// Service answers "may this actor perform this action on this object within
// this account". Role grants live in the policy store, memberships come from
// account_members rows.
type Service interface {
	Authorize(ctx context.Context, actor string, accountID string, object string, action string) error
}

var (
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidAccount = errors.New("invalid_account")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
)
