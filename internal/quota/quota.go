// Package quota gates resource creation on the caller's subscription plan.
// One handler per guarded resource kind answers whether one more unit is
// allowed: it resolves the caller's active plan, the plan's limit through the
// permission cache, and the current usage with a tenant-scoped count, then
// compares usage+1 against the limit. Boolean feature codes short-circuit to
// the flag.
//
// The count and the insert it guards are separate statements: two concurrent
// requests can both pass and transiently exceed the limit by the number of
// racers. That is the accepted behavior of a best-effort limit, not a bug to
// fix here; a strict reservation would need a conditional insert.
package quota

import (
	"errors"
	"fmt"
)

// Handler names, used by route guards to select the checks for an endpoint.
const (
	HandlerProject         = "project"
	HandlerProjectPhoto    = "project_photo"
	HandlerProjectVideo    = "project_video"
	HandlerAmenity         = "amenity"
	HandlerContact         = "contact"
	HandlerActiveTask      = "active_task"
	HandlerMonthlyTxn      = "monthly_transaction"
	HandlerAttachmentTotal = "attachment_total"
	HandlerTaxFeature      = "tax"
)

var (
	// ErrQuotaExceeded: the numeric limit is reached. Terminal for the
	// request; the user can upgrade the plan.
	ErrQuotaExceeded = errors.New("quota_exceeded")
	// ErrFeatureNotIncluded: the plan carries no permission for the feature.
	ErrFeatureNotIncluded = errors.New("feature_not_included")
	// ErrUnknownHandler: the call site asked for a handler that is not
	// registered. Always a programming error.
	ErrUnknownHandler = errors.New("unknown_quota_handler")
)

// Denial is the denied outcome of a check. It unwraps to either
// ErrQuotaExceeded or ErrFeatureNotIncluded so callers can branch on kind
// while surfacing a specific human-readable reason.
type Denial struct {
	Handler string
	Kind    error
	Limit   int64
	Usage   int64
	Reason  string
}

func (d *Denial) Error() string { return d.Reason }

func (d *Denial) Unwrap() error { return d.Kind }

func newLimitDenial(handler string, limit, usage int64) *Denial {
	return &Denial{
		Handler: handler,
		Kind:    ErrQuotaExceeded,
		Limit:   limit,
		Usage:   usage,
		Reason:  fmt.Sprintf("plan limit of %d for %s reached (current usage %d)", limit, handler, usage),
	}
}

func newFeatureDenial(handler, code string) *Denial {
	return &Denial{
		Handler: handler,
		Kind:    ErrFeatureNotIncluded,
		Reason:  fmt.Sprintf("current plan does not include %s", code),
	}
}
