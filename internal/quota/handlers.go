package quota

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	projectdomain "github.com/propfolio/backend/internal/project/domain"
	transactiondomain "github.com/propfolio/backend/internal/transaction/domain"
)

// countFunc computes current usage for a limit handler. Counts are scoped to
// the tenant (and project where applicable) so no user can consume another's
// quota.
type countFunc func(ctx context.Context, userID snowflake.ID, qctx Context) (int64, error)

// limitHandler compares usage+1 against the numeric limit of its permission
// code. No permission row denies with ErrFeatureNotIncluded; a null value is
// unlimited.
type limitHandler struct {
	deps  handlerDeps
	name  string
	code  string
	usage countFunc
}

func (h *limitHandler) Name() string { return h.name }

func (h *limitHandler) Check(ctx context.Context, userID snowflake.ID, qctx Context) error {
	perm, err := h.deps.permission(ctx, userID, h.code)
	if err != nil {
		return err
	}
	if perm == nil {
		return newFeatureDenial(h.name, h.code)
	}

	limit, bounded := perm.IntLimit()
	if !bounded {
		return nil
	}

	used, err := h.usage(ctx, userID, qctx)
	if err != nil {
		return err
	}
	if used+1 > limit {
		return newLimitDenial(h.name, limit, used)
	}
	return nil
}

// flagHandler answers a boolean feature gate; there is no usage to count.
type flagHandler struct {
	deps handlerDeps
	name string
	code string
}

func (h *flagHandler) Name() string { return h.name }

func (h *flagHandler) Check(ctx context.Context, userID snowflake.ID, qctx Context) error {
	_ = qctx
	perm, err := h.deps.permission(ctx, userID, h.code)
	if err != nil {
		return err
	}
	if perm == nil || !perm.Enabled() {
		return newFeatureDenial(h.name, h.code)
	}
	return nil
}

func buildHandlers(deps handlerDeps) []Handler {
	count := func(model any, scope func(ctx context.Context, userID snowflake.ID, qctx Context) map[string]any) countFunc {
		return func(ctx context.Context, userID snowflake.ID, qctx Context) (int64, error) {
			var n int64
			err := deps.db.WithContext(ctx).
				Model(model).
				Where(scope(ctx, userID, qctx)).
				Count(&n).Error
			return n, err
		}
	}

	byUser := func(_ context.Context, userID snowflake.ID, _ Context) map[string]any {
		return map[string]any{"user_id": userID}
	}
	byProject := func(kind projectdomain.AttachmentKind) func(context.Context, snowflake.ID, Context) map[string]any {
		return func(_ context.Context, userID snowflake.ID, qctx Context) map[string]any {
			return map[string]any{"user_id": userID, "project_id": qctx.ProjectID, "kind": kind}
		}
	}

	return []Handler{
		&limitHandler{
			deps: deps, name: HandlerProject, code: plandomain.PermMaxProjects,
			usage: count(&projectdomain.Project{}, byUser),
		},
		&limitHandler{
			deps: deps, name: HandlerProjectPhoto, code: plandomain.PermMaxPhotosPerProject,
			usage: count(&projectdomain.Attachment{}, byProject(projectdomain.AttachmentKindPhoto)),
		},
		&limitHandler{
			deps: deps, name: HandlerProjectVideo, code: plandomain.PermMaxVideosPerProject,
			usage: count(&projectdomain.Attachment{}, byProject(projectdomain.AttachmentKindVideo)),
		},
		&limitHandler{
			deps: deps, name: HandlerAmenity, code: plandomain.PermMaxAmenitiesProject,
			usage: count(&projectdomain.Amenity{}, func(_ context.Context, userID snowflake.ID, qctx Context) map[string]any {
				return map[string]any{"user_id": userID, "project_id": qctx.ProjectID}
			}),
		},
		&limitHandler{
			deps: deps, name: HandlerContact, code: plandomain.PermMaxContacts,
			usage: count(&projectdomain.Contact{}, byUser),
		},
		&limitHandler{
			deps: deps, name: HandlerActiveTask, code: plandomain.PermMaxActiveTasks,
			usage: count(&projectdomain.Task{}, func(_ context.Context, userID snowflake.ID, _ Context) map[string]any {
				return map[string]any{"user_id": userID, "status": projectdomain.TaskStatusOpen}
			}),
		},
		&limitHandler{
			deps: deps, name: HandlerAttachmentTotal, code: plandomain.PermMaxAttachmentsTotal,
			usage: count(&projectdomain.Attachment{}, byUser),
		},
		&limitHandler{
			deps: deps, name: HandlerMonthlyTxn, code: plandomain.PermMaxTransactionsMonth,
			// The window is keyed by the transaction's start date, same as the
			// candidate's qctx.At, so back- or future-dating cannot move the
			// candidate out of the window its siblings are counted in.
			usage: func(ctx context.Context, userID snowflake.ID, qctx Context) (int64, error) {
				at := qctx.At
				if at.IsZero() {
					at = deps.clock.Now()
				}
				monthStart := time.Date(at.Year(), at.Month(), 1, 0, 0, 0, 0, time.UTC)
				monthEnd := monthStart.AddDate(0, 1, 0)

				var n int64
				err := deps.db.WithContext(ctx).
					Model(&transactiondomain.Transaction{}).
					Where("user_id = ? AND start_date >= ? AND start_date < ?", userID, monthStart, monthEnd).
					Count(&n).Error
				return n, err
			},
		},
		&flagHandler{deps: deps, name: HandlerTaxFeature, code: plandomain.PermTaxManagement},
	}
}
