package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectProject     = "project"
	ObjectTransaction = "transaction"
	ObjectTax         = "tax"
	ObjectPlan        = "plan"
	ObjectAuditLog    = "audit_log"
)

const (
	ActionProjectView   = "project.view"
	ActionProjectCreate = "project.create"
	ActionProjectUpdate = "project.update"
	ActionProjectDelete = "project.delete"

	ActionTransactionView   = "transaction.view"
	ActionTransactionCreate = "transaction.create"
	ActionTransactionUpdate = "transaction.update"
	ActionTransactionDelete = "transaction.delete"

	ActionTaxManage = "tax.manage"

	ActionPlanManage = "plan.manage"

	ActionAuditLogView = "audit_log.view"
)

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(db *gorm.DB, log *zap.Logger, enforcer *casbin.SyncedEnforcer) Service {
	return &ServiceImpl{
		db:       db,
		log:      log.Named("authorization.service"),
		enforcer: enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, accountID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return ErrInvalidAccount
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, accountID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("account:%s", accountID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("account_id", accountID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, accountID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedAccountID, err := snowflake.ParseString(accountID)
		if err != nil || parsedAccountID == 0 {
			return "", "", ErrInvalidAccount
		}
		// The account owner needs no membership row.
		if userID == parsedAccountID {
			return actor, "role:owner", nil
		}
		role, err := s.roleForMember(ctx, parsedAccountID, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForMember(ctx context.Context, accountID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM account_members
		 WHERE account_id = ? AND user_id = ?
		 LIMIT 1`,
		accountID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Viewer permissions (read-only)
		{"role:viewer", ObjectProject, ActionProjectView},
		{"role:viewer", ObjectTransaction, ActionTransactionView},
		{"role:viewer", ObjectAuditLog, ActionAuditLogView},

		// Manager permissions
		{"role:manager", ObjectProject, ActionProjectView},
		{"role:manager", ObjectProject, ActionProjectCreate},
		{"role:manager", ObjectProject, ActionProjectUpdate},
		{"role:manager", ObjectTransaction, ActionTransactionView},
		{"role:manager", ObjectTransaction, ActionTransactionCreate},
		{"role:manager", ObjectTransaction, ActionTransactionUpdate},
		{"role:manager", ObjectAuditLog, ActionAuditLogView},

		// Owner permissions
		{"role:owner", ObjectProject, ActionProjectView},
		{"role:owner", ObjectProject, ActionProjectCreate},
		{"role:owner", ObjectProject, ActionProjectUpdate},
		{"role:owner", ObjectProject, ActionProjectDelete},
		{"role:owner", ObjectTransaction, ActionTransactionView},
		{"role:owner", ObjectTransaction, ActionTransactionCreate},
		{"role:owner", ObjectTransaction, ActionTransactionUpdate},
		{"role:owner", ObjectTransaction, ActionTransactionDelete},
		{"role:owner", ObjectTax, ActionTaxManage},
		{"role:owner", ObjectAuditLog, ActionAuditLogView},

		// System permissions (automated processes and plan administration)
		{"role:system", ObjectPlan, ActionPlanManage},
		{"role:system", ObjectProject, ActionProjectView},
		{"role:system", ObjectTransaction, ActionTransactionView},
		{"role:system", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
