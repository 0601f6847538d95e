package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/propfolio/backend/internal/audit/domain"
	"github.com/propfolio/backend/internal/authorization"
	"github.com/propfolio/backend/internal/config"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	projectdomain "github.com/propfolio/backend/internal/project/domain"
	"github.com/propfolio/backend/internal/quota"
	"github.com/propfolio/backend/internal/ratelimit"
	subscriptiondomain "github.com/propfolio/backend/internal/subscription/domain"
	transactiondomain "github.com/propfolio/backend/internal/transaction/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(RunHTTP),
)

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, log *zap.Logger, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	authzSvc        authorization.Service
	quota           *quota.Enforcer
	limiter         *ratelimit.RequestLimiter
	planSvc         plandomain.Service
	subscriptionSvc subscriptiondomain.Service
	projectSvc      projectdomain.Service
	transactionSvc  transactiondomain.Service
	auditSvc        auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	AuthzSvc        authorization.Service
	Quota           *quota.Enforcer
	Limiter         *ratelimit.RequestLimiter
	PlanSvc         plandomain.Service
	SubscriptionSvc subscriptiondomain.Service
	ProjectSvc      projectdomain.Service
	TransactionSvc  transactiondomain.Service
	AuditSvc        auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		authzSvc:        p.AuthzSvc,
		quota:           p.Quota,
		limiter:         p.Limiter,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		projectSvc:      p.ProjectSvc,
		transactionSvc:  p.TransactionSvc,
		auditSvc:        p.AuditSvc,
	}
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())
	api.Use(s.RateLimited())

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id/permissions", s.ListPlanPermissions)
	api.PUT("/plans/:id/permissions",
		s.authorizeAccountAction(authorization.ObjectPlan, authorization.ActionPlanManage),
		s.UpdatePlanPermission)

	// -------- Subscriptions --------
	api.GET("/subscription", s.GetActiveSubscription)
	api.POST("/subscription", s.CreateSubscription)

	// -------- Projects --------
	api.GET("/projects",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectView),
		s.ListProjects)
	api.POST("/projects",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectCreate),
		s.CreateProject)
	api.GET("/projects/:id",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectView),
		s.GetProjectByID)
	api.PATCH("/projects/:id",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.UpdateProject)
	api.DELETE("/projects/:id",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectDelete),
		s.DeleteProject)

	// Project subresources share the project object in the policy.
	api.GET("/projects/:id/amenities",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectView),
		s.ListAmenities)
	api.POST("/projects/:id/amenities",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.AddAmenity)
	api.PATCH("/projects/:id/amenities/:amenityId",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.UpdateAmenity)
	api.DELETE("/projects/:id/amenities/:amenityId",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.RemoveAmenity)

	api.GET("/projects/:id/tasks",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectView),
		s.ListTasks)
	api.POST("/projects/:id/tasks",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.CreateTask)
	api.PATCH("/projects/:id/tasks/:taskId",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.UpdateTask)

	api.GET("/projects/:id/attachments",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectView),
		s.ListAttachments)
	api.POST("/projects/:id/attachments",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.AddAttachment)
	api.DELETE("/projects/:id/attachments/:attachmentId",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.RemoveAttachment)

	// -------- Contacts --------
	api.GET("/contacts",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectView),
		s.ListContacts)
	api.POST("/contacts",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.CreateContact)
	api.DELETE("/contacts/:id",
		s.authorizeAccountAction(authorization.ObjectProject, authorization.ActionProjectUpdate),
		s.DeleteContact)

	// -------- Transactions --------
	api.GET("/transactions",
		s.authorizeAccountAction(authorization.ObjectTransaction, authorization.ActionTransactionView),
		s.ListTransactions)
	api.POST("/transactions",
		s.authorizeAccountAction(authorization.ObjectTransaction, authorization.ActionTransactionCreate),
		s.CreateTransaction)
	api.GET("/transactions/:id",
		s.authorizeAccountAction(authorization.ObjectTransaction, authorization.ActionTransactionView),
		s.GetTransactionByID)
	api.PATCH("/transactions/:id",
		s.authorizeAccountAction(authorization.ObjectTransaction, authorization.ActionTransactionUpdate),
		s.UpdateTransaction)
	api.DELETE("/transactions/:id",
		s.authorizeAccountAction(authorization.ObjectTransaction, authorization.ActionTransactionDelete),
		s.DeleteTransaction)
	api.GET("/transactions/:id/occurrences",
		s.authorizeAccountAction(authorization.ObjectTransaction, authorization.ActionTransactionView),
		s.ListTransactionOccurrences)

	// -------- Taxes --------
	api.GET("/taxes",
		s.authorizeAccountAction(authorization.ObjectTax, authorization.ActionTaxManage),
		s.ListTaxes)
	api.POST("/taxes",
		s.authorizeAccountAction(authorization.ObjectTax, authorization.ActionTaxManage),
		s.CreateTax)
	api.DELETE("/taxes/:id",
		s.authorizeAccountAction(authorization.ObjectTax, authorization.ActionTaxManage),
		s.DeleteTax)

	// -------- Audit logs --------
	api.GET("/audit_logs",
		s.authorizeAccountAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView),
		s.ListAuditLogs)
}
