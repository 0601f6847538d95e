package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	plandomain "github.com/propfolio/backend/internal/plan/domain"
	subscriptiondomain "github.com/propfolio/backend/internal/subscription/domain"
)

func (s *Server) ListPlans(c *gin.Context) {
	resp, err := s.planSvc.ListPlans(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListPlanPermissions(c *gin.Context) {
	planID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.planSvc.ListPermissions(c.Request.Context(), planID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updatePlanPermissionRequest struct {
	Code  string  `json:"code"`
	Value *string `json:"value"`
}

func (s *Server) UpdatePlanPermission(c *gin.Context) {
	var req updatePlanPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	actorID, ok := s.userIDFromContext(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	planID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.planSvc.UpdatePermission(c.Request.Context(), actorID, plandomain.UpdatePermissionRequest{
		PlanID: planID,
		Code:   strings.TrimSpace(req.Code),
		Value:  req.Value,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetActiveSubscription(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.subscriptionSvc.ActiveSubscription(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createSubscriptionRequest struct {
	PlanCode string `json:"plan_code"`
}

func (s *Server) CreateSubscription(c *gin.Context) {
	var req createSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.subscriptionSvc.Subscribe(c.Request.Context(), accountID, subscriptiondomain.SubscribeRequest{
		PlanCode: strings.TrimSpace(req.PlanCode),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
