package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/propfolio/backend/internal/quota"
	transactiondomain "github.com/propfolio/backend/internal/transaction/domain"
)

type createTransactionRequest struct {
	ProjectID  string     `json:"project_id"`
	Type       string     `json:"type"`
	Category   string     `json:"category"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Recurrence string     `json:"recurrence"`
}

func (s *Server) CreateTransaction(c *gin.Context) {
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := parseBodyID(req.ProjectID, "project_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.quota.Check(ctx, quota.HandlerMonthlyTxn, accountID, quota.Context{
		ProjectID: projectID,
		At:        req.StartDate,
	}); err != nil {
		AbortWithError(c, err)
		return
	}

	recur := transactiondomain.Recurrence(strings.ToUpper(strings.TrimSpace(req.Recurrence)))
	if recur == "" {
		recur = transactiondomain.RecurrenceOneTime
	}

	txn, occurrences, err := s.transactionSvc.Create(ctx, accountID, transactiondomain.CreateTransactionRequest{
		ProjectID: projectID,
		Type:      transactiondomain.TransactionType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Category:  strings.TrimSpace(req.Category),
		Amount:    req.Amount,
		Currency:  strings.TrimSpace(req.Currency),
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Recur:     recur,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": txn, "occurrences": occurrences})
}

func (s *Server) ListTransactions(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := queryID(c, "project_id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.List(c.Request.Context(), accountID, projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetTransactionByID(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.Get(c.Request.Context(), accountID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTransactionRequest struct {
	ExpectedVersion int64      `json:"expected_version"`
	Category        *string    `json:"category"`
	Amount          *int64     `json:"amount"`
	StartDate       *time.Time `json:"start_date"`
	EndDate         *time.Time `json:"end_date"`
	ClearEndDate    bool       `json:"clear_end_date"`
}

func (s *Server) UpdateTransaction(c *gin.Context) {
	var req updateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.Update(c.Request.Context(), accountID, id, transactiondomain.UpdateTransactionRequest{
		ExpectedVersion: req.ExpectedVersion,
		Category:        req.Category,
		Amount:          req.Amount,
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		ClearEndDate:    req.ClearEndDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTransaction(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.transactionSvc.Delete(c.Request.Context(), accountID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListTransactionOccurrences(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.ListOccurrences(c.Request.Context(), accountID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createTaxRequest struct {
	Name         string `json:"name"`
	RateBasisPts int64  `json:"rate_basis_pts"`
	AppliesTo    string `json:"applies_to"`
}

func (s *Server) CreateTax(c *gin.Context) {
	var req createTaxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	if err := s.quota.Check(ctx, quota.HandlerTaxFeature, accountID, quota.Context{}); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.transactionSvc.CreateTax(ctx, accountID, transactiondomain.CreateTaxRequest{
		Name:         strings.TrimSpace(req.Name),
		RateBasisPts: req.RateBasisPts,
		AppliesTo:    strings.TrimSpace(req.AppliesTo),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTaxes(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.transactionSvc.ListTaxes(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteTax(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.transactionSvc.DeleteTax(c.Request.Context(), accountID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}
