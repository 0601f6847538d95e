package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	projectdomain "github.com/propfolio/backend/internal/project/domain"
	"github.com/propfolio/backend/internal/quota"
)

type createProjectRequest struct {
	Name          string `json:"name"`
	Address       string `json:"address"`
	City          string `json:"city"`
	Country       string `json:"country"`
	PurchasePrice int64  `json:"purchase_price"`
	Currency      string `json:"currency"`
	Notes         string `json:"notes"`
}

func (s *Server) CreateProject(c *gin.Context) {
	var req createProjectRequest
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
	if err := s.quota.Check(ctx, quota.HandlerProject, accountID, quota.Context{}); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.CreateProject(ctx, accountID, projectdomain.CreateProjectRequest{
		Name:          strings.TrimSpace(req.Name),
		Address:       strings.TrimSpace(req.Address),
		City:          strings.TrimSpace(req.City),
		Country:       strings.TrimSpace(req.Country),
		PurchasePrice: req.PurchasePrice,
		Currency:      strings.TrimSpace(req.Currency),
		Notes:         req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListProjects(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.projectSvc.ListProjects(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetProjectByID(c *gin.Context) {
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

	resp, err := s.projectSvc.GetProject(c.Request.Context(), accountID, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateProjectRequest struct {
	ExpectedVersion int64   `json:"expected_version"`
	Name            *string `json:"name"`
	Address         *string `json:"address"`
	City            *string `json:"city"`
	Country         *string `json:"country"`
	PurchasePrice   *int64  `json:"purchase_price"`
	Currency        *string `json:"currency"`
	Notes           *string `json:"notes"`
}

func (s *Server) UpdateProject(c *gin.Context) {
	var req updateProjectRequest
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

	resp, err := s.projectSvc.UpdateProject(c.Request.Context(), accountID, id, projectdomain.UpdateProjectRequest{
		ExpectedVersion: req.ExpectedVersion,
		Name:            req.Name,
		Address:         req.Address,
		City:            req.City,
		Country:         req.Country,
		PurchasePrice:   req.PurchasePrice,
		Currency:        req.Currency,
		Notes:           req.Notes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteProject(c *gin.Context) {
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

	if err := s.projectSvc.DeleteProject(c.Request.Context(), accountID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

type createAmenityRequest struct {
	Name    string `json:"name"`
	Details string `json:"details"`
}

func (s *Server) AddAmenity(c *gin.Context) {
	var req createAmenityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.quota.Check(ctx, quota.HandlerAmenity, accountID, quota.Context{ProjectID: projectID}); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.AddAmenity(ctx, accountID, projectdomain.CreateAmenityRequest{
		ProjectID: projectID,
		Name:      strings.TrimSpace(req.Name),
		Details:   req.Details,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateAmenityRequest struct {
	ExpectedVersion int64   `json:"expected_version"`
	Name            *string `json:"name"`
	Details         *string `json:"details"`
}

func (s *Server) UpdateAmenity(c *gin.Context) {
	var req updateAmenityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "amenityId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.UpdateAmenity(c.Request.Context(), accountID, id, projectdomain.UpdateAmenityRequest{
		ExpectedVersion: req.ExpectedVersion,
		Name:            req.Name,
		Details:         req.Details,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveAmenity(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "amenityId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.projectSvc.RemoveAmenity(c.Request.Context(), accountID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListAmenities(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.ListAmenities(c.Request.Context(), accountID, projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

func (s *Server) CreateContact(c *gin.Context) {
	var req createContactRequest
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
	if err := s.quota.Check(ctx, quota.HandlerContact, accountID, quota.Context{}); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.CreateContact(ctx, accountID, projectdomain.CreateContactRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
		Role:  strings.TrimSpace(req.Role),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListContacts(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	resp, err := s.projectSvc.ListContacts(c.Request.Context(), accountID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteContact(c *gin.Context) {
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

	if err := s.projectSvc.DeleteContact(c.Request.Context(), accountID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

type createTaskRequest struct {
	Title string     `json:"title"`
	DueAt *time.Time `json:"due_at"`
}

func (s *Server) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := s.quota.Check(ctx, quota.HandlerActiveTask, accountID, quota.Context{ProjectID: projectID}); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.CreateTask(ctx, accountID, projectdomain.CreateTaskRequest{
		ProjectID: projectID,
		Title:     strings.TrimSpace(req.Title),
		DueAt:     req.DueAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type updateTaskRequest struct {
	ExpectedVersion int64      `json:"expected_version"`
	Title           *string    `json:"title"`
	Status          *string    `json:"status"`
	DueAt           *time.Time `json:"due_at"`
}

func (s *Server) UpdateTask(c *gin.Context) {
	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "taskId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.UpdateTask(c.Request.Context(), accountID, id, projectdomain.UpdateTaskRequest{
		ExpectedVersion: req.ExpectedVersion,
		Title:           req.Title,
		Status:          req.Status,
		DueAt:           req.DueAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListTasks(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.ListTasks(c.Request.Context(), accountID, projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type createAttachmentRequest struct {
	Kind       string `json:"kind"`
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
	SizeBytes  int64  `json:"size_bytes"`
}

func (s *Server) AddAttachment(c *gin.Context) {
	var req createAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	kind := projectdomain.AttachmentKind(strings.ToUpper(strings.TrimSpace(req.Kind)))

	ctx := c.Request.Context()
	checks := []string{quota.HandlerAttachmentTotal}
	switch kind {
	case projectdomain.AttachmentKindPhoto:
		checks = append(checks, quota.HandlerProjectPhoto)
	case projectdomain.AttachmentKindVideo:
		checks = append(checks, quota.HandlerProjectVideo)
	}
	if err := s.quota.CheckAll(ctx, checks, accountID, quota.Context{ProjectID: projectID}); err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.AddAttachment(ctx, accountID, projectdomain.CreateAttachmentRequest{
		ProjectID:  projectID,
		Kind:       kind,
		FileName:   strings.TrimSpace(req.FileName),
		StorageKey: strings.TrimSpace(req.StorageKey),
		SizeBytes:  req.SizeBytes,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) RemoveAttachment(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	id, err := pathID(c, "attachmentId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.projectSvc.RemoveAttachment(c.Request.Context(), accountID, id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) ListAttachments(c *gin.Context) {
	accountID, ok := s.accountID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	projectID, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.projectSvc.ListAttachments(c.Request.Context(), accountID, projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
