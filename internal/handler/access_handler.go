package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
	"github.com/lotuseval/placement-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AccessHandler serves the public side of the access gate.
type AccessHandler struct {
	gate        *service.AccessGate
	examService *service.ExamService
	log         zerolog.Logger
}

// NewAccessHandler creates a new AccessHandler.
func NewAccessHandler(gate *service.AccessGate, examService *service.ExamService, log zerolog.Logger) *AccessHandler {
	return &AccessHandler{
		gate:        gate,
		examService: examService,
		log:         log.With().Str("component", "access_handler").Logger(),
	}
}

// PeekToken godoc
// GET /api/v1/tokens/:token
// Reports whether an exam link is still usable. Does not consume it.
func (h *AccessHandler) PeekToken(c *gin.Context) {
	id, err := uuid.Parse(c.Param("token"))
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrInvalidToken)
		return
	}

	status, err := h.gate.PeekToken(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, status)
}

// CreateApproval godoc
// POST /api/v1/approvals
// Files a pending approval request for the candidate. Unknown exam types are
// rejected before anything is stored.
func (h *AccessHandler) CreateApproval(c *gin.Context) {
	var req model.CreateApprovalRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	a, err := h.examService.RequestApproval(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, a)
}

// GetApproval godoc
// GET /api/v1/approvals/:id
func (h *AccessHandler) GetApproval(c *gin.Context) {
	id, ok := approvalID(c)
	if !ok {
		return
	}
	a, err := h.gate.GetRequest(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, a)
}

// AwaitApproval godoc
// GET /api/v1/approvals/:id/wait
// Blocks until the request is decided or the maximum wait elapses.
func (h *AccessHandler) AwaitApproval(c *gin.Context) {
	id, ok := approvalID(c)
	if !ok {
		return
	}
	a, err := h.gate.Await(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, a)
}

func approvalID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
