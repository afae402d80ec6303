package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/middleware"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
	"github.com/lotuseval/placement-backend/internal/storage"
	"github.com/lotuseval/placement-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AdminHandler serves token issuing, approvals, results and bank maintenance.
type AdminHandler struct {
	gate          *service.AccessGate
	examService   *service.ExamService
	resultService *service.ResultService
	log           zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(gate *service.AccessGate, examService *service.ExamService, resultService *service.ResultService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		gate:          gate,
		examService:   examService,
		resultService: resultService,
		log:           log.With().Str("component", "admin_handler").Logger(),
	}
}

// ─── Tokens ─────────────────────────────────────────────────────────

// IssueToken godoc
// POST /api/v1/admin/tokens
// Issues a single-use exam link.
func (h *AdminHandler) IssueToken(c *gin.Context) {
	var req model.IssueTokenRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	// Reject exam types with no rules before a link goes out.
	rules, err := h.examService.ExamRules(req.ExamType)
	if err != nil {
		fail(c, h.log, err)
		return
	}

	ttl := time.Duration(req.TTLHours) * time.Hour
	issued, err := h.gate.IssueToken(c.Request.Context(), rules.ExamType, middleware.Actor(c), ttl)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, issued)
}

// TokenStats godoc
// GET /api/v1/admin/tokens/stats
func (h *AdminHandler) TokenStats(c *gin.Context) {
	stats, err := h.gate.TokenStats(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, stats)
}

// ─── Approvals ──────────────────────────────────────────────────────

// ListApprovals godoc
// GET /api/v1/admin/approvals?status=pending&limit=100
func (h *AdminHandler) ListApprovals(c *gin.Context) {
	status := model.ApprovalStatus(c.Query("status"))
	switch status {
	case "", model.ApprovalPending, model.ApprovalApproved, model.ApprovalRejected:
	default:
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"status": "status must be one of pending, approved, rejected",
		})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	list, err := h.gate.ListRequests(c.Request.Context(), status, limit)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, list)
}

// ApproveRequest godoc
// POST /api/v1/admin/approvals/:id/approve
func (h *AdminHandler) ApproveRequest(c *gin.Context) {
	h.decide(c, true)
}

// RejectRequest godoc
// POST /api/v1/admin/approvals/:id/reject
func (h *AdminHandler) RejectRequest(c *gin.Context) {
	h.decide(c, false)
}

func (h *AdminHandler) decide(c *gin.Context, approve bool) {
	id, ok := approvalID(c)
	if !ok {
		return
	}
	a, err := h.gate.Decide(c.Request.Context(), id, approve, middleware.Actor(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, a)
}

// ─── Results ────────────────────────────────────────────────────────

// ListResults godoc
// GET /api/v1/admin/results?exam_type=&page=1&per_page=20
func (h *AdminHandler) ListResults(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	filter := model.ResultFilter{ExamType: c.Query("exam_type"), Page: page, PerPage: perPage}

	results, total, err := h.resultService.List(c.Request.Context(), filter)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, results, response.NewPagination(page, perPage, total))
}

// ResultSummary godoc
// GET /api/v1/admin/results/summary
func (h *AdminHandler) ResultSummary(c *gin.Context) {
	summary, err := h.resultService.Summary(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, summary)
}

// GetResult godoc
// GET /api/v1/admin/results/:id
func (h *AdminHandler) GetResult(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	res, err := h.resultService.Get(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

// DownloadWorkbook godoc
// GET /api/v1/admin/results/:id/workbook
// Streams the result as an .xlsx with Summary and Details sheets.
func (h *AdminHandler) DownloadWorkbook(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	raw, name, err := h.resultService.Workbook(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, storage.XLSXContentType, raw)
}

// ─── Banks ──────────────────────────────────────────────────────────

// RefreshBank godoc
// POST /api/v1/admin/banks/:exam_type/refresh
// Drops the cached question bank so the next start refetches it.
func (h *AdminHandler) RefreshBank(c *gin.Context) {
	examType := c.Param("exam_type")
	if err := h.examService.RefreshBank(c.Request.Context(), examType); err != nil {
		fail(c, h.log, err)
		return
	}
	h.log.Info().Str("exam_type", examType).Str("by", middleware.Actor(c)).Msg("Question bank cache invalidated")
	response.Success(c, http.StatusOK, gin.H{"exam_type": examType, "refreshed": true})
}
