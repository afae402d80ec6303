package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lotuseval/placement-backend/internal/model"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
	"github.com/lotuseval/placement-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ExamHandler serves the candidate-facing exam flow.
type ExamHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService: examService,
		log:         log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExamTypes godoc
// GET /api/v1/exam-types
// Returns configured exam types and the access mode.
func (h *ExamHandler) ListExamTypes(c *gin.Context) {
	response.Success(c, http.StatusOK, h.examService.Catalog())
}

// StartSession godoc
// POST /api/v1/sessions
// Authorizes the candidate, selects questions and starts the clock.
func (h *ExamHandler) StartSession(c *gin.Context) {
	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.examService.Start(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, model.NewSessionView(*sess, time.Now()))
}

// GetSession godoc
// GET /api/v1/sessions/:id
// Returns the current question, remaining seconds and progress.
func (h *ExamHandler) GetSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.examService.State(c.Request.Context(), id)
	h.respond(c, sess, err)
}

// Answer godoc
// POST /api/v1/sessions/:id/answer
func (h *ExamHandler) Answer(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	var req model.AnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	sess, err := h.examService.Answer(c.Request.Context(), id, *req.Question, *req.Option)
	h.respond(c, sess, err)
}

// Next godoc
// POST /api/v1/sessions/:id/next
func (h *ExamHandler) Next(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.examService.Next(c.Request.Context(), id)
	h.respond(c, sess, err)
}

// Back godoc
// POST /api/v1/sessions/:id/back
func (h *ExamHandler) Back(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.examService.Back(c.Request.Context(), id)
	h.respond(c, sess, err)
}

// Submit godoc
// POST /api/v1/sessions/:id/submit
// Finishes the exam from the last question and returns the scored view.
func (h *ExamHandler) Submit(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	sess, err := h.examService.Submit(c.Request.Context(), id)
	h.respond(c, sess, err)
}

// GetResult godoc
// GET /api/v1/sessions/:id/result
// Returns the per-question breakdown of a finished session.
func (h *ExamHandler) GetResult(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	res, err := h.examService.Result(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *ExamHandler) respond(c *gin.Context, sess *model.ExamSession, err error) {
	if err != nil {
		fail(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, model.NewSessionView(*sess, time.Now()))
}

// sessionID reads and validates the :id path parameter.
func sessionID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return "", false
	}
	return id, true
}
