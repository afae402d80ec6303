package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lotuseval/placement-backend/internal/bank"
	"github.com/lotuseval/placement-backend/internal/exam"
	"github.com/lotuseval/placement-backend/internal/response"
	"github.com/lotuseval/placement-backend/internal/service"
	"github.com/rs/zerolog"
)

// failure is the HTTP rendering of a domain error.
type failure struct {
	status int
	code   response.ErrCode
	detail string
}

var sentinelFailures = []struct {
	err    error
	status int
	code   response.ErrCode
}{
	// Access gate
	{service.ErrAccessRequired, http.StatusUnauthorized, response.ErrAccessRequired},
	{service.ErrInvalidToken, http.StatusNotFound, response.ErrInvalidToken},
	{service.ErrTokenExpired, http.StatusGone, response.ErrTokenExpired},
	{service.ErrTokenAlreadyUsed, http.StatusConflict, response.ErrTokenAlreadyUsed},
	{service.ErrRequestNotFound, http.StatusNotFound, response.ErrRequestNotFound},
	{service.ErrRequestRejected, http.StatusForbidden, response.ErrRequestRejected},
	{service.ErrRequestNotApproved, http.StatusForbidden, response.ErrRequestNotApproved},
	{service.ErrRequestAlreadyUsed, http.StatusConflict, response.ErrRequestAlreadyUsed},
	{service.ErrRequestAlreadyDecided, http.StatusConflict, response.ErrRequestAlreadyDecided},
	{service.ErrApprovalTimeout, http.StatusRequestTimeout, response.ErrApprovalTimeout},

	// Sessions
	{service.ErrSessionNotFound, http.StatusNotFound, response.ErrSessionNotFound},
	{service.ErrSessionNotFinished, http.StatusConflict, response.ErrSessionNotFinished},
	{exam.ErrSessionFinished, http.StatusConflict, response.ErrSessionFinished},
	{exam.ErrStaleQuestion, http.StatusConflict, response.ErrStaleQuestion},
	{exam.ErrInvalidOption, http.StatusBadRequest, response.ErrInvalidOption},
	{exam.ErrAnswerLocked, http.StatusConflict, response.ErrAnswerLocked},
	{exam.ErrBackNotAllowed, http.StatusForbidden, response.ErrBackNotAllowed},
	{exam.ErrAtFirstQuestion, http.StatusConflict, response.ErrNavigationBoundary},
	{exam.ErrAtLastQuestion, http.StatusConflict, response.ErrNavigationBoundary},
	{exam.ErrCurrentUnanswered, http.StatusConflict, response.ErrCurrentUnanswered},
	{exam.ErrNotLastQuestion, http.StatusConflict, response.ErrNotLastQuestion},
	{exam.ErrUnansweredQuestions, http.StatusConflict, response.ErrUnansweredQuestions},

	// Admin
	{service.ErrResultNotFound, http.StatusNotFound, response.ErrNotFound},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, response.ErrInvalidCredentials},
	{service.ErrAdminNotConfigured, http.StatusServiceUnavailable, response.ErrAdminDisabled},
}

// classify maps a service error to its response. Unknown errors are internal.
func classify(err error) failure {
	for _, s := range sentinelFailures {
		if errors.Is(err, s.err) {
			return failure{status: s.status, code: s.code}
		}
	}

	var unknown *exam.UnknownExamTypeError
	if errors.As(err, &unknown) {
		return failure{status: http.StatusBadRequest, code: response.ErrUnknownExamType, detail: unknown.ExamType}
	}
	var pool *exam.InsufficientPoolError
	if errors.As(err, &pool) {
		return failure{status: http.StatusServiceUnavailable, code: response.ErrInsufficientPool, detail: pool.Error()}
	}
	var source *bank.DataSourceError
	if errors.As(err, &source) {
		return failure{status: http.StatusBadGateway, code: response.ErrDataSource}
	}
	return failure{status: http.StatusInternalServerError, code: response.ErrInternal}
}

// fail writes the response for err, logging it when it is internal.
func fail(c *gin.Context, log zerolog.Logger, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	if f.detail != "" {
		response.FailWithDetail(c, f.status, f.code, f.detail)
		return
	}
	response.Fail(c, f.status, f.code)
}
