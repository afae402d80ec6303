package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrAuthRequired       ErrCode = "AUTH_REQUIRED"
	ErrAuthInvalid        ErrCode = "AUTH_INVALID"
	ErrAuthExpired        ErrCode = "AUTH_EXPIRED"
	ErrAdminAccessOnly    ErrCode = "ADMIN_ACCESS_ONLY"
	ErrAdminDisabled      ErrCode = "ADMIN_LOGIN_DISABLED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Question bank ─────────────────────────────────────────────────
	ErrDataSource       ErrCode = "DATA_SOURCE_ERROR"
	ErrInsufficientPool ErrCode = "INSUFFICIENT_POOL"
	ErrUnknownExamType  ErrCode = "UNKNOWN_EXAM_TYPE"

	// ─── Access gate ───────────────────────────────────────────────────
	ErrAccessRequired        ErrCode = "ACCESS_REQUIRED"
	ErrInvalidToken          ErrCode = "INVALID_TOKEN"
	ErrTokenExpired          ErrCode = "TOKEN_EXPIRED"
	ErrTokenAlreadyUsed      ErrCode = "TOKEN_ALREADY_USED"
	ErrRequestNotFound       ErrCode = "REQUEST_NOT_FOUND"
	ErrRequestRejected       ErrCode = "REQUEST_REJECTED"
	ErrRequestNotApproved    ErrCode = "REQUEST_NOT_APPROVED"
	ErrRequestAlreadyUsed    ErrCode = "REQUEST_ALREADY_USED"
	ErrRequestAlreadyDecided ErrCode = "REQUEST_ALREADY_DECIDED"
	ErrApprovalTimeout       ErrCode = "APPROVAL_TIMEOUT"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrSessionNotFound     ErrCode = "SESSION_NOT_FOUND"
	ErrSessionFinished     ErrCode = "SESSION_FINISHED"
	ErrSessionNotFinished  ErrCode = "SESSION_NOT_FINISHED"
	ErrStaleQuestion       ErrCode = "STALE_QUESTION"
	ErrInvalidOption       ErrCode = "INVALID_OPTION"
	ErrAnswerLocked        ErrCode = "ANSWER_LOCKED"
	ErrBackNotAllowed      ErrCode = "BACK_NOT_ALLOWED"
	ErrNavigationBoundary  ErrCode = "NAVIGATION_BOUNDARY"
	ErrCurrentUnanswered   ErrCode = "CURRENT_UNANSWERED"
	ErrNotLastQuestion     ErrCode = "NOT_LAST_QUESTION"
	ErrUnansweredQuestions ErrCode = "UNANSWERED_QUESTIONS"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect password."
	case ErrAuthRequired:
		return "An authentication token is required."
	case ErrAuthInvalid:
		return "The authentication token is invalid."
	case ErrAuthExpired:
		return "The authentication token has expired."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrAdminDisabled:
		return "Admin login is not configured on this server."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Question bank ─────────────────────────────────────────────────
	case ErrDataSource:
		return "The question bank could not be loaded. Please try again later."
	case ErrInsufficientPool:
		return "The question bank does not contain enough questions for this exam."
	case ErrUnknownExamType:
		return "Unknown exam type."

	// ─── Access gate ───────────────────────────────────────────────────
	case ErrAccessRequired:
		return "An access token or approved request is required to start this exam."
	case ErrInvalidToken:
		return "This exam link is invalid."
	case ErrTokenExpired:
		return "This exam link has expired."
	case ErrTokenAlreadyUsed:
		return "This exam link has already been used."
	case ErrRequestNotFound:
		return "Approval request not found."
	case ErrRequestRejected:
		return "Your request to take the exam was rejected."
	case ErrRequestNotApproved:
		return "Your request has not been approved yet."
	case ErrRequestAlreadyUsed:
		return "This approval has already been used to start an exam."
	case ErrRequestAlreadyDecided:
		return "This request has already been decided."
	case ErrApprovalTimeout:
		return "No decision yet. Please keep waiting and check again."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Exam session not found or expired."
	case ErrSessionFinished:
		return "This exam has already finished."
	case ErrSessionNotFinished:
		return "This exam has not finished yet."
	case ErrStaleQuestion:
		return "That answer is not for the current question."
	case ErrInvalidOption:
		return "Invalid answer option."
	case ErrAnswerLocked:
		return "Time is up for this question; it can no longer be answered."
	case ErrBackNotAllowed:
		return "Going back to previous questions is disabled."
	case ErrNavigationBoundary:
		return "There is no question in that direction."
	case ErrCurrentUnanswered:
		return "Please answer this question before moving on."
	case ErrNotLastQuestion:
		return "The exam can only be submitted from the last question."
	case ErrUnansweredQuestions:
		return "Please answer all questions before submitting."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
