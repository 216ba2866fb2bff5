package common

import (
	"encoding/json"
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"
)

// ExposeErrorDetails controls whether the underlying error text of a failure is
// sent to clients. It is switched off in production.
var ExposeErrorDetails = true

type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type ErrorResponse struct {
	Success bool       `json:"success"`
	Error   ErrorCode  `json:"error"`
	Message string     `json:"message"`
	ResetAt *time.Time `json:"resetAt,omitempty"`
	Details string     `json:"details,omitempty"`
}

func RespondWithData(w http.ResponseWriter, code int, data interface{}) {
	RespondWithJSON(w, code, SuccessResponse{Success: true, Data: data})
}

func RespondWithMessage(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, SuccessResponse{Success: true, Message: message})
}

func RespondWithError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	RespondWithJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// RespondWithAppError writes the error envelope for err. Errors without a
// client-facing code are logged and reported as INTERNAL_ERROR.
func RespondWithAppError(w http.ResponseWriter, err error) {
	status := HTTPStatusFromError(err)
	resp := ErrorResponse{Error: CodeFromError(err)}

	var rlErr *RateLimitError
	var appErr *AppError
	switch {
	case errors.As(err, &rlErr):
		SetRateLimitHeaders(w, rlErr.Limit, rlErr.Remaining, rlErr.ResetAt, time.Now())
		resetAt := rlErr.ResetAt.UTC()
		resp.ResetAt = &resetAt
		resp.Message = ErrRateLimited.Message
	case errors.As(err, &appErr):
		resp.Message = appErr.Message
		if appErr.Code == CodeInternal {
			log.Printf("ERROR: %v", err)
		}
		if ExposeErrorDetails && appErr.cause != nil {
			resp.Details = appErr.cause.Error()
		}
	case errors.Is(err, ErrDuplicate):
		resp.Message = "Resource already exists"
	default:
		log.Printf("ERROR: unhandled error: %v", err)
		resp.Message = "An unexpected error occurred"
		if ExposeErrorDetails {
			resp.Details = err.Error()
		}
	}
	RespondWithJSON(w, status, resp)
}

// SetRateLimitHeaders writes X-RateLimit-* headers and, once the budget is
// spent, Retry-After in whole seconds.
func SetRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetAt, now time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	if remaining > 0 {
		return
	}
	retry := int(math.Ceil(resetAt.Sub(now).Seconds()))
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"error":"INTERNAL_ERROR","message":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
