package v1

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dcm-project/hpc-marketplace/internal/service"
	"go.uber.org/zap"
)

const problemContentType = "application/problem+json"

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			zap.S().Named("handler").Errorw("failed to encode response", "error", err)
		}
	}
}

// WriteProblem writes an RFC 7807 problem document.
func WriteProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", problemContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Error{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

// StatusFor maps a service error kind to its HTTP status and title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, service.ErrInvalidState):
		return http.StatusBadRequest, "Invalid State"
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusBadRequest, "Unavailable"
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest, "Validation Error"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func writeError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status, title := StatusFor(err)
	detail := err.Error()
	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		detail = svcErr.Detail
	}
	if status == http.StatusInternalServerError {
		logger.Errorw("request failed", "error", err)
		detail = "internal error"
	} else {
		logger.Debugw("request rejected", "status", status, "detail", detail)
	}
	WriteProblem(w, status, title, detail)
}

func badRequest(w http.ResponseWriter, format string, args ...any) {
	WriteProblem(w, http.StatusBadRequest, "Validation Error", fmt.Sprintf(format, args...))
}

func decodeBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}
