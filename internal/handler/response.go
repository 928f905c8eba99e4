package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/hlog"

	"github.com/prn-tf/reelhub/internal/domain"
	"github.com/prn-tf/reelhub/internal/repository"
	"github.com/prn-tf/reelhub/internal/service"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a body carrying only a human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

var (
	errInvalidBody   = errors.New("invalid request body")
	errUnknownAction = errors.New("unknown action")
	errInvalidPaging = errors.New("limit and offset must be non-negative integers")
)

// writeJSON encodes payload with the given status.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to its HTTP status. Internal
// errors are logged with the request id and reported with a static message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err), errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrMediaDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		hlog.FromRequest(r).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		writeError(w, http.StatusInternalServerError, service.ErrInternalError.Error())
	}
}

// decodeJSON reads a JSON body of at most maxBytes into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errInvalidBody
		}
		return errors.Join(errInvalidBody, err)
	}
	return nil
}

// parseListOptions reads ?limit= and ?offset=. Without either parameter
// the result is unbounded unless alwaysPage is set. Limits above max are
// clamped.
func parseListOptions(r *http.Request, def, max int, alwaysPage bool) (repository.ListOptions, error) {
	q := r.URL.Query()
	rawLimit, rawOffset := q.Get("limit"), q.Get("offset")

	if rawLimit == "" && rawOffset == "" && !alwaysPage {
		return repository.ListOptions{}, nil
	}

	opts := repository.ListOptions{Limit: def}
	if rawLimit != "" {
		n, err := strconv.Atoi(rawLimit)
		if err != nil || n < 1 {
			return opts, errInvalidPaging
		}
		opts.Limit = n
	}
	if rawOffset != "" {
		n, err := strconv.Atoi(rawOffset)
		if err != nil || n < 0 {
			return opts, errInvalidPaging
		}
		opts.Offset = n
	}
	if max > 0 && opts.Limit > max {
		opts.Limit = max
	}
	return opts, nil
}
