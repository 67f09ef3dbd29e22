package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/tendant/folio/pkg/folio"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// MessageResponse is the body of a successful write.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Error = err.Error()
	}
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// statusFor maps store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case isBodyTooLarge(err):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, folio.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, folio.ErrSectionNotFound):
		return http.StatusNotFound
	case errors.Is(err, folio.ErrSerialization), errors.Is(err, folio.ErrNotObject):
		return http.StatusUnprocessableEntity
	case errors.Is(err, folio.ErrBlobStoreNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func isBodyTooLarge(err error) bool {
	if err == nil {
		return false
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	// some multipart paths flatten the error to text
	return strings.Contains(err.Error(), "request body too large")
}

// decodeJSON decodes exactly one JSON value from body into v. Anything but
// whitespace after the value is an error.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}

	var extra json.RawMessage
	switch err := dec.Decode(&extra); {
	case errors.Is(err, io.EOF):
		return nil
	case err != nil && isBodyTooLarge(err):
		return err
	default:
		return errors.New("unexpected data after the JSON value")
	}
}
