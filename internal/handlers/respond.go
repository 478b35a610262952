package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/tropicaldog17/folio/internal/errors"
	"github.com/tropicaldog17/folio/internal/repositories"
	"github.com/tropicaldog17/folio/internal/services"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		validation *apperrors.ErrValidation
		missing    *apperrors.ErrMissingFXRate
		stale      *apperrors.ErrStaleFXRate
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &missing), errors.As(err, &stale):
		return http.StatusUnprocessableEntity
	case errors.Is(err, repositories.ErrNotFound), errors.Is(err, services.ErrTaskNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusFor(err))
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, &apperrors.ErrValidation{Field: key, Message: fmt.Sprintf("expected YYYY-MM-DD, got %q", raw)}
	}
	return &d, nil
}

// asOfDate reads the as_of parameter, defaulting to today.
func asOfDate(r *http.Request) (time.Time, error) {
	d, err := queryDate(r, "as_of")
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Now().UTC(), nil
	}
	return *d, nil
}

func queryList(r *http.Request, key string) []string {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &apperrors.ErrValidation{Field: key, Message: "must be a non-negative integer"}
	}
	return n, nil
}
