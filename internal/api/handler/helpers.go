package handler

import (
	"encoding/json"
	"errors"
	"hackathon_portal/internal/common"
	"hackathon_portal/internal/domain/model"
	"io"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxJSONBody = 1 << 20

// decodeJSON writes the error response itself and reports whether decoding
// succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		msg := "Invalid request payload"
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			msg = "Request body is too large"
		} else if errors.Is(err, io.EOF) {
			msg = "Request body is required"
		}
		common.RespondWithError(w, http.StatusBadRequest, common.CodeValidation, msg)
		return false
	}
	return true
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// trackParam parses the optional ?track= query parameter.
func trackParam(r *http.Request) (*model.Track, error) {
	raw := r.URL.Query().Get("track")
	if raw == "" {
		return nil, nil
	}
	t, ok := model.ParseTrack(raw)
	if !ok {
		return nil, common.Validationf("track %q is not a valid track", raw)
	}
	return &t, nil
}

func intParam(r *http.Request, name string) int {
	n, _ := strconv.Atoi(r.URL.Query().Get(name))
	return n
}

// idParam returns the {id} path parameter. Ids are UUIDs; anything else
// cannot name a row and is answered with NOT_FOUND before touching the store.
func idParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		common.RespondWithAppError(w, common.ErrNotFound)
		return "", false
	}
	return id, true
}
