package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
)

type errorResponse struct {
	Success    bool       `json:"success"`
	Code       string     `json:"code"`
	Message    string     `json:"message"`
	UnlockTime *time.Time `json:"unlockTime,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func writeServerError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "internal server error")
}

// decodeJSON reads exactly one JSON value. Unknown fields are ignored so older
// frontends that send extra keys keep working.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
