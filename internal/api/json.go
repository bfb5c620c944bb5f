package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/jotter/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeStoreError maps a store failure to a status code and error body.
func writeStoreError(w http.ResponseWriter, op string, err error) {
	switch kind, ok := apperr.KindOf(err); {
	case errors.Is(err, apperr.ErrInvalidPayload):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case ok && kind == apperr.KindExhausted:
		slog.Error(op+" failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInsufficientStorage, errResponse{Error: "note id space exhausted", Kind: string(kind)})
	case ok:
		slog.Error(op+" failed", slog.String("kind", string(kind)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: "storage " + string(kind) + " error", Kind: string(kind)})
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
