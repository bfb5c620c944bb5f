package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/jotter/internal/apperr"
	"github.com/starford/jotter/internal/models"
	"github.com/starford/jotter/internal/noteservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListNotes handles GET /api/notes.
//
// The response carries the collection checksum as ETag; an If-None-Match
// naming it (or "*") yields 304.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	listing, err := h.svc.ListNotes(r.Context())
	if err != nil {
		writeStoreError(w, "list notes", err)
		return
	}
	etag := strconv.Quote(listing.Checksum)
	w.Header().Set("ETag", etag)
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, listing.Notes)
}

// CreateNote handles POST /api/notes.
//
// The body is a JSON object or a urlencoded form; an empty body is an
// empty note. Any client-supplied id is replaced.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody(fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit)))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}

	payload, err := decodePayload(r.Header.Get("Content-Type"), body)
	if err != nil {
		writeStoreError(w, "create note", err)
		return
	}

	note, err := h.svc.CreateNote(r.Context(), payload)
	if err != nil {
		writeStoreError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
// An id without leading digits matches nothing; the request still succeeds.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, ok := parseLeadingInt(raw)
	if ok {
		if err := h.svc.DeleteNote(r.Context(), id); err != nil {
			writeStoreError(w, "delete note", err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Deleted note %s\n", raw)
}

// etagMatches applies the weak comparison of RFC 9110 to an If-None-Match
// header: a comma separated list of entity tags, each optionally W/-prefixed,
// or "*".
func etagMatches(header, etag string) bool {
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		if candidate != "" && strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}

func decodePayload(contentType string, body []byte) (*models.Note, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return models.NewNote(), nil
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		return decodeForm(string(body))
	}
	note, err := models.ParseNote(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
	}
	return note, nil
}

// decodeForm turns a urlencoded body into a note, keeping key order.
// Repeated keys become string arrays.
func decodeForm(body string) (*models.Note, error) {
	var keys []string
	values := make(map[string][]string)
	for _, part := range strings.Split(body, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
		}
		val, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidPayload, err)
		}
		if _, seen := values[key]; !seen {
			keys = append(keys, key)
		}
		values[key] = append(values[key], val)
	}

	note := models.NewNote()
	for _, k := range keys {
		var v any = values[k]
		if len(values[k]) == 1 {
			v = values[k][0]
		}
		if err := note.Set(k, v); err != nil {
			return nil, err
		}
	}
	return note, nil
}

// parseLeadingInt reads an optionally signed integer prefix of s after
// leading whitespace, ignoring anything that follows. A 0x prefix selects
// hex. It reports false when there are no digits or the value overflows.
func parseLeadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	base := 10
	isDigit := func(c byte) bool { return c >= '0' && c <= '9' }
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		base = 16
		s = s[2:]
		isDigit = func(c byte) bool {
			return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
		}
	}

	end := 0
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(s[:end], base, 64)
	if err != nil {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}
