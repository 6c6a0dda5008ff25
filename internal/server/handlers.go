package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/ppiankov/wordrules/internal/matrix"
	"github.com/ppiankov/wordrules/internal/model"
	"github.com/ppiankov/wordrules/internal/store"
)

// maxRecordBytes bounds a save payload; a full record is well under 100 KiB
const maxRecordBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Files []string `json:"files"`
}

type saveResponse struct {
	Success  bool   `json:"success"`
	ID       int    `json:"id"`
	Location string `json:"location"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func pathID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid word id %q", raw)
	}
	return id, nil
}

// HandleTable handles GET / with the interactive table
func (s *Server) HandleTable(w http.ResponseWriter, r *http.Request) {
	m, err := s.Matrix()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "build matrix failed", "error", err)
		http.Error(w, "failed to build table", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := matrix.WriteHTML(&buf, m, s.catalog); err != nil {
		s.logger.ErrorContext(r.Context(), "render table failed", "error", err)
		http.Error(w, "failed to render table", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// HandleExportCSV handles GET /export.csv. Query parameters hide_true,
// hide_false, hide_category (comma separated) and search select the view.
func (s *Server) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := s.Matrix()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "build matrix failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build table")
		return
	}

	var buf bytes.Buffer
	if err := matrix.WriteCSV(&buf, filter.Apply(m)); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to export table")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="word_rules_export.csv"`)
	_, _ = buf.WriteTo(w)
}

func filterFromQuery(r *http.Request) (matrix.Filter, error) {
	q := r.URL.Query()
	f := matrix.Filter{
		HideAllTrue:  q.Get("hide_true") == "1" || q.Get("hide_true") == "true",
		HideAllFalse: q.Get("hide_false") == "1" || q.Get("hide_false") == "true",
		Search:       q.Get("search"),
	}
	for _, name := range strings.Split(q.Get("hide_category"), ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c, ok := model.ParseCategory(strings.ToLower(name))
		if !ok {
			return f, fmt.Errorf("unknown category %q (expected context, property or wording)", name)
		}
		f.HiddenCategories = append(f.HiddenCategories, c)
	}
	return f, nil
}

// HandleListWords handles GET /api/words with the stored record names
func (s *Server) HandleListWords(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.IDs()
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list records failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list words")
		return
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, fmt.Sprintf("word_%d.json", id))
	}
	writeJSON(w, http.StatusOK, listResponse{Files: names})
}

// HandleGetWord handles GET /api/words/{id}
func (s *Server) HandleGetWord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entry, err := s.store.Load(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, fmt.Sprintf("word %d not found", id))
		return
	case errors.Is(err, store.ErrCorrupt):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		s.logger.ErrorContext(r.Context(), "load record failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load word")
		return
	}

	rec := entry.Record
	if rec.ID == "" {
		rec.ID = entry.RowID()
	}
	writeJSON(w, http.StatusOK, rec)
}

// HandleSaveWord handles POST /api/save-word/{id}. The body is a full
// record; its id must match the path. The stored record replaces any
// previous one under that id.
func (s *Server) HandleSaveWord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	rec, err := store.Decode(body)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected save payload", "request_id", requestID, "id", id, "error", err)
		writeError(w, http.StatusBadRequest, "Missing required fields: "+err.Error())
		return
	}
	if rec.ID == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields: id")
		return
	}
	if rec.ID != strconv.Itoa(id) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("ID mismatch: path %d, body %s", id, rec.ID))
		return
	}

	location, err := s.store.Save(rec.Word, rec.Questions, id)
	if err != nil {
		s.logger.ErrorContext(ctx, "save record failed", "request_id", requestID, "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save word")
		return
	}
	s.metrics.IncrementSaved("api")
	s.MarkStale()

	s.logger.InfoContext(ctx, "word saved",
		"request_id", requestID,
		"id", id,
		"word", rec.Word,
	)
	writeJSON(w, http.StatusOK, saveResponse{Success: true, ID: id, Location: location})
}
