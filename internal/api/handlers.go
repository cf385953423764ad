package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"fjacquet/stmt-forensics/internal/batch"
	"fjacquet/stmt-forensics/internal/container"
	"fjacquet/stmt-forensics/internal/logging"
	"fjacquet/stmt-forensics/internal/models"
	"fjacquet/stmt-forensics/internal/parser"
	"fjacquet/stmt-forensics/internal/store"
	"fjacquet/stmt-forensics/internal/validation"

	"github.com/go-chi/chi/v5"
)

// maxUpload bounds request bodies.
const maxUpload = 32 << 20

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	normalizer parser.StatementParser
	engine     *validation.Engine
	analyzer   *batch.Analyzer
	repo       store.Repository
	rules      container.RulesView
	logger     logging.Logger
}

// ValidateRequest is the body of POST /documents/validate.
type ValidateRequest struct {
	DocType string                 `json:"doc_type"`
	Fields  models.ExtractedFields `json:"fields"`
}

// --- helpers ---

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.WithError(err).Warn("Failed to encode response")
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

// readUpload returns the bytes and name of the multipart "file" field.
func readUpload(r *http.Request) ([]byte, string, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read file: %w", err)
	}
	return data, header.Filename, nil
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- GetRules ---

func (h *Handlers) GetRules(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, h.rules)
}

// --- NormalizeStatement ---

func (h *Handlers) NormalizeStatement(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	data, filename, err := readUpload(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file field is required: "+err.Error())
		return
	}

	stmt := h.normalizer.Normalize(r.Context(), data, filename)
	h.writeJSON(w, http.StatusOK, stmt)
}

// --- ValidateDocument ---

func (h *Handlers) ValidateDocument(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUpload)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	docType := models.ParseDocumentType(req.DocType)
	result := h.engine.RunValidations(r.Context(), docType, req.Fields, h.repo)
	h.writeJSON(w, http.StatusOK, result)
}

// --- AnalyzeDocument ---

// AnalyzeDocument accepts a multipart form with an optional spreadsheet
// ("file"), optional extracted fields as JSON ("fields"), "doc_type",
// "confidence" and "persist".
func (h *Handlers) AnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	doc := batch.Document{DocType: models.ParseDocumentType(r.FormValue("doc_type"))}

	data, filename, err := readUpload(r)
	switch {
	case err == nil:
		doc.Data, doc.Filename = data, filename
	case !errors.Is(err, http.ErrMissingFile):
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if raw := strings.TrimSpace(r.FormValue("fields")); raw != "" {
		fields, err := models.DecodeExtractedFields([]byte(raw))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		doc.Extracted = &fields
	}
	if doc.Data == nil && doc.Extracted == nil {
		h.writeError(w, http.StatusBadRequest, "file or fields is required")
		return
	}

	if raw := r.FormValue("confidence"); raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil || conf < 0 || conf > 1 {
			h.writeError(w, http.StatusBadRequest, "confidence must be a number in [0,1]")
			return
		}
		doc.BaseConfidence = conf
	}

	prepared := h.analyzer.Prepare(r.Context(), doc)
	report := h.analyzer.Evaluate(r.Context(), prepared, store.Excluding(h.repo, prepared.DocumentID))

	if persist, _ := strconv.ParseBool(r.FormValue("persist")); persist {
		if err := h.repo.Save(r.Context(), report.Record()); err != nil {
			h.logger.WithError(err).Error("Failed to save statement",
				logging.Field{Key: logging.FieldDocumentID, Value: report.DocumentID})
			h.writeError(w, http.StatusInternalServerError, "failed to save statement")
			return
		}
	}
	h.writeJSON(w, http.StatusOK, report)
}

// --- ListStatements ---

func (h *Handlers) ListStatements(w http.ResponseWriter, r *http.Request) {
	records, err := h.repo.List(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"statements": records,
		"total":      len(records),
	})
}

// --- GetStatement ---

func (h *Handlers) GetStatement(w http.ResponseWriter, r *http.Request) {
	rec, err := h.repo.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "statement not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}
