package ingest

import (
	"context"
	"io"
	"net/http"

	"testportal/internal/app/apiresp"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	svc ingestService
}

type ingestService interface {
	Preview(ctx context.Context, r io.Reader) (*Report, error)
	Import(ctx context.Context, r io.Reader) (*Report, error)
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func NewHandler(svc ingestService) *Handler {
	return &Handler{svc: svc}
}

// Preview handles POST /admin/tests/import/preview. It reports what an
// import of the uploaded document would accept and reject, without
// writing anything.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	file, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	report, err := h.svc.Preview(r.Context(), file)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: report})
}

// Import handles POST /admin/tests/import. The response always carries
// the complete accepted/rejected partition; partial failure is the
// expected shape for hand-authored documents.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	file, ok := h.openUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	report, err := h.svc.Import(r.Context(), file)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: report})
}

func (h *Handler) openUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid multipart form"})
		return nil, false
	}
	file, _, err := r.FormFile("htmlFile")
	if err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "htmlFile is required"})
		return nil, false
	}
	return file, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
