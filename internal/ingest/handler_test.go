package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"testportal/internal/testpool"
)

type mockIngestService struct {
	previewFn func(ctx context.Context, r io.Reader) (*Report, error)
	importFn  func(ctx context.Context, r io.Reader) (*Report, error)
}

func (m *mockIngestService) Preview(ctx context.Context, r io.Reader) (*Report, error) {
	if m.previewFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.previewFn(ctx, r)
}

func (m *mockIngestService) Import(ctx context.Context, r io.Reader) (*Report, error) {
	if m.importFn == nil {
		return nil, errors.New("not implemented")
	}
	return m.importFn(ctx, r)
}

func uploadRequest(t *testing.T, field, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "tests.html")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tests/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandlerPreviewReturnsReport(t *testing.T) {
	svc := &mockIngestService{
		previewFn: func(ctx context.Context, r io.Reader) (*Report, error) {
			return &Report{
				Accepted:       []testpool.Definition{{Code: "MAT2024-001X", QuestionCount: 5}},
				Rejected:       []RowRejection{{RowIndex: 2, Reason: ReasonInvalidRow}},
				TotalQuestions: 5,
			}, nil
		},
	}
	h := NewHandler(svc)

	w := httptest.NewRecorder()
	h.Preview(w, uploadRequest(t, "htmlFile", "<table></table>"))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var envelope struct {
		OK   bool   `json:"ok"`
		Data Report `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.OK {
		t.Fatalf("expected ok response")
	}
	if len(envelope.Data.Accepted) != 1 || len(envelope.Data.Rejected) != 1 {
		t.Fatalf("unexpected report %+v", envelope.Data)
	}
}

func TestHandlerImportRequiresFile(t *testing.T) {
	h := NewHandler(&mockIngestService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tests/import", nil)
	w := httptest.NewRecorder()
	h.Import(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlerImportRejectsWrongFieldName(t *testing.T) {
	h := NewHandler(&mockIngestService{})

	w := httptest.NewRecorder()
	h.Import(w, uploadRequest(t, "wrongField", "<table></table>"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandlerImportServiceError(t *testing.T) {
	svc := &mockIngestService{
		importFn: func(ctx context.Context, r io.Reader) (*Report, error) {
			return nil, errors.New("db down")
		},
	}
	h := NewHandler(svc)

	w := httptest.NewRecorder()
	h.Import(w, uploadRequest(t, "htmlFile", "<table></table>"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}
