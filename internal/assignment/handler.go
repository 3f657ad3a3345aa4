package assignment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"testportal/internal/app/apiresp"
	"testportal/internal/testpool"
)

type Handler struct {
	svc assignmentService
}

type assignmentService interface {
	Assign(ctx context.Context, studentID, testID int64, customName string) (*Assignment, error)
	AssignByCode(ctx context.Context, studentID int64, code, customName string) (*Assignment, error)
	RecordAnswer(ctx context.Context, studentID, testID int64, questionNo int, option string) error
	Complete(ctx context.Context, studentID, testID int64) (*Result, error)
	Recompute(ctx context.Context, studentID, testID int64) (*Result, error)
	GetResult(ctx context.Context, studentID, testID int64) (*Result, error)
	ListForStudent(ctx context.Context, studentID int64) ([]Assignment, error)
}

type response struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

type assignRequest struct {
	StudentID  int64  `json:"student_id"`
	TestID     int64  `json:"test_id"`
	TestCode   string `json:"test_code"`
	CustomName string `json:"custom_name"`
}

type recordAnswerRequest struct {
	StudentID int64  `json:"student_id"`
	Option    string `json:"option"`
}

type completeRequest struct {
	StudentID int64 `json:"student_id"`
}

func NewHandler(svc assignmentService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(r.URL.Query().Get("student_id"), 10, 64)
	if err != nil || studentID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "student_id is required"})
		return
	}
	items, err := h.svc.ListForStudent(r.Context(), studentID)
	if err != nil {
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: items})
}

func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if req.StudentID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "student_id is required"})
		return
	}

	var (
		a   *Assignment
		err error
	)
	switch {
	case req.TestID > 0:
		a, err = h.svc.Assign(r.Context(), req.StudentID, req.TestID, req.CustomName)
	case req.TestCode != "":
		a, err = h.svc.AssignByCode(r.Context(), req.StudentID, req.TestCode, req.CustomName)
	default:
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "test_id or test_code is required"})
		return
	}
	if err != nil {
		switch {
		case errors.Is(err, testpool.ErrTestNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrAlreadyAssigned):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusCreated, response{OK: true, Data: a})
}

func (h *Handler) RecordAnswer(w http.ResponseWriter, r *http.Request) {
	testID, questionNo, ok := h.answerParams(w, r)
	if !ok {
		return
	}

	var req recordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if req.StudentID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "student_id is required"})
		return
	}

	if err := h.svc.RecordAnswer(r.Context(), req.StudentID, testID, questionNo, req.Option); err != nil {
		switch {
		case errors.Is(err, ErrAssignmentNotFound), errors.Is(err, testpool.ErrTestNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrInvalidOption), errors.Is(err, ErrQuestionOutOfRange):
			writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testIDParam(w, r)
	if !ok {
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid request body"})
		return
	}
	if req.StudentID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "student_id is required"})
		return
	}

	res, err := h.svc.Complete(r.Context(), req.StudentID, testID)
	if err != nil {
		h.writeFinalizeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: res})
}

func (h *Handler) Recompute(w http.ResponseWriter, r *http.Request) {
	studentID, err := strconv.ParseInt(chi.URLParam(r, "studentID"), 10, 64)
	if err != nil || studentID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid student id"})
		return
	}
	testID, ok := h.testIDParam(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Recompute(r.Context(), studentID, testID)
	if err != nil {
		if errors.Is(err, ErrAssignmentNotCompleted) {
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
			return
		}
		h.writeFinalizeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: res})
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	testID, ok := h.testIDParam(w, r)
	if !ok {
		return
	}
	studentID, err := strconv.ParseInt(r.URL.Query().Get("student_id"), 10, 64)
	if err != nil || studentID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "student_id is required"})
		return
	}

	res, err := h.svc.GetResult(r.Context(), studentID, testID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAssignmentNotFound), errors.Is(err, testpool.ErrTestNotFound):
			writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
		case errors.Is(err, ErrAssignmentNotCompleted):
			writeJSON(w, r, http.StatusConflict, response{OK: false, Error: err.Error()})
		default:
			writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
		}
		return
	}
	writeJSON(w, r, http.StatusOK, response{OK: true, Data: res})
}

func (h *Handler) writeFinalizeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrAssignmentNotFound), errors.Is(err, testpool.ErrTestNotFound):
		writeJSON(w, r, http.StatusNotFound, response{OK: false, Error: err.Error()})
	case errors.Is(err, ErrDefinitionInvalid):
		writeJSON(w, r, http.StatusUnprocessableEntity, response{OK: false, Error: err.Error()})
	default:
		writeJSON(w, r, http.StatusInternalServerError, response{OK: false, Error: "internal error"})
	}
}

func (h *Handler) testIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	testID, err := strconv.ParseInt(chi.URLParam(r, "testID"), 10, 64)
	if err != nil || testID <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid test id"})
		return 0, false
	}
	return testID, true
}

func (h *Handler) answerParams(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	testID, ok := h.testIDParam(w, r)
	if !ok {
		return 0, 0, false
	}
	questionNo, err := strconv.Atoi(chi.URLParam(r, "questionNo"))
	if err != nil || questionNo <= 0 {
		writeJSON(w, r, http.StatusBadRequest, response{OK: false, Error: "invalid question number"})
		return 0, 0, false
	}
	return testID, questionNo, true
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, payload response) {
	if payload.OK {
		apiresp.WriteOK(w, r, code, payload.Data)
		return
	}
	apiresp.WriteError(w, r, code, payload.Error)
}
