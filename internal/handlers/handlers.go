package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"payroll-gateway/internal/keys"
	"payroll-gateway/internal/payroll"
	"payroll-gateway/internal/saib"
)

// PayrollService is the slice of the payroll service the HTTP layer uses.
type PayrollService interface {
	BuildRun(run payroll.Run) ([]*payroll.Batch, error)
	Get(id string) (*payroll.Batch, error)
	List() []*payroll.Batch
	Submit(ctx context.Context, id string) (*payroll.Batch, error)
	Inquire(ctx context.Context, id string) (*payroll.Batch, error)
	Reset(id string) (*payroll.Batch, error)
	SignedFile(ctx context.Context, id string) (*saib.SignedFileResponse, error)
}

// Handler contains dependencies for the operator API handlers.
type Handler struct {
	svc PayrollService
	log *zap.Logger
}

func NewHandler(svc PayrollService, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateRun handles POST /runs: builds and stores the batches for a run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var run payroll.Run
	if err := json.NewDecoder(r.Body).Decode(&run); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if len(run.Employees) == 0 {
		h.writeError(w, http.StatusBadRequest, "run has no employees")
		return
	}
	batches, err := h.svc.BuildRun(run)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, batches)
}

// ListBatches handles GET /batches.
func (h *Handler) ListBatches(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.svc.List())
}

// GetBatch handles GET /batches/{id}.
func (h *Handler) GetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.svc.Get(mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// SubmitBatch handles POST /batches/{id}/submit.
func (h *Handler) SubmitBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.svc.Submit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		// The batch carries the recorded failure; return it with the error.
		if batch != nil {
			h.writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "batch": batch})
			return
		}
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// InquireBatch handles POST /batches/{id}/inquire.
func (h *Handler) InquireBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.svc.Inquire(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if batch != nil {
			h.writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "batch": batch})
			return
		}
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// ResetBatch handles POST /batches/{id}/reset.
func (h *Handler) ResetBatch(w http.ResponseWriter, r *http.Request) {
	batch, err := h.svc.Reset(mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, batch)
}

// SignedFile handles GET /batches/{id}/file.
func (h *Handler) SignedFile(w http.ResponseWriter, r *http.Request) {
	file, err := h.svc.SignedFile(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, file)
}

// DiagnoseKey handles POST /keys/diagnose: classifies a signing key without
// ever raising, for operator troubleshooting.
func (h *Handler) DiagnoseKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PEM string `json:"pem"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	h.writeJSON(w, http.StatusOK, keys.Diagnose(req.PEM))
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	h.writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	var noAccount *payroll.NoBankAccountError
	var mismatch *payroll.TotalMismatchError
	var invalidAmount *payroll.InvalidAmountError
	var bankErr *saib.BankError
	var transportErr *saib.TransportError
	switch {
	case errors.Is(err, payroll.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, payroll.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, payroll.ErrAlreadyConfirmed),
		errors.Is(err, payroll.ErrNotSubmittable),
		errors.Is(err, payroll.ErrNotResettable),
		errors.Is(err, payroll.ErrNotSent):
		return http.StatusConflict
	case errors.As(err, &noAccount), errors.As(err, &mismatch), errors.As(err, &invalidAmount):
		return http.StatusUnprocessableEntity
	case errors.As(err, &bankErr), errors.As(err, &transportErr),
		errors.Is(err, saib.ErrBadCredentials), errors.Is(err, saib.ErrAccessDenied):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("failed to write response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}
