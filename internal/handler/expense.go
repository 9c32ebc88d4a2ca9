package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/spendtrack/spendtrack/internal/auth"
	"github.com/spendtrack/spendtrack/internal/handler/dto"
	"github.com/spendtrack/spendtrack/internal/model"
	"github.com/spendtrack/spendtrack/internal/service"
	"github.com/spendtrack/spendtrack/internal/validation"
)

// ExpenseHandler handles HTTP requests for expense operations.
type ExpenseHandler struct {
	svc    *service.ExpenseService
	logger *slog.Logger
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(svc *service.ExpenseService, logger *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		svc:    svc,
		logger: logger,
	}
}

// Add handles POST /expense/add.
func (h *ExpenseHandler) Add(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == "" {
		writeMessage(w, http.StatusBadRequest, "User ID is required")
		return
	}

	var req dto.CreateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := validation.ExpenseInput{
		Title:         req.Title,
		Amount:        req.Amount,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date,
	}
	if err := validation.ValidateCreateExpense(in); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	// Validation guarantees all fields are present and well-formed.
	date, _ := validation.ParseDate(*req.Date)
	expense, err := h.svc.Create(r.Context(), ownerID, service.CreateInput{
		Title:         *req.Title,
		Amount:        *req.Amount,
		Category:      *req.Category,
		PaymentMethod: model.PaymentMethod(*req.PaymentMethod),
		Date:          date,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("expense_created",
		"expense_id", expense.ID,
		"category", expense.Category,
	)

	writeJSON(w, http.StatusCreated, dto.ExpenseEnvelope{
		Message: "Expense added successfully",
		Expense: dto.ToExpenseResponse(expense),
	})
}

// List handles GET /expense/expenses.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == "" {
		writeMessage(w, http.StatusBadRequest, "User ID is required")
		return
	}

	query, err := validation.ParseListQuery(r.URL.Query())
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := h.svc.List(r.Context(), service.ListInput{
		OwnerID:   ownerID,
		Category:  query.Category,
		StartDate: query.StartDate,
		EndDate:   query.EndDate,
		SortBy:    query.SortBy,
		Page:      query.Page,
		Limit:     query.Limit,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToListExpensesResponse(out.Total, out.TotalPages, out.CurrentPage, out.Expenses))
}

// Update handles PATCH /expense/expenses/{id}.
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == "" {
		writeMessage(w, http.StatusBadRequest, "User ID is required")
		return
	}

	id := chi.URLParam(r, "id")

	var req dto.UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in := validation.ExpenseInput{
		Title:         req.Title,
		Amount:        req.Amount,
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Date:          req.Date,
	}
	if err := validation.ValidateUpdateExpense(in); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	update := service.ExpenseUpdate{
		Title:    req.Title,
		Amount:   req.Amount,
		Category: req.Category,
	}
	if req.PaymentMethod != nil {
		method := model.PaymentMethod(*req.PaymentMethod)
		update.PaymentMethod = &method
	}
	if req.Date != nil {
		date, _ := validation.ParseDate(*req.Date)
		update.Date = &date
	}

	expense, err := h.svc.Update(r.Context(), ownerID, id, update)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("expense_updated", "expense_id", expense.ID)

	writeJSON(w, http.StatusOK, dto.ExpenseEnvelope{
		Message: "Expense updated successfully",
		Expense: dto.ToExpenseResponse(expense),
	})
}

// Delete handles DELETE /expense/expenses/{id}.
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == "" {
		writeMessage(w, http.StatusBadRequest, "User ID is required")
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.svc.Delete(r.Context(), ownerID, id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("expense_deleted", "expense_id", id)

	writeMessage(w, http.StatusOK, "Expense deleted successfully")
}

// handleServiceError maps service errors to HTTP responses.
func (h *ExpenseHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		writeMessage(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, service.ErrOwnerRequired):
		writeMessage(w, http.StatusBadRequest, "User ID is required")
	default:
		h.logger.Error("expense operation failed",
			"error", err,
			"path", r.URL.Path,
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}
