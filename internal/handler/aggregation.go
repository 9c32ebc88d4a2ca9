package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/spendtrack/spendtrack/internal/handler/dto"
	"github.com/spendtrack/spendtrack/internal/model"
	"github.com/spendtrack/spendtrack/internal/service"
	"github.com/spendtrack/spendtrack/internal/validation"
)

// AggregationHandler handles HTTP requests for spending aggregations.
type AggregationHandler struct {
	svc    *service.AggregationService
	logger *slog.Logger
}

// NewAggregationHandler creates a new AggregationHandler.
func NewAggregationHandler(svc *service.AggregationService, logger *slog.Logger) *AggregationHandler {
	return &AggregationHandler{
		svc:    svc,
		logger: logger,
	}
}

// ByCategory handles GET /aggragate/aggregate/by-category.
func (h *AggregationHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	start, end, err := validation.ParseDateRange(r.URL.Query())
	if err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeValidationError(w, verr)
			return
		}
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	aggregates, err := h.svc.AggregateByCategory(r.Context(), start, end)
	if err != nil {
		h.logger.Error("aggregation failed", "error", err)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if aggregates == nil {
		aggregates = []model.CategoryAggregate{}
	}

	writeJSON(w, http.StatusOK, dto.AggregateResponse{
		Message: "Aggregation completed successfully",
		Data:    aggregates,
	})
}
