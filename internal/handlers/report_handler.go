package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"farmfi-backend/internal/services"
	"farmfi-backend/internal/timeutil"

	"go.uber.org/zap"
)

type ReportHandler struct {
	Service *services.ReportService
	log     *zap.Logger
}

func NewReportHandler(service *services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{Service: service, log: log}
}

// FarmerPDF handles GET /api/reports/farmer/{id}.pdf
func (h *ReportHandler) FarmerPDF(w http.ResponseWriter, r *http.Request) {
	farmerID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	data, err := h.Service.FarmerReport(ctx, identity(r), farmerID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	pdf, err := h.Service.GenerateFarmerPDF(data)
	if err != nil {
		writeError(w, r, h.log, fmt.Errorf("render farmer %d statement: %w", farmerID, err))
		return
	}

	filename := fmt.Sprintf("farmer_%d_%s.pdf", farmerID, timeutil.Now().Format(timeutil.DateLayout))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(pdf)
}
