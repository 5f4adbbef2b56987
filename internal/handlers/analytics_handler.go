package handlers

import (
	"bytes"
	"fmt"
	"net/http"

	"farmfi-backend/internal/services"
	"farmfi-backend/internal/timeutil"
	"farmfi-backend/pkg/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type AnalyticsHandler struct {
	Service *services.AnalyticsService
	log     *zap.Logger
}

func NewAnalyticsHandler(s *services.AnalyticsService, log *zap.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{Service: s, log: log}
}

func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	ov, err := h.Service.Overview(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, ov)
}

// Series serves GET /api/analytics/{report} for the chart reports
func (h *AnalyticsHandler) Series(w http.ResponseWriter, r *http.Request) {
	actor := identity(r)
	ctx := r.Context()

	var (
		data any
		err  error
	)
	switch report := mux.Vars(r)["report"]; report {
	case services.ReportCropsBySeason:
		data, err = h.Service.CropsBySeason(ctx, actor)
	case services.ReportAreaByCrop:
		data, err = h.Service.AreaByCrop(ctx, actor)
	case services.ReportProductionByYear:
		data, err = h.Service.ProductionByYear(ctx, actor)
	case services.ReportFieldsByMandal:
		data, err = h.Service.FieldsByMandal(ctx, actor)
	case services.ReportDiseases:
		data, err = h.Service.Diseases(ctx, actor)
	default:
		utils.Error(w, http.StatusNotFound, "unknown report", nil)
		return
	}
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, data)
}

// ExportCSV handles GET /api/analytics/export.csv
func (h *AnalyticsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.Service.ExportCSV(r.Context(), identity(r), &buf); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	filename := fmt.Sprintf("farmfi_analytics_%s.csv", timeutil.Now().Format(timeutil.DateLayout))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Write(buf.Bytes())
}
