package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/cache"
	"farmfi-backend/internal/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Report names, also used in cache keys and the CSV export.
const (
	ReportOverview         = "overview"
	ReportCropsBySeason    = "crops-by-season"
	ReportAreaByCrop       = "area-by-crop"
	ReportProductionByYear = "production-by-year"
	ReportFieldsByMandal   = "fields-by-mandal"
	ReportDiseases         = "diseases"
)

// AnalyticsService serves read-only aggregations. Farmers are scoped to
// their own records; staff see everything. Results are cached in Redis.
type AnalyticsService struct {
	store AnalyticsStore
	log   *zap.Logger
}

func NewAnalyticsService(store AnalyticsStore, log *zap.Logger) *AnalyticsService {
	return &AnalyticsService{store: store, log: log.Named("analytics")}
}

// scope returns the farmer filter (0 = all) and its cache suffix.
func scope(actor models.Identity) (int, string) {
	if actor.IsFarmer() {
		return actor.ID, "farmer:" + strconv.Itoa(actor.ID)
	}
	return 0, "all"
}

// cached returns the cached value of report for the scope or computes and
// stores it. Cache failures only cost a recomputation.
func cached[T any](ctx context.Context, report, scopeKey string, compute func() (T, error)) (T, error) {
	key := cache.AnalyticsKey(report, scopeKey)
	if data, ok := cache.GetCached(ctx, key); ok {
		var v T
		if err := json.Unmarshal(data, &v); err == nil {
			return v, nil
		}
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if data, err := json.Marshal(v); err == nil {
		cache.SetCached(ctx, key, data, cache.AnalyticsTTL)
	}
	return v, nil
}

// Overview runs its four queries concurrently.
func (s *AnalyticsService) Overview(ctx context.Context, actor models.Identity) (*models.Overview, error) {
	farmerID, key := scope(actor)
	return cached(ctx, ReportOverview, key, func() (*models.Overview, error) {
		var out models.Overview
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			n, err := s.store.CountFarmers(gctx, farmerID)
			out.TotalFarmers = n
			return err
		})
		g.Go(func() error {
			byStatus, area, err := s.store.FieldStats(gctx, farmerID)
			out.FieldsByStatus, out.TotalArea = byStatus, area
			return err
		})
		g.Go(func() error {
			byStatus, area, err := s.store.CropStats(gctx, farmerID)
			out.CropsByStatus, out.CultivatedArea = byStatus, area
			return err
		})
		g.Go(func() error {
			n, err := s.store.CountDetections(gctx, farmerID)
			out.Detections = n
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}
		for _, n := range out.FieldsByStatus {
			out.TotalFields += n
		}
		for _, n := range out.CropsByStatus {
			out.TotalCrops += n
		}
		return &out, nil
	})
}

func (s *AnalyticsService) CropsBySeason(ctx context.Context, actor models.Identity) ([]models.LabeledValue, error) {
	return s.series(ctx, actor, ReportCropsBySeason, s.store.CropsBySeason)
}

func (s *AnalyticsService) AreaByCrop(ctx context.Context, actor models.Identity) ([]models.LabeledValue, error) {
	return s.series(ctx, actor, ReportAreaByCrop, s.store.AreaByCrop)
}

func (s *AnalyticsService) ProductionByYear(ctx context.Context, actor models.Identity) ([]models.LabeledValue, error) {
	return s.series(ctx, actor, ReportProductionByYear, s.store.ProductionByYear)
}

func (s *AnalyticsService) FieldsByMandal(ctx context.Context, actor models.Identity) ([]models.LabeledValue, error) {
	return s.series(ctx, actor, ReportFieldsByMandal, s.store.FieldsByMandal)
}

func (s *AnalyticsService) Diseases(ctx context.Context, actor models.Identity) ([]models.LabeledValue, error) {
	return s.series(ctx, actor, ReportDiseases, s.store.DiseaseCounts)
}

func (s *AnalyticsService) series(ctx context.Context, actor models.Identity, report string,
	query func(context.Context, int) ([]models.LabeledValue, error)) ([]models.LabeledValue, error) {
	farmerID, key := scope(actor)
	return cached(ctx, report, key, func() ([]models.LabeledValue, error) {
		return query(ctx, farmerID)
	})
}

// ExportCSV writes every report as report,label,value,count rows. Staff only.
func (s *AnalyticsService) ExportCSV(ctx context.Context, actor models.Identity, w io.Writer) error {
	if !actor.IsStaff() {
		return apperr.Forbidden("analytics export is available to staff")
	}

	ov, err := s.Overview(ctx, actor)
	if err != nil {
		return err
	}

	type section struct {
		name string
		load func(context.Context, models.Identity) ([]models.LabeledValue, error)
	}
	sections := []section{
		{ReportCropsBySeason, s.CropsBySeason},
		{ReportAreaByCrop, s.AreaByCrop},
		{ReportProductionByYear, s.ProductionByYear},
		{ReportFieldsByMandal, s.FieldsByMandal},
		{ReportDiseases, s.Diseases},
	}
	data := make([][]models.LabeledValue, len(sections))
	for i, sec := range sections {
		if data[i], err = sec.load(ctx, actor); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	write := func(rec ...string) { _ = cw.Write(rec) }

	write("report", "label", "value", "count")
	write(ReportOverview, "total_farmers", "", strconv.Itoa(ov.TotalFarmers))
	write(ReportOverview, "total_fields", formatFloat(ov.TotalArea), strconv.Itoa(ov.TotalFields))
	write(ReportOverview, "total_crops", formatFloat(ov.CultivatedArea), strconv.Itoa(ov.TotalCrops))
	write(ReportOverview, "detections", "", strconv.Itoa(ov.Detections))
	for _, st := range []string{models.StatusPending, models.StatusEmployeeVerified, models.StatusAdminApproved, models.StatusRejected} {
		write(ReportOverview, "fields_"+st, "", strconv.Itoa(ov.FieldsByStatus[st]))
		write(ReportOverview, "crops_"+st, "", strconv.Itoa(ov.CropsByStatus[st]))
	}
	for i, sec := range sections {
		for _, v := range data[i] {
			write(sec.name, v.Label, formatFloat(v.Value), strconv.Itoa(v.Count))
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
