package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/cache"
	"farmfi-backend/internal/landuse"
	"farmfi-backend/internal/metrics"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/timeutil"

	"go.uber.org/zap"
)

// CropService owns crop planting records. Every create and update runs the
// land utilization rules inside the store's field lock.
type CropService struct {
	crops    CropStore
	fields   FieldStore
	notifier Notifier
	log      *zap.Logger
}

func NewCropService(crops CropStore, fields FieldStore, notifier Notifier, log *zap.Logger) *CropService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CropService{crops: crops, fields: fields, notifier: notifier, log: log.Named("crops")}
}

// normalized is a validated CropDataRequest.
type normalized struct {
	cropID     int
	cropYear   int
	season     landuse.Season
	area       float64
	production *float64
	yield      *float64
}

func (s *CropService) normalize(ctx context.Context, req *models.CropDataRequest) (*normalized, error) {
	season, err := landuse.ParseSeason(req.Season)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if !timeutil.ValidCropYear(req.CropYear) {
		return nil, apperr.Validation(fmt.Sprintf("crop_year %d is out of range", req.CropYear))
	}
	if req.Area <= 0 {
		return nil, apperr.Validation("area must be greater than zero")
	}
	if (req.Production != nil && *req.Production < 0) || (req.Yield != nil && *req.Yield < 0) {
		return nil, apperr.Validation("production and yield cannot be negative")
	}

	cropID := req.CropID
	switch {
	case cropID > 0:
		ok, err := s.crops.CropExists(ctx, cropID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Validation("unknown crop")
		}
	case strings.TrimSpace(req.CropName) != "":
		cropID, err = s.crops.CropIDByName(ctx, req.CropName)
		if err != nil {
			if apperr.KindOf(err) == apperr.KindNotFound {
				return nil, apperr.Validation(apperr.PublicMessage(err))
			}
			return nil, err
		}
	default:
		return nil, apperr.Validation("crop_id is required")
	}

	return &normalized{
		cropID:     cropID,
		cropYear:   req.CropYear,
		season:     season,
		area:       req.Area,
		production: req.Production,
		yield:      req.Yield,
	}, nil
}

// landCheck returns the check run under the field lock. On success the
// snapshot including the candidate is written to out.
func (s *CropService) landCheck(n *normalized, out **landuse.Snapshot) models.LandCheck {
	return func(field *models.Field, active []*models.CropData) error {
		if field.Status == models.StatusRejected {
			return apperr.Validation("crops cannot be recorded on a rejected field")
		}
		snap, err := landuse.Check(field.Area, toLandCrops(active), landuse.Candidate{
			Season:   n.season,
			CropYear: n.cropYear,
			Area:     n.area,
		})
		if err != nil {
			return err
		}
		*out = snap
		return nil
	}
}

// writeError converts a land use violation into a 400 with the violation as
// details and counts it.
func (s *CropService) writeError(err error, fieldID int) error {
	var v *landuse.Violation
	if errors.As(err, &v) {
		metrics.LandUseRejections.WithLabelValues(string(v.Rule)).Inc()
		s.log.Info("crop write rejected",
			zap.Int("field_id", fieldID),
			zap.String("rule", string(v.Rule)),
			zap.Float64("occupied_before", v.OccupiedBefore),
			zap.Float64("remaining_before", v.RemainingBefore))
		return apperr.Validation(v.Reason).WithDetails(v)
	}
	return err
}

// Create records a planting. Farmers may only use their own fields.
func (s *CropService) Create(ctx context.Context, actor models.Identity, req *models.CropDataRequest) (*models.CropDataResult, error) {
	if req.FieldID <= 0 {
		return nil, apperr.Validation("field_id is required")
	}
	field, err := s.scopedField(ctx, actor, req.FieldID)
	if err != nil {
		return nil, err
	}
	n, err := s.normalize(ctx, req)
	if err != nil {
		return nil, err
	}

	c := &models.CropData{
		FieldID:       field.ID,
		CropID:        n.cropID,
		CropYear:      n.cropYear,
		Season:        string(n.season),
		Area:          n.area,
		Production:    n.production,
		Yield:         n.yield,
		CreatedByRole: actor.Role,
	}

	var snap *landuse.Snapshot
	if err := s.crops.CreateChecked(ctx, c, s.landCheck(n, &snap)); err != nil {
		return nil, s.writeError(err, field.ID)
	}

	cache.InvalidateAnalytics(ctx)
	s.log.Info("crop recorded",
		zap.Int("crop_data_id", c.ID),
		zap.Int("field_id", c.FieldID),
		zap.Int("crop_year", c.CropYear),
		zap.String("season", c.Season),
		zap.Float64("area", c.Area))

	return s.result(ctx, c.ID, snap)
}

// Update re-runs the land rules with the record itself excluded. The field
// of a record cannot change.
func (s *CropService) Update(ctx context.Context, actor models.Identity, id int, req *models.CropDataRequest) (*models.CropDataResult, error) {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if existing.Verified {
		return nil, apperr.Forbidden("verified crop records cannot be modified")
	}
	if req.FieldID != 0 && req.FieldID != existing.FieldID {
		return nil, apperr.Validation("a crop record cannot be moved to another field")
	}
	n, err := s.normalize(ctx, req)
	if err != nil {
		return nil, err
	}

	c := &models.CropData{
		ID:         existing.ID,
		FieldID:    existing.FieldID,
		CropID:     n.cropID,
		CropYear:   n.cropYear,
		Season:     string(n.season),
		Area:       n.area,
		Production: n.production,
		Yield:      n.yield,
	}

	var snap *landuse.Snapshot
	if err := s.crops.UpdateChecked(ctx, c, s.landCheck(n, &snap)); err != nil {
		return nil, s.writeError(err, existing.FieldID)
	}

	cache.InvalidateAnalytics(ctx)
	return s.result(ctx, c.ID, snap)
}

func (s *CropService) Delete(ctx context.Context, actor models.Identity, id int) error {
	existing, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if existing.Verified {
		return apperr.Forbidden("verified crop records cannot be deleted")
	}
	if err := s.crops.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateAnalytics(ctx)
	return nil
}

// Get returns a record the caller may see; a farmer gets NotFound for
// records on fields they do not own.
func (s *CropService) Get(ctx context.Context, actor models.Identity, id int) (*models.CropData, error) {
	c, err := s.crops.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsFarmer() && c.FarmerID != actor.ID {
		return nil, apperr.NotFound("crop record not found")
	}
	return c, nil
}

func (s *CropService) List(ctx context.Context, actor models.Identity, filter models.CropDataFilter) ([]*models.CropData, error) {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, apperr.Validation("unknown status filter")
	}
	if actor.IsFarmer() {
		filter.FarmerID = actor.ID
	}
	return s.crops.List(ctx, filter)
}

// LandInfo reports the current utilization of a field for a crop year
// without writing anything. cropYear 0 means the current crop year.
func (s *CropService) LandInfo(ctx context.Context, actor models.Identity, fieldID, cropYear int) (*landuse.Snapshot, error) {
	field, err := s.scopedField(ctx, actor, fieldID)
	if err != nil {
		return nil, err
	}
	if cropYear == 0 {
		cropYear = timeutil.CropYear(timeutil.Now())
	}
	active, err := s.crops.ActiveForField(ctx, field.ID, cropYear)
	if err != nil {
		return nil, err
	}
	return landuse.Summarize(field.Area, toLandCrops(active)), nil
}

func (s *CropService) Verify(ctx context.Context, actor models.Identity, id int) (*models.CropData, error) {
	return s.advance(ctx, actor, id, models.ActionVerify, "")
}

func (s *CropService) Approve(ctx context.Context, actor models.Identity, id int) (*models.CropData, error) {
	return s.advance(ctx, actor, id, models.ActionApprove, "")
}

func (s *CropService) Reject(ctx context.Context, actor models.Identity, id int, reason string) (*models.CropData, error) {
	return s.advance(ctx, actor, id, models.ActionReject, reason)
}

func (s *CropService) advance(ctx context.Context, actor models.Identity, id int, action, reason string) (*models.CropData, error) {
	c, err := s.crops.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	change, err := transition(action, actor, c.Status, reason)
	if err != nil {
		return nil, err
	}
	if err := s.crops.Transition(ctx, id, c.Status, change,
		approvalLog(models.EntityCrop, id, action, c.Status, change, actor)); err != nil {
		return nil, err
	}

	cache.InvalidateAnalytics(ctx)
	s.notifier.Publish(models.StatusEvent{
		Type:     "status_changed",
		Entity:   models.EntityCrop,
		ID:       id,
		FarmerID: c.FarmerID,
		Status:   change.Status,
	})
	s.log.Info("crop status changed",
		zap.Int("crop_data_id", id),
		zap.String("action", action),
		zap.String("from", c.Status),
		zap.String("to", change.Status),
		zap.String("actor_role", actor.Role),
		zap.Int("actor_id", actor.ID))

	return s.crops.Get(ctx, id)
}

// scopedField loads a field the caller may record crops on.
func (s *CropService) scopedField(ctx context.Context, actor models.Identity, fieldID int) (*models.Field, error) {
	f, err := s.fields.Get(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if actor.IsFarmer() && f.FarmerID != actor.ID {
		return nil, apperr.NotFound("field not found")
	}
	return f, nil
}

// result reloads the record with its joined names and labels the new entry
// of the snapshot.
func (s *CropService) result(ctx context.Context, id int, snap *landuse.Snapshot) (*models.CropDataResult, error) {
	c, err := s.crops.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if snap != nil && len(snap.ActiveCrops) > 0 {
		last := &snap.ActiveCrops[len(snap.ActiveCrops)-1]
		if last.ID == 0 {
			last.ID = c.ID
			last.CropName = c.CropName
		}
	}
	return &models.CropDataResult{Crop: c, LandInfo: snap}, nil
}

func toLandCrops(active []*models.CropData) []landuse.Crop {
	out := make([]landuse.Crop, 0, len(active))
	for _, c := range active {
		// stored seasons are canonical; ParseSeason only guards legacy rows
		season, err := landuse.ParseSeason(c.Season)
		if err != nil {
			season = landuse.Season(c.Season)
		}
		out = append(out, landuse.Crop{ID: c.ID, CropName: c.CropName, Season: season, Area: c.Area})
	}
	return out
}
