package services

import (
	"context"
	"errors"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/cache"
	"farmfi-backend/internal/landuse"
	"farmfi-backend/internal/metrics"
	"farmfi-backend/internal/models"

	"go.uber.org/zap"
)

type FieldService struct {
	fields    FieldStore
	locations LocationStore
	notifier  Notifier
	log       *zap.Logger
}

func NewFieldService(fields FieldStore, locations LocationStore, notifier Notifier, log *zap.Logger) *FieldService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &FieldService{fields: fields, locations: locations, notifier: notifier, log: log.Named("fields")}
}

func (s *FieldService) validate(ctx context.Context, req *models.FieldRequest) error {
	req.FieldName = strings.TrimSpace(req.FieldName)
	switch {
	case req.FieldName == "":
		return apperr.Validation("field_name is required")
	case req.Area <= 0:
		return apperr.Validation("area must be greater than zero")
	case req.Latitude < -90 || req.Latitude > 90:
		return apperr.Validation("latitude must be between -90 and 90")
	case req.Longitude < -180 || req.Longitude > 180:
		return apperr.Validation("longitude must be between -180 and 180")
	case req.MandalID <= 0 || req.VillageID <= 0:
		return apperr.Validation("mandal_id and village_id are required")
	}
	ok, err := s.locations.VillageInMandal(ctx, req.MandalID, req.VillageID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Validation("village does not belong to the selected mandal")
	}
	return nil
}

// Create registers a new field for the calling farmer.
func (s *FieldService) Create(ctx context.Context, actor models.Identity, req *models.FieldRequest) (*models.Field, error) {
	if !actor.IsFarmer() {
		return nil, apperr.Forbidden("only farmers can register fields")
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	f := &models.Field{
		FarmerID:  actor.ID,
		FieldName: req.FieldName,
		Area:      req.Area,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		MandalID:  req.MandalID,
		VillageID: req.VillageID,
	}
	if err := s.fields.Create(ctx, f); err != nil {
		return nil, err
	}
	cache.InvalidateAnalytics(ctx)
	s.log.Info("field created", zap.Int("field_id", f.ID), zap.Int("farmer_id", f.FarmerID))
	return f, nil
}

// Get returns the field if the caller may see it. Farmers get NotFound for
// fields they do not own.
func (s *FieldService) Get(ctx context.Context, actor models.Identity, id int) (*models.Field, error) {
	f, err := s.fields.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsFarmer() && f.FarmerID != actor.ID {
		return nil, apperr.NotFound("field not found")
	}
	return f, nil
}

// List scopes farmers to their own fields; staff may filter freely.
func (s *FieldService) List(ctx context.Context, actor models.Identity, filter models.FieldFilter) ([]*models.Field, error) {
	if filter.Status != "" && !models.ValidStatus(filter.Status) {
		return nil, apperr.Validation("unknown status filter")
	}
	if actor.IsFarmer() {
		filter.FarmerID = actor.ID
	}
	return s.fields.List(ctx, filter)
}

func (s *FieldService) Update(ctx context.Context, actor models.Identity, id int, req *models.FieldRequest) (*models.Field, error) {
	f, err := s.ownedMutable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}

	f.FieldName = req.FieldName
	f.Area = req.Area
	f.Latitude = req.Latitude
	f.Longitude = req.Longitude
	f.MandalID = req.MandalID
	f.VillageID = req.VillageID
	err = s.fields.Update(ctx, f, func(current *models.Field, occupied map[int]float64) error {
		return landuse.CheckResize(current.Area, f.Area, occupied)
	})
	if err != nil {
		var v *landuse.Violation
		if errors.As(err, &v) {
			metrics.LandUseRejections.WithLabelValues(string(v.Rule)).Inc()
			s.log.Info("field resize rejected",
				zap.Int("field_id", id),
				zap.Float64("area", f.Area),
				zap.Float64("occupied", v.OccupiedBefore))
			return nil, apperr.Validation(v.Reason).WithDetails(v)
		}
		return nil, err
	}
	cache.InvalidateAnalytics(ctx)
	return s.fields.Get(ctx, id)
}

func (s *FieldService) Delete(ctx context.Context, actor models.Identity, id int) error {
	if _, err := s.ownedMutable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.fields.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateAnalytics(ctx)
	s.log.Info("field deleted", zap.Int("field_id", id), zap.Int("farmer_id", actor.ID))
	return nil
}

// ownedMutable loads a field the farmer owns and may still change.
func (s *FieldService) ownedMutable(ctx context.Context, actor models.Identity, id int) (*models.Field, error) {
	if !actor.IsFarmer() {
		return nil, apperr.Forbidden("only the owning farmer can modify a field")
	}
	f, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if f.Verified {
		return nil, apperr.Forbidden("verified fields cannot be modified")
	}
	return f, nil
}

func (s *FieldService) Verify(ctx context.Context, actor models.Identity, id int) (*models.Field, error) {
	return s.advance(ctx, actor, id, models.ActionVerify, "")
}

func (s *FieldService) Approve(ctx context.Context, actor models.Identity, id int) (*models.Field, error) {
	return s.advance(ctx, actor, id, models.ActionApprove, "")
}

func (s *FieldService) Reject(ctx context.Context, actor models.Identity, id int, reason string) (*models.Field, error) {
	return s.advance(ctx, actor, id, models.ActionReject, reason)
}

func (s *FieldService) advance(ctx context.Context, actor models.Identity, id int, action, reason string) (*models.Field, error) {
	f, err := s.fields.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	change, err := transition(action, actor, f.Status, reason)
	if err != nil {
		return nil, err
	}
	if err := s.fields.Transition(ctx, id, f.Status, change,
		approvalLog(models.EntityField, id, action, f.Status, change, actor)); err != nil {
		return nil, err
	}

	cache.InvalidateAnalytics(ctx)
	s.notifier.Publish(models.StatusEvent{
		Type:     "status_changed",
		Entity:   models.EntityField,
		ID:       id,
		FarmerID: f.FarmerID,
		Status:   change.Status,
	})
	s.log.Info("field status changed",
		zap.Int("field_id", id),
		zap.String("action", action),
		zap.String("from", f.Status),
		zap.String("to", change.Status),
		zap.String("actor_role", actor.Role),
		zap.Int("actor_id", actor.ID))

	return s.fields.Get(ctx, id)
}
