package services

import (
	"context"
	"encoding/json"

	"farmfi-backend/internal/cache"
	"farmfi-backend/internal/models"

	"go.uber.org/zap"
)

// LocationService serves the seeded reference data. Lookups go local cache,
// then Redis, then the database.
type LocationService struct {
	store LocationStore
	local *cache.Local
	log   *zap.Logger
}

func NewLocationService(store LocationStore, local *cache.Local, log *zap.Logger) *LocationService {
	return &LocationService{store: store, local: local, log: log.Named("locations")}
}

func (s *LocationService) Mandals(ctx context.Context) ([]models.Mandal, error) {
	var out []models.Mandal
	err := s.cached(ctx, cache.LocationsKey, &out, func() (any, error) {
		return s.store.ListMandals(ctx)
	})
	return out, err
}

func (s *LocationService) CropCatalog(ctx context.Context) ([]models.Crop, error) {
	var out []models.Crop
	err := s.cached(ctx, cache.CropCatalogKey, &out, func() (any, error) {
		return s.store.ListCrops(ctx)
	})
	return out, err
}

// cached fills dst (a pointer to a slice) from the first layer that has key.
func (s *LocationService) cached(ctx context.Context, key string, dst any, load func() (any, error)) error {
	if v, ok := s.local.Get(key); ok {
		if data, ok := v.([]byte); ok {
			return json.Unmarshal(data, dst)
		}
	}

	if data, ok := cache.GetCached(ctx, key); ok {
		if err := json.Unmarshal(data, dst); err == nil {
			s.local.Set(key, data)
			return nil
		}
	}

	v, err := load()
	if err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.local.Set(key, data)
	cache.SetCached(ctx, key, data, cache.ReferenceDataTTL)
	return json.Unmarshal(data, dst)
}
