package services

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/models"
	"beautyhub-backend/utils"
	"context"
	"sort"
)

const (
	DefaultNearbyRadiusKm = 10.0
	MaxNearbyRadiusKm     = 100.0
)

type SalonService struct {
	store DirectoryStore
}

func NewSalonService(store DirectoryStore) *SalonService {
	return &SalonService{store: store}
}

type NearbySalon struct {
	models.Salon
	DistanceKm float64 `json:"distance_km"`
}

// Nearby lists active salons within radiusKm of the point, top salons first
// and then by distance.
func (s *SalonService) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]NearbySalon, error) {
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return nil, apperrors.Validation("Invalid coordinates")
	}
	if radiusKm <= 0 {
		radiusKm = DefaultNearbyRadiusKm
	}
	if radiusKm > MaxNearbyRadiusKm {
		radiusKm = MaxNearbyRadiusKm
	}

	salons, err := s.store.ListActiveSalons(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to load salons").Wrap(err)
	}
	out := []NearbySalon{}
	for _, salon := range salons {
		if salon.Lat == nil || salon.Lng == nil {
			continue
		}
		d := utils.HaversineKm(lat, lng, *salon.Lat, *salon.Lng)
		if d <= radiusKm {
			out = append(out, NearbySalon{Salon: salon, DistanceKm: d})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsTop != out[j].IsTop {
			return out[i].IsTop
		}
		return out[i].DistanceKm < out[j].DistanceKm
	})
	return out, nil
}
