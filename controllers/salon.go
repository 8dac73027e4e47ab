package controllers

import (
	"beautyhub-backend/services"
	"beautyhub-backend/utils"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SalonFinder interface {
	Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]services.NearbySalon, error)
}

type SalonPromotions interface {
	DemoteSalon(ctx context.Context, actor utils.Principal, salonID uuid.UUID) error
}

type SalonController struct {
	Salons     SalonFinder
	Promotions SalonPromotions
}

// Nearby expects ?lat&lng and an optional ?radius_km.
func (sc *SalonController) Nearby(c *gin.Context) {
	lat, ok := floatQuery(c, "lat")
	if !ok {
		return
	}
	lng, ok := floatQuery(c, "lng")
	if !ok {
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	salons, err := sc.Salons.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"salons": salons})
}

func (sc *SalonController) Demote(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := sc.Promotions.DemoteSalon(c.Request.Context(), actor, id); err != nil {
		utils.RespondWithAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Salon removed from top"})
}
