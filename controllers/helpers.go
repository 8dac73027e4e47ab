package controllers

import (
	"beautyhub-backend/apperrors"
	"beautyhub-backend/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// principal returns the authenticated actor. Routes that call it are behind
// AuthMiddleware, so a missing principal is reported as unauthenticated.
func principal(c *gin.Context) (utils.Principal, bool) {
	p, ok := utils.PrincipalFrom(c)
	if !ok {
		utils.RespondWithAppError(c, apperrors.AuthMissing("Authorization header required"))
	}
	return p, ok
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		utils.RespondWithAppError(c, apperrors.Validation("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// optionalUUIDQuery parses an optional uuid query parameter.
func optionalUUIDQuery(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.RespondWithAppError(c, apperrors.Validation("Invalid "+name))
		return nil, false
	}
	return &id, true
}

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

func floatQuery(c *gin.Context, name string) (float64, bool) {
	v, err := strconv.ParseFloat(c.Query(name), 64)
	if err != nil {
		utils.RespondWithAppError(c, apperrors.Validation("Invalid "+name))
		return 0, false
	}
	return v, true
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		utils.RespondWithAppError(c, apperrors.Validation("Invalid input: "+err.Error()))
		return false
	}
	return true
}
