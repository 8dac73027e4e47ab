// utils/auth.go
package utils

import (
	"beautyhub-backend/apperrors"
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	RoleUser       = "user"
	RoleEmployee   = "employee"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Principal is the authenticated actor of a request.
type Principal struct {
	ID      uuid.UUID  `json:"id"`
	Role    string     `json:"role"`
	SalonID *uuid.UUID `json:"salon_id,omitempty"`
}

func (p Principal) Is(roles ...string) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// ManagesSalon reports whether the principal may administer the salon.
func (p Principal) ManagesSalon(salonID uuid.UUID) bool {
	if p.Role == RoleSuperadmin {
		return true
	}
	return p.Role == RoleAdmin && p.SalonID != nil && *p.SalonID == salonID
}

type Claims struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Type    string `json:"type,omitempty"`
	SalonID string `json:"salon_id,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HMAC-signed bearer tokens issued by the auth service.
type TokenVerifier struct {
	secret []byte
	method jwt.SigningMethod
}

func NewTokenVerifier(secret, algorithm string) *TokenVerifier {
	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		method = jwt.SigningMethodHS256
	}
	return &TokenVerifier{secret: []byte(secret), method: method}
}

func (v *TokenVerifier) Verify(tokenString string) (Principal, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{v.method.Alg()}))
	if err != nil || !token.Valid {
		return Principal{}, apperrors.AuthInvalid("Invalid token").Wrap(err)
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return Principal{}, apperrors.AuthInvalid("Invalid token claims").Wrap(err)
	}
	switch claims.Role {
	case RoleUser, RoleEmployee, RoleAdmin, RoleSuperadmin:
	default:
		return Principal{}, apperrors.AuthInvalid("Unsupported role")
	}

	p := Principal{ID: id, Role: claims.Role}
	if claims.SalonID != "" {
		sid, err := uuid.Parse(claims.SalonID)
		if err != nil {
			return Principal{}, apperrors.AuthInvalid("Invalid token claims").Wrap(err)
		}
		p.SalonID = &sid
	}
	return p, nil
}

// Generate signs a token for p. Issuing is owned by the auth service; this is
// used by tooling and tests.
func (v *TokenVerifier) Generate(p Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		ID:   p.ID.String(),
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	if p.SalonID != nil {
		claims.SalonID = p.SalonID.String()
	}
	return jwt.NewWithClaims(v.method, claims).SignedString(v.secret)
}

const principalKey = "principal"

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return strings.TrimSpace(header)
}

// Auth middleware
func AuthMiddleware(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			RespondWithAppError(c, apperrors.AuthMissing("Authorization header required"))
			c.Abort()
			return
		}

		p, err := v.Verify(tokenString)
		if err != nil {
			RespondWithAppError(c, err)
			c.Abort()
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			RespondWithAppError(c, apperrors.AuthMissing("Authorization header required"))
			c.Abort()
			return
		}
		if !p.Is(roles...) {
			RespondWithAppError(c, apperrors.PermissionDenied("Role not allowed"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// HashSecret returns a bcrypt fingerprint of a sensitive value.
func HashSecret(secret string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckSecretHash(secret, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret))
	return err == nil
}
