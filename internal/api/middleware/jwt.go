package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/yoockh/aicruiter/internal/models"
	"github.com/yoockh/aicruiter/internal/utils"
)

const identityKey = "identity"

type apiError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

type JWTConfig struct {
	Secret   string
	Issuer   string // optional
	Audience string // optional
}

type supabaseClaims struct {
	jwt.RegisteredClaims
	Email        string         `json:"email"`
	Role         string         `json:"role"`         // usually "authenticated" / "anon"
	AppMetadata  map[string]any `json:"app_metadata"` // put {"role":"admin"} here
	UserMetadata map[string]any `json:"user_metadata"`
}

var (
	errMissingToken = errors.New("missing bearer token")
	errBadToken     = errors.New("invalid token")
)

// JWTAuth rejects requests without a valid Supabase access token.
func JWTAuth(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "SUPABASE_JWT_SECRET is not set",
			})
			return
		}

		id, err := identityFromRequest(c, cfg)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: err.Error(),
			})
			return
		}

		setIdentity(c, id)
		c.Next()
	}
}

// OptionalJWT attaches the identity when a valid token is present and lets anonymous
// requests through otherwise. Used on views candidates reach from a shared link.
func OptionalJWT(cfg JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Secret != "" {
			if id, err := identityFromRequest(c, cfg); err == nil {
				setIdentity(c, id)
			}
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*models.Identity)
	return id, ok && id != nil
}

func setIdentity(c *gin.Context, id *models.Identity) {
	c.Set(identityKey, id)
	c.Set("user_id", id.ID)
}

func bearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	// browsers cannot set headers on a websocket handshake
	if websocketUpgrade(c) {
		return strings.TrimSpace(c.Query("access_token"))
	}
	return ""
}

func websocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}

func identityFromRequest(c *gin.Context, cfg JWTConfig) (*models.Identity, error) {
	raw := bearerToken(c)
	if raw == "" {
		return nil, errMissingToken
	}

	claims := &supabaseClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || tok == nil || !tok.Valid {
		return nil, errBadToken
	}

	if cfg.Issuer != "" && claims.Issuer != cfg.Issuer {
		return nil, errors.New("invalid token issuer")
	}
	if cfg.Audience != "" {
		valid := false
		for _, aud := range claims.Audience {
			if aud == cfg.Audience {
				valid = true
				break
			}
		}
		if !valid {
			return nil, errors.New("invalid token audience")
		}
	}

	// Supabase user UUID lives in "sub"
	if claims.Subject == "" {
		return nil, errors.New("missing subject")
	}

	id := &models.Identity{
		ID:    claims.Subject,
		Email: strings.ToLower(strings.TrimSpace(claims.Email)),
		Role:  models.RoleUser,
	}
	if s := stringClaim(claims.AppMetadata, "role"); s != "" {
		id.Role = models.UserRole(s)
	}
	id.Name = stringClaim(claims.UserMetadata, "name")
	if id.Name == "" {
		id.Name = stringClaim(claims.UserMetadata, "full_name")
	}
	id.Picture = stringClaim(claims.UserMetadata, "picture")
	if id.Picture == "" {
		id.Picture = stringClaim(claims.UserMetadata, "avatar_url")
	}
	return id, nil
}

func stringClaim(m map[string]any, k string) string {
	if m == nil {
		return ""
	}
	s, _ := m[k].(string)
	return strings.TrimSpace(s)
}
