package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/aicruiter/internal/authz"
	"github.com/yoockh/aicruiter/internal/models"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signed(t *testing.T, claims jwt.MapClaims, method jwt.SigningMethod, key any) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func userClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   "7d1f0c2e-6a43-4b8f-9d2a-2f4c3c1b9e10",
		"email": "Ana@Example.com",
		"aud":   "authenticated",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{
			"full_name":  "Ana Lima",
			"avatar_url": "https://example.com/a.png",
		},
	}
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append(mw, func(c *gin.Context) {
		id, ok := IdentityFrom(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, id)
	})
	r.GET("/x", handlers...)
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth_ValidToken(t *testing.T) {
	r := newRouter(JWTAuth(JWTConfig{Secret: testSecret, Audience: "authenticated"}))

	w := do(r, signed(t, userClaims(), jwt.SigningMethodHS256, []byte(testSecret)))
	require.Equal(t, http.StatusOK, w.Code)

	var id models.Identity
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &id))
	assert.Equal(t, "ana@example.com", id.Email)
	assert.Equal(t, "Ana Lima", id.Name)
	assert.Equal(t, "https://example.com/a.png", id.Picture)
	assert.Equal(t, models.RoleUser, id.Role)
}

func TestJWTAuth_Rejects(t *testing.T) {
	cfg := JWTConfig{Secret: testSecret, Audience: "authenticated"}
	r := newRouter(JWTAuth(cfg))

	expired := userClaims()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()

	wrongAud := userClaims()
	wrongAud["aud"] = "anon"

	noSub := userClaims()
	delete(noSub, "sub")

	tokens := map[string]string{
		"missing":        "",
		"garbage":        "not-a-jwt",
		"wrong secret":   signed(t, userClaims(), jwt.SigningMethodHS256, []byte("another-secret-another-secret-1234")),
		"wrong method":   signed(t, userClaims(), jwt.SigningMethodHS512, []byte(testSecret)),
		"expired":        signed(t, expired, jwt.SigningMethodHS256, []byte(testSecret)),
		"wrong audience": signed(t, wrongAud, jwt.SigningMethodHS256, []byte(testSecret)),
		"no subject":     signed(t, noSub, jwt.SigningMethodHS256, []byte(testSecret)),
	}
	for name, tok := range tokens {
		assert.Equal(t, http.StatusUnauthorized, do(r, tok).Code, name)
	}
}

func TestJWTAuth_MissingSecret(t *testing.T) {
	r := newRouter(JWTAuth(JWTConfig{}))
	assert.Equal(t, http.StatusInternalServerError, do(r, "x").Code)
}

func TestJWTAuth_WebsocketQueryToken(t *testing.T) {
	r := newRouter(JWTAuth(JWTConfig{Secret: testSecret}))

	req := httptest.NewRequest(http.MethodGet, "/x?access_token="+signed(t, userClaims(), jwt.SigningMethodHS256, []byte(testSecret)), nil)
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	// the query fallback is only for websocket handshakes
	req = httptest.NewRequest(http.MethodGet, "/x?access_token=whatever", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWT(t *testing.T) {
	r := newRouter(OptionalJWT(JWTConfig{Secret: testSecret}))

	w := do(r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous": true}`, w.Body.String())

	w = do(r, "not-a-jwt")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous": true}`, w.Body.String())

	w = do(r, signed(t, userClaims(), jwt.SigningMethodHS256, []byte(testSecret)))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ana@example.com")
}

func TestGuard(t *testing.T) {
	cfg := JWTConfig{Secret: testSecret}
	r := newRouter(OptionalJWT(cfg), Guard(authz.ViewDashboard))

	w := do(r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/auth"`)

	w = do(r, signed(t, userClaims(), jwt.SigningMethodHS256, []byte(testSecret)))
	assert.Equal(t, http.StatusOK, w.Code)

	public := newRouter(OptionalJWT(cfg), Guard(authz.ViewInterviewRoom))
	assert.Equal(t, http.StatusOK, do(public, "").Code)
}
