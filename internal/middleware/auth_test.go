package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, secret string, userID uuid.UUID, username, role string, expire time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id":  userID.String(),
		"username": username,
		"role":     role,
		"exp":      time.Now().Add(expire).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshaling %q: %v", rec.Body.String(), err)
	}
	return body.Detail
}

func TestAPIKeyAuth(t *testing.T) {
	tests := []struct {
		name       string
		apiKey     string
		isDev      bool
		header     string
		wantStatus int
		wantDetail string
	}{
		{"valid key", "secret-key", false, "secret-key", http.StatusOK, ""},
		{"missing key", "secret-key", false, "", http.StatusUnauthorized, "Missing API key"},
		{"wrong key", "secret-key", false, "nope", http.StatusForbidden, "Invalid API key"},
		{"dev bypass with empty key", "", true, "", http.StatusOK, ""},
		{"prod requires key even when unset", "", false, "", http.StatusUnauthorized, "Missing API key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/", APIKeyAuth(tt.apiKey, tt.isDev), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantDetail != "" && detailOf(t, rec) != tt.wantDetail {
				t.Fatalf("detail = %q, want %q", detailOf(t, rec), tt.wantDetail)
			}
		})
	}
}

func authTestRouter(secret, apiKey string, isDev bool) *gin.Engine {
	r := gin.New()
	r.GET("/", Authenticate(secret, apiKey, isDev), func(c *gin.Context) {
		role, _ := c.Get("role")
		mode, _ := c.Get("auth_mode")
		c.JSON(http.StatusOK, gin.H{"role": role, "auth_mode": mode, "actor": ActorName(c)})
	})
	return r
}

func TestAuthenticateJWT(t *testing.T) {
	const secret = "test-secret"
	userID := uuid.New()
	r := authTestRouter(secret, "api-key-value", false)

	token := signToken(t, secret, userID, "alice", "user", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["role"] != "user" || body["auth_mode"] != "jwt" || body["actor"] != "alice" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthenticateRejectsBadTokens(t *testing.T) {
	const secret = "test-secret"
	r := authTestRouter(secret, "api-key-value", false)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong secret", signToken(t, "other-secret", uuid.New(), "bob", "admin", time.Hour)},
		{"expired", signToken(t, secret, uuid.New(), "bob", "admin", -time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			if detailOf(t, rec) != "Authentication required" {
				t.Fatalf("detail = %q", detailOf(t, rec))
			}
		})
	}
}

func TestAuthenticateAPIKey(t *testing.T) {
	r := authTestRouter("secret", "api-key-value", false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "api-key-value")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["role"] != "admin" || body["auth_mode"] != "api_key" || body["actor"] != "api-key" {
		t.Fatalf("body = %v", body)
	}
}

func TestAuthenticateWrongAPIKey(t *testing.T) {
	r := authTestRouter("secret", "api-key-value", false)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "wrong")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if detailOf(t, rec) != "Invalid API key" {
		t.Fatalf("detail = %q", detailOf(t, rec))
	}
}

func TestAuthenticateNoCredentials(t *testing.T) {
	r := authTestRouter("secret", "api-key-value", false)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if detailOf(t, rec) != "Authentication required" {
		t.Fatalf("detail = %q", detailOf(t, rec))
	}
}

func TestAuthenticateDevBypass(t *testing.T) {
	r := authTestRouter("secret", "", true)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["role"] != "admin" || body["auth_mode"] != "dev" {
		t.Fatalf("body = %v", body)
	}
}

func TestRequireRole(t *testing.T) {
	router := func(role string) *gin.Engine {
		r := gin.New()
		r.GET("/", func(c *gin.Context) {
			if role != "" {
				c.Set("role", role)
			}
		}, RequireRole("admin", "user"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	tests := []struct {
		role       string
		wantStatus int
	}{
		{"admin", http.StatusOK},
		{"user", http.StatusOK},
		{"viewer", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		router(tt.role).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != tt.wantStatus {
			t.Errorf("role %q: status = %d, want %d", tt.role, rec.Code, tt.wantStatus)
		}
	}

	rec := httptest.NewRecorder()
	router("viewer").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if detailOf(t, rec) != "Insufficient permissions" {
		t.Fatalf("detail = %q", detailOf(t, rec))
	}
}
