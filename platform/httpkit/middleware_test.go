package httpkit

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lead_pipeline_backend/platform/apperr"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const testJWTSecret = "test-access-secret"

type testJWTConfig struct{}

func (testJWTConfig) GetJWTAccessSecret() string { return testJWTSecret }

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newIdentityRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(testJWTConfig{}), func(c *gin.Context) {
		id := MustGetIdentity(c)
		if id == nil {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"userId":   id.UserID().String(),
			"role":     id.Role(),
			"tenantId": id.TenantID().String(),
		})
	})
	return r
}

func TestAuthRequiredAcceptsValidToken(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	token := signToken(t, jwt.MapClaims{
		"sub":       userID.String(),
		"role":      "crm_commercial",
		"tenant_id": tenantID.String(),
		"type":      "access",
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newIdentityRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	want := fmt.Sprintf(`{"role":"crm_commercial","tenantId":"%s","userId":"%s"}`, tenantID, userID)
	if rec.Body.String() != want {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestAuthRequiredFallsBackToRolesArray(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":       uuid.NewString(),
		"roles":     []string{"admin", "member"},
		"tenant_id": uuid.NewString(),
		"exp":       time.Now().Add(time.Hour).Unix(),
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newIdentityRouter().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"role":"admin"`) {
		t.Fatalf("expected first role to be used, got %s", rec.Body.String())
	}
}

func TestAuthRequiredRejectsInvalidTokens(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"missing tenant", "Bearer " + signToken(t, jwt.MapClaims{
			"sub":  uuid.NewString(),
			"role": "admin",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})},
		{"expired", "Bearer " + signToken(t, jwt.MapClaims{
			"sub":       uuid.NewString(),
			"role":      "admin",
			"tenant_id": uuid.NewString(),
			"exp":       time.Now().Add(-time.Hour).Unix(),
		})},
		{"refresh token", "Bearer " + signToken(t, jwt.MapClaims{
			"sub":       uuid.NewString(),
			"role":      "admin",
			"tenant_id": uuid.NewString(),
			"type":      "refresh",
			"exp":       time.Now().Add(time.Hour).Unix(),
		})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			newIdentityRouter().ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func newSecretRouter(secret string, hits *int) *gin.Engine {
	r := gin.New()
	r.POST("/sweep", SharedSecretRequired("X-Sweep-Secret", secret), func(c *gin.Context) {
		*hits++
		c.Status(http.StatusOK)
	})
	return r
}

func TestSharedSecretRequired(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash secret: %v", err)
	}

	tests := []struct {
		name       string
		configured string
		provided   string
		wantStatus int
	}{
		{"plain match", "s3cret", "s3cret", http.StatusOK},
		{"plain mismatch", "s3cret", "nope", http.StatusUnauthorized},
		{"missing header", "s3cret", "", http.StatusUnauthorized},
		{"bcrypt match", string(hash), "s3cret", http.StatusOK},
		{"bcrypt mismatch", string(hash), "nope", http.StatusUnauthorized},
		{"unconfigured secret", "", "anything", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			hits := 0
			req := httptest.NewRequest(http.MethodPost, "/sweep", nil)
			if tc.provided != "" {
				req.Header.Set("X-Sweep-Secret", tc.provided)
			}
			rec := httptest.NewRecorder()
			newSecretRouter(tc.configured, &hits).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, rec.Code)
			}
			if tc.wantStatus != http.StatusOK && hits != 0 {
				t.Fatal("handler must not run when the secret is rejected")
			}
		})
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.InvalidTransition("no edge"), http.StatusUnprocessableEntity},
		{fmt.Errorf("wrapped: %w", apperr.StaleState("changed")), http.StatusConflict},
		{apperr.Forbidden("nope"), http.StatusForbidden},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		if !HandleError(c, tc.err) {
			t.Fatal("expected error to be handled")
		}
		if rec.Code != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.want, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	if HandleError(c, nil) {
		t.Fatal("expected nil error to be ignored")
	}
}
