package leads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lead_pipeline_backend/internal/events"
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/notification/dispatch"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"
	"lead_pipeline_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testReminderConfig struct{}

func (testReminderConfig) GetReminderIdleThreshold() time.Duration    { return 120 * time.Hour }
func (testReminderConfig) GetReminderSLAWarningWindow() time.Duration { return 48 * time.Hour }
func (testReminderConfig) GetReminderSweepSecret() string             { return "sweep-secret" }
func (testReminderConfig) GetReminderLockTTL() time.Duration          { return time.Minute }

type discardNotifier struct{}

func (discardNotifier) Dispatch(dispatch.Notification) bool { return true }

func newTestModule(store *repository.Memory) *Module {
	log := logger.New("development")
	return NewModule(Deps{
		Repo:     store,
		Notifier: discardNotifier{},
		EventBus: events.NewInMemoryBus(log),
		Config:   testReminderConfig{},
		Log:      log,
		Metrics:  metrics.NewNop(),
	}, validator.New())
}

func TestInternalSweepRouteRequiresSecret(t *testing.T) {
	mod := newTestModule(repository.NewMemory())

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	mod.RegisterRoutes(&apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: v1.Group(""),
	})

	cases := []struct {
		name   string
		secret string
		want   int
	}{
		{name: "missing secret", secret: "", want: http.StatusUnauthorized},
		{name: "wrong secret", secret: "guess", want: http.StatusUnauthorized},
		{name: "configured secret", secret: "sweep-secret", want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/internal/reminders/sweep", nil)
			if tc.secret != "" {
				req.Header.Set(SweepSecretHeader, tc.secret)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRecipientEmailIsTenantScoped(t *testing.T) {
	store := repository.NewMemory()
	org := uuid.New()
	user := store.PutUser(domain.Manager{
		OrganizationID: org,
		Name:           "Ada",
		Email:          "ada@example.com",
		Role:           domain.RoleAccountManagerSmall,
		Active:         true,
	})
	mod := newTestModule(store)

	got, err := mod.RecipientEmail(context.Background(), org, user.ID)
	if err != nil {
		t.Fatalf("RecipientEmail returned error: %v", err)
	}
	if got != "ada@example.com" {
		t.Fatalf("expected ada@example.com, got %q", got)
	}

	_, err = mod.RecipientEmail(context.Background(), uuid.New(), user.ID)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for a foreign tenant, got %v", err)
	}
}
