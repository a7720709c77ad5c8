package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/repository"
	"github.com/jwalitptl/dental-api/internal/repository/repotest"
	"github.com/jwalitptl/dental-api/pkg/event"
	"github.com/jwalitptl/dental-api/pkg/metrics"
	"github.com/jwalitptl/dental-api/pkg/security"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 4000, Mode: "test"},
		OTP:    config.OTPConfig{Length: 6, ExposeCode: true},
		Auth:   config.AuthConfig{JWTSecret: "test-secret", ExpiryHours: 1},
	}
}

type testServer struct {
	t        *testing.T
	handler  http.Handler
	repos    *repository.Repositories
	recorder *event.Recorder
	token    string
}

func newTestServer(t *testing.T, cfg *config.Config, repos *repository.Repositories) *testServer {
	t.Helper()

	registry := prometheus.NewRegistry()
	recorder := &event.Recorder{}
	a, err := Build(cfg, Dependencies{
		Repos:     repos,
		Publisher: recorder,
		Registry:  registry,
		Metrics:   metrics.New("dental", registry),
	})
	require.NoError(t, err)
	return &testServer{t: t, handler: a.Handler(), repos: repos, recorder: recorder}
}

func (s *testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

// object decodes a JSON object response, failing on a status other than want.
func (s *testServer) object(w *httptest.ResponseRecorder, want int) map[string]interface{} {
	s.t.Helper()
	require.Equal(s.t, want, w.Code, w.Body.String())
	var out map[string]interface{}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) list(w *httptest.ResponseRecorder) []map[string]interface{} {
	s.t.Helper()
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
	var out []map[string]interface{}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *testServer) createClinic(name string) string {
	clinic := s.object(s.do(http.MethodPost, "/api/clinics", map[string]interface{}{"name": name}), http.StatusOK)
	return clinic["id"].(string)
}

func (s *testServer) createPatient(clinicID, name string) string {
	patient := s.object(s.do(http.MethodPost, "/api/patients", map[string]interface{}{
		"clinicId": clinicID,
		"name":     name,
		"phone":    "+15550100",
	}), http.StatusOK)
	return patient["id"].(string)
}

func (s *testServer) createVisit(clinicID, patientID string) string {
	visit := s.object(s.do(http.MethodPost, "/api/visits", map[string]interface{}{
		"clinicId":  clinicID,
		"patientId": patientID,
		"startTime": "2026-10-01T09:00:00Z",
		"endTime":   "2026-10-01T09:30:00Z",
		"services":  []map[string]interface{}{{"serviceId": "service_1", "quantity": 1}},
		"cost":      120,
	}), http.StatusOK)
	return visit["id"].(string)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	health := s.object(s.do(http.MethodGet, "/health", nil), http.StatusOK)
	assert.Equal(t, true, health["ok"])
	assert.NotEmpty(t, health["timestamp"])

	ready := s.object(s.do(http.MethodGet, "/health/ready", nil), http.StatusOK)
	assert.Equal(t, "sqlite", ready["backend"])

	s.object(s.do(http.MethodGet, "/health/live", nil), http.StatusOK)

	w := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dental_http_requests_total")
}

func TestClinicLifecycle(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	id := s.createClinic("Bright Smiles")
	assert.True(t, strings.HasPrefix(id, "clinic_"), id)

	clinics := s.list(s.do(http.MethodGet, "/api/clinics", nil))
	require.Len(t, clinics, 1)
	assert.Equal(t, "Bright Smiles", clinics[0]["name"])

	renamed := s.object(s.do(http.MethodPost, "/api/clinics", map[string]interface{}{"id": id, "name": "Brighter Smiles"}), http.StatusOK)
	assert.Equal(t, id, renamed["id"])
	assert.Equal(t, clinics[0]["createdAt"], renamed["createdAt"])

	errBody := s.object(s.do(http.MethodGet, "/api/clinics/clinic_missing", nil), http.StatusNotFound)
	assert.Equal(t, "error", errBody["status"])
	assert.Equal(t, "clinic not found", errBody["message"])

	errBody = s.object(s.do(http.MethodPost, "/api/clinics", map[string]interface{}{"name": "  "}), http.StatusBadRequest)
	assert.Equal(t, "name is required", errBody["message"])

	deleted := s.object(s.do(http.MethodDelete, "/api/clinics?id="+id, nil), http.StatusOK)
	assert.Equal(t, true, deleted["success"])
	assert.Empty(t, s.list(s.do(http.MethodGet, "/api/clinics", nil)))

	assert.Contains(t, s.recorder.Types(), event.TypeFor(model.EntityClinic, event.ActionDeleted))
}

func TestMalformedBodyIsBadRequest(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	req := httptest.NewRequest(http.MethodPost, "/api/clinics", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	body := s.object(w, http.StatusBadRequest)
	assert.Equal(t, "error", body["status"])
}

func TestPaymentsDriveVisitTotals(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	clinicID := s.createClinic("Totals")
	patientID := s.createPatient(clinicID, "Ana")
	visitID := s.createVisit(clinicID, patientID)

	var paymentIDs []string
	for i := 0; i < 2; i++ {
		p := s.object(s.do(http.MethodPost, "/api/payments", map[string]interface{}{
			"visitId": visitID,
			"amount":  50,
			"method":  "cash",
		}), http.StatusOK)
		assert.Equal(t, clinicID, p["clinicId"])
		paymentIDs = append(paymentIDs, p["id"].(string))
	}
	s.object(s.do(http.MethodPost, "/api/payments", map[string]interface{}{
		"visitId": visitID,
		"amount":  25,
		"method":  "ewallet",
	}), http.StatusOK)

	visit := s.object(s.do(http.MethodGet, "/api/visits/"+visitID, nil), http.StatusOK)
	assert.InDelta(t, 100, visit["cashAmount"], 0.001)
	assert.InDelta(t, 25, visit["ewalletAmount"], 0.001)

	payments := s.list(s.do(http.MethodGet, "/api/payments?visitId="+visitID, nil))
	assert.Len(t, payments, 3)

	deleted := s.object(s.do(http.MethodDelete, "/api/payments/"+paymentIDs[0], nil), http.StatusOK)
	assert.Equal(t, true, deleted["success"])

	visit = s.object(s.do(http.MethodGet, "/api/visits/"+visitID, nil), http.StatusOK)
	assert.InDelta(t, 50, visit["cashAmount"], 0.001)

	s.object(s.do(http.MethodDelete, "/api/payments/"+paymentIDs[0], nil), http.StatusNotFound)

	body := s.object(s.do(http.MethodPost, "/api/payments", map[string]interface{}{
		"visitId": "visit_missing",
		"amount":  10,
		"method":  "cash",
	}), http.StatusNotFound)
	assert.Equal(t, "visit not found", body["message"])

	s.object(s.do(http.MethodPost, "/api/payments", map[string]interface{}{
		"visitId": visitID,
		"amount":  10,
		"method":  "cheque",
	}), http.StatusBadRequest)

	assert.Contains(t, s.recorder.Types(), event.VisitTotalsUpdated)
}

func TestVisitStatusEndpoint(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	clinicID := s.createClinic("Status")
	visitID := s.createVisit(clinicID, s.createPatient(clinicID, "Ben"))

	visit := s.object(s.do(http.MethodPost, "/api/visits/"+visitID+"/status?status=completed", nil), http.StatusOK)
	assert.Equal(t, "completed", visit["status"])

	visit = s.object(s.do(http.MethodPost, "/api/visits/"+visitID+"/status", map[string]string{"status": "cancelled"}), http.StatusOK)
	assert.Equal(t, "cancelled", visit["status"])

	s.object(s.do(http.MethodPost, "/api/visits/"+visitID+"/status?status=lost", nil), http.StatusBadRequest)
	s.object(s.do(http.MethodPost, "/api/visits/"+visitID+"/status", nil), http.StatusBadRequest)
	s.object(s.do(http.MethodPost, "/api/visits/visit_missing/status?status=completed", nil), http.StatusNotFound)
}

func TestScopedDeleteRequiresMatchingClinic(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	clinicA := s.createClinic("A")
	clinicB := s.createClinic("B")
	patientID := s.createPatient(clinicA, "Cleo")

	s.object(s.do(http.MethodDelete, "/api/patients?id="+patientID+"&clinicId="+clinicB, nil), http.StatusNotFound)

	body := s.object(s.do(http.MethodDelete, "/api/patients?id="+patientID, nil), http.StatusBadRequest)
	assert.Equal(t, "missing id or clinicId", body["message"])

	assert.Len(t, s.list(s.do(http.MethodGet, "/api/patients?clinicId="+clinicA, nil)), 1)
	assert.Empty(t, s.list(s.do(http.MethodGet, "/api/patients?clinicId="+clinicB, nil)))

	s.object(s.do(http.MethodDelete, "/api/patients?id="+patientID+"&clinicId="+clinicA, nil), http.StatusOK)
	assert.Empty(t, s.list(s.do(http.MethodGet, "/api/patients?clinicId="+clinicA, nil)))
}

func TestOTPFlow(t *testing.T) {
	s := newTestServer(t, testConfig(), repotest.SQLite(t))

	sent := s.object(s.do(http.MethodPost, "/api/users/otp/send", map[string]string{"phone": "+15550101"}), http.StatusOK)
	assert.Equal(t, "OTP sent successfully", sent["message"])
	code, _ := sent["otp"].(string)
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	rejected := s.object(s.do(http.MethodPost, "/api/users/otp/verify", map[string]string{"phone": "+15550101", "otp": wrong}), http.StatusOK)
	assert.Equal(t, false, rejected["verified"])

	verified := s.object(s.do(http.MethodPost, "/api/users/otp/verify", map[string]string{"phone": "+15550101", "otp": code}), http.StatusOK)
	assert.Equal(t, true, verified["verified"])

	s.object(s.do(http.MethodPost, "/api/users/otp/send", map[string]string{}), http.StatusBadRequest)
}

func TestAuthProtectsAPI(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Enabled = true
	repos := repotest.SQLite(t)
	ctx := context.Background()

	hash, err := security.NewBcryptHasher(bcrypt.MinCost).Hash("s3cret-pass")
	require.NoError(t, err)
	require.NoError(t, repos.Clinics.Upsert(ctx, &model.Clinic{ID: "clinic_1", Name: "Secure", CreatedAt: model.Now()}))
	require.NoError(t, repos.Users.Upsert(ctx, &model.User{
		ClinicScoped: model.ClinicScoped{ID: "user_1", ClinicID: "clinic_1"},
		Email:        "admin@example.com",
		Password:     hash,
		Role:         model.UserRoleAdmin,
		CreatedAt:    model.Now(),
	}))

	s := newTestServer(t, cfg, repos)

	body := s.object(s.do(http.MethodGet, "/api/clinics", nil), http.StatusUnauthorized)
	assert.Equal(t, "error", body["status"])

	s.object(s.do(http.MethodPost, "/api/users/login", map[string]string{
		"email":    "admin@example.com",
		"password": "wrong-pass",
	}), http.StatusUnauthorized)

	login := s.object(s.do(http.MethodPost, "/api/users/login", map[string]string{
		"email":    "ADMIN@example.com",
		"password": "s3cret-pass",
	}), http.StatusOK)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)
	user := login["user"].(map[string]interface{})
	assert.NotContains(t, user, "password")

	s.token = token
	clinics := s.list(s.do(http.MethodGet, "/api/clinics", nil))
	assert.Len(t, clinics, 1)

	s.token = "garbage"
	s.object(s.do(http.MethodGet, "/api/clinics", nil), http.StatusUnauthorized)
	s.object(s.do(http.MethodGet, "/health", nil), http.StatusOK)
}

func TestSheetsBackendServesSameAPI(t *testing.T) {
	repos, fake := repotest.Sheets(t)
	s := newTestServer(t, testConfig(), repos)

	clinicID := s.createClinic("Sheet Clinic")
	patientID := s.createPatient(clinicID, "Dana")

	patients := s.list(s.do(http.MethodGet, "/api/patients?clinicId="+clinicID, nil))
	require.Len(t, patients, 1)
	assert.Equal(t, patientID, patients[0]["id"])
	assert.Equal(t, "active", patients[0]["status"])

	assert.Len(t, fake.Rows("Patients"), 2)

	ready := s.object(s.do(http.MethodGet, "/health/ready", nil), http.StatusOK)
	assert.Equal(t, "sheets", ready["backend"])
}

func TestBuildRequiresRepositories(t *testing.T) {
	_, err := Build(testConfig(), Dependencies{})
	assert.Error(t, err)
}
