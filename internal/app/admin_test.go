package app

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/paul-minniti/XPoster/internal/generator/mocks"
	settingsrepo "github.com/paul-minniti/XPoster/internal/repositories/settings"
	"github.com/paul-minniti/XPoster/internal/settings"
	"github.com/paul-minniti/XPoster/pkg/errors"
	"github.com/paul-minniti/XPoster/pkg/logger"
	"go.uber.org/mock/gomock"
)

const testKey = "sk-abcdefghijklmnopqrstuvwxyz0123456789ABCD"

type fakeRepo struct {
	values map[string]string
}

func (f *fakeRepo) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", settingsrepo.ErrNotFound
	}
	return v, nil
}

func (f *fakeRepo) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func newTestMux(t *testing.T, gen *mocks.MockClient, stored map[string]string) (*http.ServeMux, *fakeRepo) {
	t.Helper()
	if stored == nil {
		stored = make(map[string]string)
	}
	repo := &fakeRepo{values: stored}
	log := logger.New(logger.Opts{})
	svc := settings.New(settings.Opts{Repo: repo, Logger: log})
	return newAdminMux(log, svc, gen), repo
}

func do(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("response is not JSON: %v (%q)", err, rec.Body.String())
	}
	return out
}

func TestHealthz(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, _ := newTestMux(t, mocks.NewMockClient(ctrl), nil)

	rec := do(t, mux, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGetSettingsReportsStoredState(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, _ := newTestMux(t, mocks.NewMockClient(ctrl), map[string]string{
		settings.KeyAPIKey:       base64.StdEncoding.EncodeToString([]byte(testKey)),
		settings.KeySystemPrompt: "be brief",
	})

	rec := do(t, mux, http.MethodGet, "/settings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	out := decodeResult(t, rec)
	if out["hasApiKey"] != true {
		t.Error("hasApiKey = false, want true")
	}
	if out["systemPrompt"] != "be brief" {
		t.Errorf("systemPrompt = %v", out["systemPrompt"])
	}
}

func TestSaveAPIKeyStoresObfuscated(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, repo := newTestMux(t, mocks.NewMockClient(ctrl), nil)

	rec := do(t, mux, http.MethodPost, "/settings/api-key", `{"apiKey":"`+testKey+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	stored := repo.values[settings.KeyAPIKey]
	if stored == testKey {
		t.Error("key stored in the clear")
	}
	decoded, err := base64.StdEncoding.DecodeString(stored)
	if err != nil || string(decoded) != testKey {
		t.Errorf("stored = %q, decode err = %v", stored, err)
	}
}

func TestSaveAPIKeyRejectsBadFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, repo := newTestMux(t, mocks.NewMockClient(ctrl), nil)

	rec := do(t, mux, http.MethodPost, "/settings/api-key", `{"apiKey":"not-a-key"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeResult(t, rec); out["success"] != false || out["error"] == "" {
		t.Errorf("response = %v", out)
	}
	if _, ok := repo.values[settings.KeyAPIKey]; ok {
		t.Error("invalid key was stored")
	}
}

func TestSaveAPIKeyEmptyClears(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, repo := newTestMux(t, mocks.NewMockClient(ctrl), map[string]string{
		settings.KeyAPIKey: base64.StdEncoding.EncodeToString([]byte(testKey)),
	})

	rec := do(t, mux, http.MethodPost, "/settings/api-key", `{"apiKey":""}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, ok := repo.values[settings.KeyAPIKey]; ok {
		t.Error("key was not cleared")
	}
}

func TestSaveSystemPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, repo := newTestMux(t, mocks.NewMockClient(ctrl), nil)

	rec := do(t, mux, http.MethodPost, "/settings/system-prompt", `{"systemPrompt":"answer in haiku"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if repo.values[settings.KeySystemPrompt] != "answer in haiku" {
		t.Errorf("stored prompt = %q", repo.values[settings.KeySystemPrompt])
	}
}

func TestTestConnectionUsesBodyKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockClient(ctrl)
	gen.EXPECT().TestConnection(gomock.Any(), testKey).Return(nil)
	mux, _ := newTestMux(t, gen, nil)

	rec := do(t, mux, http.MethodPost, "/settings/test", `{"apiKey":"`+testKey+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if out := decodeResult(t, rec); out["success"] != true {
		t.Errorf("response = %v", out)
	}
}

func TestTestConnectionFallsBackToStoredKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockClient(ctrl)
	gen.EXPECT().TestConnection(gomock.Any(), testKey).Return(nil)
	mux, _ := newTestMux(t, gen, map[string]string{
		settings.KeyAPIKey: base64.StdEncoding.EncodeToString([]byte(testKey)),
	})

	rec := do(t, mux, http.MethodPost, "/settings/test", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestTestConnectionWithoutAnyKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, _ := newTestMux(t, mocks.NewMockClient(ctrl), nil)

	rec := do(t, mux, http.MethodPost, "/settings/test", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestTestConnectionMapsAuthFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	gen := mocks.NewMockClient(ctrl)
	gen.EXPECT().TestConnection(gomock.Any(), testKey).
		Return(errors.New(errors.KindAuth, "Invalid API key"))
	mux, _ := newTestMux(t, gen, nil)

	rec := do(t, mux, http.MethodPost, "/settings/test", `{"apiKey":"`+testKey+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if out := decodeResult(t, rec); out["error"] != "Invalid API key" {
		t.Errorf("response = %v", out)
	}
}

func TestSettingsEndpointsRejectWrongMethod(t *testing.T) {
	ctrl := gomock.NewController(t)
	mux, _ := newTestMux(t, mocks.NewMockClient(ctrl), nil)

	for _, path := range []string{"/settings/api-key", "/settings/system-prompt", "/settings/test"} {
		rec := do(t, mux, http.MethodGet, path, "")
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("GET %s = %d, want 405", path, rec.Code)
		}
	}
	if rec := do(t, mux, http.MethodPost, "/settings", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /settings = %d, want 405", rec.Code)
	}
}
