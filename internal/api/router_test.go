package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gatherguru/server/internal/auth"
	"github.com/gatherguru/server/internal/config"
	"github.com/gatherguru/server/internal/domain/events"
	"github.com/gatherguru/server/internal/domain/principals"
	"github.com/gatherguru/server/internal/upload"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memoryPrincipals struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*principals.Principal
}

func (r *memoryPrincipals) Create(_ context.Context, p *principals.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Email == p.Email {
			return principals.ErrEmailTaken
		}
	}
	clone := *p
	r.byID[p.ID] = &clone
	return nil
}

func (r *memoryPrincipals) GetByID(_ context.Context, id primitive.ObjectID) (*principals.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byID[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, principals.ErrNotFound
}

func (r *memoryPrincipals) GetByEmail(_ context.Context, email string) (*principals.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if p.Email == email {
			clone := *p
			return &clone, nil
		}
	}
	return nil, principals.ErrNotFound
}

func (r *memoryPrincipals) Update(_ context.Context, p *principals.Principal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[p.ID]; !ok {
		return principals.ErrNotFound
	}
	clone := *p
	r.byID[p.ID] = &clone
	return nil
}

type memoryEvents struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*events.Event
}

func (r *memoryEvents) Create(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *event
	r.byID[event.ID] = &clone
	return nil
}

func (r *memoryEvents) GetByID(_ context.Context, id primitive.ObjectID) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if event, ok := r.byID[id]; ok {
		clone := *event
		return &clone, nil
	}
	return nil, events.ErrNotFound
}

func (r *memoryEvents) Update(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[event.ID]; !ok {
		return events.ErrNotFound
	}
	clone := *event
	r.byID[event.ID] = &clone
	return nil
}

func (r *memoryEvents) ListPublished(_ context.Context, filters events.Filters) ([]*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*events.Event{}
	for _, event := range r.byID {
		if !event.Published {
			continue
		}
		if filters.Category != "" && event.Category != filters.Category {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(event.Title), strings.ToLower(filters.Query)) {
			continue
		}
		clone := *event
		out = append(out, &clone)
	}
	return out, nil
}

func (r *memoryEvents) ListByOrganizer(_ context.Context, organizerID primitive.ObjectID) ([]*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*events.Event{}
	for _, event := range r.byID {
		if event.OrganizerID == organizerID {
			clone := *event
			out = append(out, &clone)
		}
	}
	return out, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	cfg := config.Config{
		Server: config.ServerConfig{MaxBodySize: 5 << 20},
		Auth: config.AuthConfig{
			JWTSecret:  "router-test-secret",
			JWTExpiry:  time.Hour,
			CookieName: "token",
		},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		RateLimit:   config.RateLimitConfig{MaxRequests: 1000, Window: time.Minute},
		Environment: "test",
	}

	logger := zerolog.Nop()
	principalsRepo := &memoryPrincipals{byID: make(map[primitive.ObjectID]*principals.Principal)}
	eventsRepo := &memoryEvents{byID: make(map[primitive.ObjectID]*events.Event)}
	uploadsDir := t.TempDir()

	return NewRouter(Deps{
		Config:     cfg,
		Logger:     logger,
		Principals: principals.NewService(principalsRepo, logger),
		Events:     events.NewService(eventsRepo, logger),
		Tokens:     auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry),
		Store:      principalsRepo,
		Uploader:   upload.NewLocalUploader(uploadsDir, logger),
		UploadsDir: uploadsDir,
	})
}

func doJSON(handler http.Handler, method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "token" && cookie.Value != "" {
			require.True(t, cookie.HttpOnly)
			return cookie
		}
	}
	t.Fatal("no session cookie in response")
	return nil
}

func multipartImage(t *testing.T, field, filename, content string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return &buf, writer.FormDataContentType()
}

func registerAndLogin(t *testing.T, handler http.Handler, prefix, email string) *http.Cookie {
	t.Helper()

	rec := doJSON(handler, http.MethodPost, prefix+"/register", map[string]string{
		"name":     "Test Account",
		"email":    email,
		"password": "strong-password-1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(handler, http.MethodPost, prefix+"/login", map[string]string{
		"email":    email,
		"password": "strong-password-1",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return sessionCookie(t, rec)
}

func createDraft(t *testing.T, handler http.Handler, cookie *http.Cookie) string {
	t.Helper()

	start := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	rec := doJSON(handler, http.MethodPost, "/api/events", map[string]any{
		"title":     "Jazz Night",
		"category":  "music",
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(3 * time.Hour).Format(time.RFC3339),
	}, []*http.Cookie{cookie})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created events.Event
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	return "/api/events/" + created.ID.Hex()
}

func uploadBanner(handler http.Handler, t *testing.T, eventPath string, cookie *http.Cookie, content string) *httptest.ResponseRecorder {
	t.Helper()

	body, contentType := multipartImage(t, "eventBanner", "banner.png", content)
	req := httptest.NewRequest(http.MethodPatch, eventPath+"/banner", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestBannerUploadSizeBoundary(t *testing.T) {
	handler := newTestRouter(t)
	cookie := registerAndLogin(t, handler, "/api/organizer", "organizer@example.com")
	eventPath := createDraft(t, handler, cookie)

	// A file at exactly the size cap passes; multipart framing must not
	// push it over the transport body limit.
	rec := uploadBanner(handler, t, eventPath, cookie, strings.Repeat("x", int(upload.MaxFileSize)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// One byte over is rejected by upload validation, not the transport.
	rec = uploadBanner(handler, t, eventPath, cookie, strings.Repeat("x", int(upload.MaxFileSize)+1))
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), "5MB")
}

func TestJSONBodyCap(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(handler, http.MethodPost, "/api/login", map[string]string{
		"email":    "a@example.com",
		"password": strings.Repeat("x", 6<<20),
	}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOrganizerEventFlow(t *testing.T) {
	handler := newTestRouter(t)
	cookie := registerAndLogin(t, handler, "/api/organizer", "organizer@example.com")

	// Create the draft.
	start := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	rec := doJSON(handler, http.MethodPost, "/api/events", map[string]any{
		"title":     "Jazz Night",
		"category":  "music",
		"location":  "Blue Note",
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(3 * time.Hour).Format(time.RFC3339),
	}, []*http.Cookie{cookie})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created events.Event
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &created))
	eventPath := "/api/events/" + created.ID.Hex()

	// Draft is invisible to the public route.
	rec = doJSON(handler, http.MethodGet, eventPath, nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Publish is rejected until banner and ticketing exist.
	rec = doJSON(handler, http.MethodPatch, eventPath+"/publish", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	// Attach the banner via multipart upload.
	body, contentType := multipartImage(t, "eventBanner", "banner.png", "png-bytes")
	req := httptest.NewRequest(http.MethodPatch, eventPath+"/banner", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	bannerRec := httptest.NewRecorder()
	handler.ServeHTTP(bannerRec, req)
	require.Equal(t, http.StatusOK, bannerRec.Code, bannerRec.Body.String())

	var withBanner events.Event
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, bannerRec).Data, &withBanner))
	require.NotNil(t, withBanner.Banner)
	require.True(t, strings.HasPrefix(withBanner.Banner.URL, "/uploads/event-banners/"))

	// Uploaded banner is served by the static route.
	rec = doJSON(handler, http.MethodGet, withBanner.Banner.URL, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "png-bytes", rec.Body.String())

	// Ticketing, then publish.
	rec = doJSON(handler, http.MethodPatch, eventPath+"/ticketing", map[string]any{
		"type": "paid", "price": 25, "capacity": 100,
	}, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(handler, http.MethodPatch, eventPath+"/publish", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Now publicly visible.
	rec = doJSON(handler, http.MethodGet, eventPath, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var published events.Event
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &published))
	require.True(t, published.Published)

	// And listed for its organizer.
	rec = doJSON(handler, http.MethodGet, "/api/events/organizer/events", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	var list []*events.Event
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &list))
	require.Len(t, list, 1)
}

func TestEventRoutesRequireOrganizer(t *testing.T) {
	handler := newTestRouter(t)

	// No session at all.
	rec := doJSON(handler, http.MethodPost, "/api/events", map[string]any{"title": "x"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// A plain user session is authenticated but not an organizer.
	userCookie := registerAndLogin(t, handler, "/api", "user@example.com")
	rec = doJSON(handler, http.MethodPost, "/api/events", map[string]any{"title": "x"}, []*http.Cookie{userCookie})
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRoleRoutesAreSeparate(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(handler, http.MethodPost, "/api/organizer/register", map[string]string{
		"name": "Org", "email": "org@example.com", "password": "strong-password-1",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Organizer credentials do not work on the user login route.
	rec = doJSON(handler, http.MethodPost, "/api/login", map[string]string{
		"email": "org@example.com", "password": "strong-password-1",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileRoutes(t *testing.T) {
	handler := newTestRouter(t)
	cookie := registerAndLogin(t, handler, "/api", "user@example.com")

	rec := doJSON(handler, http.MethodGet, "/api/profile", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	var profile principals.Principal
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &profile))
	require.Equal(t, "user@example.com", profile.Email)
	require.NotContains(t, rec.Body.String(), "password")

	rec = doJSON(handler, http.MethodPut, "/api/profile", map[string]string{
		"name": "Renamed", "email": "user@example.com",
	}, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Logout clears the cookie.
	rec = doJSON(handler, http.MethodPost, "/api/logout", nil, []*http.Cookie{cookie})
	require.Equal(t, http.StatusOK, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			require.Empty(t, c.Value)
			require.Negative(t, c.MaxAge)
		}
	}
}

func TestProfileImageUpload(t *testing.T) {
	handler := newTestRouter(t)
	cookie := registerAndLogin(t, handler, "/api", "user@example.com")

	body, contentType := multipartImage(t, "profileImage", "me.png", "selfie-bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/profile/image", body)
	req.Header.Set("Content-Type", contentType)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var profile principals.Principal
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &profile))
	require.NotNil(t, profile.ProfileImage)
	require.True(t, strings.HasPrefix(profile.ProfileImage.URL, "/uploads/profile-images/"))
}

func TestPublicDiscoveryRoutes(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(handler, http.MethodGet, "/api/events/categories", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var categories []string
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, rec).Data, &categories))
	require.Contains(t, categories, "music")

	for _, path := range []string{
		"/api/events/all",
		"/api/events/popular",
		"/api/events/search?q=jazz",
		"/api/events/category/music",
	} {
		rec := doJSON(handler, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = doJSON(handler, http.MethodGet, "/api/events/category/esports", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndDiagnostics(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(handler, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "OK", health["status"])
	require.Contains(t, health, "memory")
	require.Contains(t, health, "storage")

	rec = doJSON(handler, http.MethodGet, "/api/test", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "API endpoint is working!")

	rec = doJSON(handler, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	handler := newTestRouter(t)

	rec := doJSON(handler, http.MethodGet, "/api/nonsense", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Route not found"}`, rec.Body.String())
}

func TestRouterRateLimit(t *testing.T) {
	handler := newTestRouterWithRateLimit(t, 2)

	req := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/api/events/all", nil)
		r.RemoteAddr = "203.0.113.50:1111"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	require.Equal(t, http.StatusOK, req().Code)
	require.Equal(t, http.StatusOK, req().Code)
	require.Equal(t, http.StatusTooManyRequests, req().Code)
}

func newTestRouterWithRateLimit(t *testing.T, maxRequests int) http.Handler {
	t.Helper()

	logger := zerolog.Nop()
	principalsRepo := &memoryPrincipals{byID: make(map[primitive.ObjectID]*principals.Principal)}
	eventsRepo := &memoryEvents{byID: make(map[primitive.ObjectID]*events.Event)}

	return NewRouter(Deps{
		Config: config.Config{
			Server:      config.ServerConfig{MaxBodySize: 5 << 20},
			Auth:        config.AuthConfig{JWTSecret: "router-test-secret", JWTExpiry: time.Hour, CookieName: "token"},
			RateLimit:   config.RateLimitConfig{MaxRequests: maxRequests, Window: time.Minute},
			Environment: "test",
		},
		Logger:     logger,
		Principals: principals.NewService(principalsRepo, logger),
		Events:     events.NewService(eventsRepo, logger),
		Tokens:     auth.NewJWTManager("router-test-secret", time.Hour),
		Store:      principalsRepo,
		Uploader:   upload.NewLocalUploader(t.TempDir(), logger),
	})
}
