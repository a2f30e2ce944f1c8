package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"eco-route/algo"
	"eco-route/config"
	"eco-route/db"
	"eco-route/geocode"
	"eco-route/model"
	"eco-route/planner"
	"eco-route/pollution"

	"github.com/gin-gonic/gin"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakePlanner struct {
	res  *planner.RouteResult
	err  error
	from string
	to   string
}

func (f *fakePlanner) Plan(ctx context.Context, from, to string) (*planner.RouteResult, error) {
	f.from, f.to = from, to
	return f.res, f.err
}

type fakeSearcher struct{ matches []geocode.Match }

func (f *fakeSearcher) Search(query string, limit int) []geocode.Match {
	if len(f.matches) > limit {
		return f.matches[:limit]
	}
	return f.matches
}

type fakeStatus struct{}

func (fakeStatus) Status() pollution.Status {
	return pollution.Status{Version: 7, Source: pollution.SourceLive, Provider: "static", Readings: 20}
}

type testServer struct {
	router  *gin.Engine
	planner *fakePlanner
	auth    *Auth
	users   *db.MemoryUserStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	g, err := algo.BuildGraph(&model.MapData{
		Nodes: []model.Node{
			{ID: "palace", Name: "Mysore Palace", Lat: 12.3051, Lng: 76.6551, Type: "area"},
			{ID: "zoo", Name: "Zoo Road", Lat: 12.3045, Lng: 76.6605, Type: "area"},
		},
		Edges: []model.Edge{{From: "palace", To: "zoo"}},
	}, algo.Options{})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}

	fp := &fakePlanner{res: sampleResult()}
	auth := NewAuth(config.AuthConfig{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "eco-route-test"})
	users := db.NewMemoryUserStore()
	h := New(Deps{
		Graph:   g,
		Areas:   []model.Area{{Name: "Mysore Palace", Lat: 12.3051, Lng: 76.6551, AQI: 85, CO2: 180}},
		Planner: fp,
		Locations: &fakeSearcher{matches: []geocode.Match{
			{Name: "Mysore Palace", Lat: 12.3051, Lng: 76.6551, Kind: geocode.MatchPartial},
			{Name: "Zoo Road", Lat: 12.3045, Lng: 76.6605, Kind: geocode.MatchPartial},
		}},
		Pollution: fakeStatus{},
		Users:     users,
		Auth:      auth,
	})
	return &testServer{router: NewRouter(h, []string{"*"}), planner: fp, auth: auth, users: users}
}

func sampleResult() *planner.RouteResult {
	return &planner.RouteResult{
		Shortest: planner.Route{
			Coordinates: [][2]float64{{12.30, 76.64}, {12.3051, 76.6551}},
			Nodes:       []string{"palace"},
			Distance:    1.8,
			AvgAQI:      85,
			AvgCO2:      180,
			EcoScore:    50.2,
			Flagged:     []planner.Waypoint{{Coordinates: [2]float64{12.3051, 76.6551}, AQI: 85, CO2: 180}},
		},
		Eco: planner.Route{
			Coordinates: [][2]float64{{12.30, 76.64}, {12.3045, 76.6605}},
			Nodes:       []string{"zoo"},
			Distance:    2.1,
			AvgAQI:      48,
			AvgCO2:      122,
			EcoScore:    68.4,
		},
		SnapshotVersion: 3,
		SnapshotSource:  pollution.SourceLive,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/signup", map[string]string{
		"name": "Asha", "email": email, "password": "secret123",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body)
	}
	return decode(t, w)["token"].(string)
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/signup", map[string]string{
		"name": "Asha", "email": "asha@example.com", "password": "secret123",
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("signup status = %d, body %s", w.Code, w.Body)
	}
	body := decode(t, w)
	user := body["user"].(map[string]any)
	if body["token"] == "" || user["email"] != "asha@example.com" || user["name"] != "Asha" {
		t.Errorf("signup body = %v", body)
	}
	if _, ok := user["password"]; ok {
		t.Error("password hash leaked in response")
	}

	w = s.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "ASHA@example.com", "password": "secret123",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body)
	}
	if tok, _ := decode(t, w)["token"].(string); tok == "" {
		t.Error("login returned no token")
	}
}

func TestSignup_Errors(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "asha@example.com")

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"duplicate", map[string]string{"name": "A", "email": "asha@example.com", "password": "secret123"}, "Email already registered"},
		{"bad email", map[string]string{"name": "A", "email": "not-an-email", "password": "secret123"}, "valid email"},
		{"short password", map[string]string{"name": "A", "email": "b@example.com", "password": "123"}, "6 characters"},
		{"missing name", map[string]string{"email": "c@example.com", "password": "secret123"}, "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/signup", tt.body, "")
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", w.Code, w.Body)
			}
			if msg := decode(t, w)["message"].(string); !strings.Contains(msg, tt.want) {
				t.Errorf("message = %q, want it to contain %q", msg, tt.want)
			}
		})
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	s := newTestServer(t)
	s.signup(t, "asha@example.com")

	for _, body := range []map[string]string{
		{"email": "asha@example.com", "password": "wrong-password"},
		{"email": "nobody@example.com", "password": "secret123"},
	} {
		w := s.do(t, http.MethodPost, "/api/login", body, "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("login %v: status = %d", body, w.Code)
		}
		if _, ok := decode(t, w)["message"]; !ok {
			t.Errorf("login %v: no message", body)
		}
	}
}

func TestRoute_RequiresToken(t *testing.T) {
	s := newTestServer(t)

	for _, token := range []string{"", "not-a-jwt"} {
		w := s.do(t, http.MethodPost, "/api/route", map[string]string{"from": "a", "to": "b"}, token)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("token %q: status = %d", token, w.Code)
		}
	}
	if s.planner.from != "" {
		t.Error("planner called without authentication")
	}
}

func TestRoute_ExpiredToken(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "asha@example.com")

	s.auth.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	w := s.do(t, http.MethodPost, "/api/route", map[string]string{"from": "a", "to": "b"}, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRoute_OtherSecretRejected(t *testing.T) {
	s := newTestServer(t)
	other := NewAuth(config.AuthConfig{Secret: []byte("another-secret"), TTL: time.Hour, Issuer: "eco-route-test"})
	token, err := other.IssueToken(&model.User{ID: "u1", Email: "x@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	w := s.do(t, http.MethodPost, "/api/route", map[string]string{"from": "a", "to": "b"}, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRoute_OK(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "asha@example.com")

	for _, path := range []string{"/api/route", "/route"} {
		w := s.do(t, http.MethodPost, path, map[string]string{"from": "12.30,76.64", "to": "Zoo Road"}, token)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, body %s", path, w.Code, w.Body)
		}
		body := decode(t, w)
		if body["message"] != "Routes calculated successfully" {
			t.Errorf("message = %v", body["message"])
		}
		shortest := body["shortest_route"].(map[string]any)
		eco := body["eco_route"].(map[string]any)
		for _, key := range []string{"coordinates", "avg_aqi", "avg_co2", "eco_score", "distance"} {
			if _, ok := shortest[key]; !ok {
				t.Errorf("shortest_route missing %s", key)
			}
			if _, ok := eco[key]; !ok {
				t.Errorf("eco_route missing %s", key)
			}
		}
		if pts := shortest["high_aqi_points"].([]any); len(pts) != 1 {
			t.Errorf("high_aqi_points = %v", pts)
		}
		// no low points flagged: still an empty list, not null
		if pts, ok := eco["low_aqi_points"].([]any); !ok || len(pts) != 0 {
			t.Errorf("low_aqi_points = %v", eco["low_aqi_points"])
		}
		first := shortest["coordinates"].([]any)[0].([]any)
		if first[0] != 12.30 || first[1] != 76.64 {
			t.Errorf("first coordinate = %v", first)
		}
	}
	if s.planner.from != "12.30,76.64" || s.planner.to != "Zoo Road" {
		t.Errorf("planner got %q -> %q", s.planner.from, s.planner.to)
	}
}

func TestRoute_ErrorMapping(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "asha@example.com")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("%w: origin: %w", planner.ErrInvalidEndpoints, fmt.Errorf("%w: %q", planner.ErrLocationNotFound, "Atlantis")), http.StatusNotFound},
		{"invalid", fmt.Errorf("%w: origin and destination are the same", planner.ErrInvalidEndpoints), http.StatusBadRequest},
		{"no route", fmt.Errorf("%w: a -> b", planner.ErrNoRouteFound), http.StatusNotFound},
		{"timeout", fmt.Errorf("%w: %w", planner.ErrPlannerTimeout, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.planner.res, s.planner.err = nil, tt.err
			w := s.do(t, http.MethodPost, "/api/route", map[string]string{"from": "a", "to": "b"}, token)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			msg, _ := decode(t, w)["message"].(string)
			if msg == "" {
				t.Error("empty message")
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(msg, "boom") {
				t.Errorf("internal error leaked: %q", msg)
			}
		})
	}
}

func TestRoute_BadBody(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "asha@example.com")

	req := httptest.NewRequest(http.MethodPost, "/api/route", strings.NewReader("{not json"))
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "asha@example.com")

	w := s.do(t, http.MethodGet, "/api/me", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body)
	}
	user := decode(t, w)["user"].(map[string]any)
	if user["email"] != "asha@example.com" {
		t.Errorf("user = %v", user)
	}
}

func TestMapEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/nodes", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["count"] != float64(2) {
		t.Errorf("nodes: %d %s", w.Code, w.Body)
	}

	w = s.do(t, http.MethodGet, "/api/nodes/palace", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("node: %d %s", w.Code, w.Body)
	}
	if nb := decode(t, w)["neighbors"].([]any); len(nb) != 1 || nb[0] != "zoo" {
		t.Errorf("neighbors = %v", nb)
	}

	w = s.do(t, http.MethodGet, "/api/nodes/nowhere", nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("missing node: %d", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/areas", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["count"] != float64(1) {
		t.Errorf("areas: %d %s", w.Code, w.Body)
	}

	w = s.do(t, http.MethodGet, "/api/pollution/status", nil, "")
	if w.Code != http.StatusOK || decode(t, w)["version"] != float64(7) {
		t.Errorf("pollution status: %d %s", w.Code, w.Body)
	}
}

func TestSearchLocations(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/locations/search?q=road&limit=1", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := decode(t, w); body["count"] != float64(1) || body["query"] != "road" {
		t.Errorf("body = %v", body)
	}

	for _, path := range []string{"/api/locations/search", "/api/locations/search?q=road&limit=zero"} {
		if w := s.do(t, http.MethodGet, path, nil, ""); w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", path, w.Code)
		}
	}
}

func TestRequestIDAndPing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/ping", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("ping: %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("no request id generated")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want caller's", got)
	}
}

func TestStatusFor(t *testing.T) {
	both := fmt.Errorf("%w: %w", planner.ErrInvalidEndpoints, planner.ErrLocationNotFound)
	if got := statusFor(both); got != http.StatusNotFound {
		t.Errorf("geocode failure = %d, want 404", got)
	}
	if got := statusFor(fmt.Errorf("wrapped: %w", ErrAuth)); got != http.StatusUnauthorized {
		t.Errorf("auth = %d", got)
	}
}
