package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"monobase/internal/config"
	"monobase/internal/ice"
	"monobase/internal/middleware"
	"monobase/internal/models"
	"monobase/internal/services"
	"monobase/internal/utils"
	"monobase/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	testSecret = "routes-secret"
	testIssuer = "monobase"
)

type memoryCallRepository struct {
	mu    sync.Mutex
	calls map[primitive.ObjectID]models.VideoCall
}

func (r *memoryCallRepository) Create(_ context.Context, call *models.VideoCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	call.ID = primitive.NewObjectID()
	r.calls[call.ID] = *call
	return nil
}

func (r *memoryCallRepository) FindByID(_ context.Context, id primitive.ObjectID) (*models.VideoCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	call, ok := r.calls[id]
	if !ok {
		return nil, services.ErrCallNotFound
	}
	call.Participants = append([]models.CallParticipant(nil), call.Participants...)
	return &call, nil
}

func (r *memoryCallRepository) FindByBooking(_ context.Context, bookingID string) ([]models.VideoCall, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.VideoCall
	for _, call := range r.calls {
		if call.BookingID == bookingID {
			out = append(out, call)
		}
	}
	return out, nil
}

func (r *memoryCallRepository) Update(_ context.Context, call *models.VideoCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls[call.ID].Version != call.Version {
		return services.ErrConcurrentUpdate
	}
	call.Version++
	stored := *call
	stored.Participants = append([]models.CallParticipant(nil), call.Participants...)
	r.calls[call.ID] = stored
	return nil
}

type testServer struct {
	router     *gin.Engine
	iceService *services.IceService
	hub        *websocket.Hub
	dbErr      error
}

func newTestServer(t *testing.T, opts ...func(*config.Config)) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.App.Version = "test"
	cfg.Security.JWT = config.JWTConfig{Secret: testSecret, Issuer: testIssuer}
	cfg.Server.CORS = config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}
	for _, opt := range opts {
		opt(cfg)
	}
	var limiter *middleware.RateLimiter
	if rl := cfg.Security.RateLimit; rl.Enabled {
		limiter = middleware.NewRateLimiter(rl.Requests, rl.Burst, rl.Window)
	}

	servers, err := ice.ParseServers("stun:stun.example.com:3478,turn:user:pass@turn.example.com:3478")
	require.NoError(t, err)

	ts := &testServer{
		router:     gin.New(),
		iceService: services.NewIceService(servers, time.Hour),
		hub:        websocket.NewHub(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go ts.hub.Run(ctx)

	repo := &memoryCallRepository{calls: make(map[primitive.ObjectID]models.VideoCall)}
	callService := services.NewCallService(repo, ts.iceService, ts.hub, 2, time.Second)

	SetupRoutes(ts.router, Dependencies{
		Config:      cfg,
		Hub:         ts.hub,
		IceService:  ts.iceService,
		CallService: callService,
		RateLimiter: limiter,
		HealthCheck: func(context.Context) error { return ts.dbErr },
	})
	return ts
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *utils.APIError `json:"error"`
}

func (ts *testServer) do(t *testing.T, method, path, userID, role string, body interface{}) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		tok, err := utils.GenerateUserJWT(testSecret, testIssuer, userID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

type icePayload struct {
	ICEServers []ice.Server `json:"ice_servers"`
	TTL        int64        `json:"ttl"`
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	ts.dbErr = errors.New("no primary")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetICEServers(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/api/v1/ice-servers", "/api/v1/webrtc/ice-servers"} {
		code, env := ts.do(t, http.MethodGet, path, "u1", "patient", nil)
		require.Equal(t, http.StatusOK, code, path)

		var payload icePayload
		require.NoError(t, json.Unmarshal(env.Data, &payload))
		assert.Equal(t, int64(3600), payload.TTL)
		require.Len(t, payload.ICEServers, 2)
		assert.Equal(t, []string{"turn:turn.example.com:3478"}, payload.ICEServers[1].URLs)
		assert.Equal(t, "user", payload.ICEServers[1].Username)
	}

	code, _ := ts.do(t, http.MethodGet, "/api/v1/webrtc/ice-servers", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUpdateICEServers(t *testing.T) {
	ts := newTestServer(t)

	code, _ := ts.do(t, http.MethodPut, "/api/v1/admin/ice-servers", "u1", "patient",
		map[string]string{"servers": "stun:stun.example.org:3478"})
	assert.Equal(t, http.StatusForbidden, code)

	before := ts.iceService.Servers()
	code, env := ts.do(t, http.MethodPut, "/api/v1/admin/ice-servers", "ops", "admin",
		map[string]string{"servers": "stun:ok.example.org:3478,ftp:bad.example.org:21"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Message, `"ftp:bad.example.org:21"`)
	assert.Equal(t, "INVALID_ICE_SERVER", env.Error.Code)
	assert.Equal(t, "ftp:bad.example.org:21", env.Error.Details["descriptor"])
	assert.Equal(t, before, ts.iceService.Servers())

	code, env = ts.do(t, http.MethodPut, "/api/v1/admin/ice-servers", "ops", "admin",
		map[string]string{"servers": "stun:ok.example.org:notaport"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "ICE_SERVERS_REJECTED", env.Error.Code)
	assert.Equal(t, before, ts.iceService.Servers())

	code, env = ts.do(t, http.MethodPut, "/api/v1/admin/ice-servers", "ops", "admin",
		map[string]string{"servers": "turns:a:b@relay.example.org:5349"})
	require.Equal(t, http.StatusOK, code)
	var payload icePayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Len(t, payload.ICEServers, 1)
	assert.Equal(t, []string{"turns:relay.example.org:5349"}, payload.ICEServers[0].URLs)

	code, _ = ts.do(t, http.MethodPut, "/api/v1/admin/ice-servers", "ops", "admin", map[string]string{"servers": ""})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, ice.DefaultServers(), ts.iceService.Servers())
}

func TestCallLifecycle(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/calls", "dr-who", "provider", map[string]string{"booking_id": "b-1"})
	require.Equal(t, http.StatusCreated, code)
	var call models.VideoCall
	require.NoError(t, json.Unmarshal(env.Data, &call))
	assert.Equal(t, models.CallStatusWaiting, call.Status)
	callPath := "/api/v1/calls/" + call.ID.Hex()

	code, env = ts.do(t, http.MethodPost, callPath+"/join", "patient-1", "patient", map[string]string{"role": "patient"})
	require.Equal(t, http.StatusOK, code)
	var joined struct {
		Call       models.VideoCall `json:"call"`
		ICEServers []ice.Server     `json:"ice_servers"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &joined))
	assert.Equal(t, models.CallStatusActive, joined.Call.Status)
	assert.Len(t, joined.ICEServers, 2)

	code, _ = ts.do(t, http.MethodPost, callPath+"/join", "dr-who", "provider", map[string]string{"role": "provider"})
	require.Equal(t, http.StatusOK, code)

	code, env = ts.do(t, http.MethodPost, callPath+"/join", "intruder", "patient", map[string]string{"role": "observer"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CALL_FULL", env.Error.Code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/calls?booking_id=b-1", "dr-who", "provider", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	code, env = ts.do(t, http.MethodPost, callPath+"/end", "intruder", "patient", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "NOT_PARTICIPANT", env.Error.Code)

	code, env = ts.do(t, http.MethodPost, callPath+"/end", "dr-who", "provider", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &call))
	assert.Equal(t, models.CallStatusEnded, call.Status)

	code, env = ts.do(t, http.MethodPost, callPath+"/leave", "patient-1", "patient", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CALL_ENDED", env.Error.Code)
}

func TestRateLimitPerUser(t *testing.T) {
	ts := newTestServer(t, func(cfg *config.Config) {
		cfg.Security.RateLimit = config.RateLimitConfig{Enabled: true, Requests: 1, Burst: 1, Window: time.Hour}
	})

	code, _ := ts.do(t, http.MethodGet, "/api/v1/calls?booking_id=b-1", "alice", "patient", nil)
	assert.Equal(t, http.StatusOK, code)
	code, env := ts.do(t, http.MethodGet, "/api/v1/calls?booking_id=b-1", "alice", "patient", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Error.Code)

	// same client IP, different token user
	code, _ = ts.do(t, http.MethodGet, "/api/v1/calls?booking_id=b-1", "bob", "patient", nil)
	assert.Equal(t, http.StatusOK, code)

	// the public endpoint is keyed by IP
	code, _ = ts.do(t, http.MethodGet, "/api/v1/ice-servers", "", "", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = ts.do(t, http.MethodGet, "/api/v1/ice-servers", "", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, code)
}

func TestCallRequestErrors(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/calls", "u1", "provider", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "booking_id")

	code, _ = ts.do(t, http.MethodGet, "/api/v1/calls/not-an-id", "u1", "provider", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/calls/"+primitive.NewObjectID().Hex(), "u1", "provider", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "CALL_NOT_FOUND", env.Error.Code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/calls", "u1", "provider", map[string]string{"booking_id": "b"})
	require.Equal(t, http.StatusCreated, code)

	code, env = ts.do(t, http.MethodPost, "/api/v1/calls/"+primitive.NewObjectID().Hex()+"/join", "u1", "provider",
		map[string]string{"role": "surgeon"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error.Details, "role")
}

func TestCallWebSocketRequiresMembership(t *testing.T) {
	ts := newTestServer(t)

	code, env := ts.do(t, http.MethodPost, "/api/v1/calls", "host", "provider", map[string]string{"booking_id": "b-2"})
	require.Equal(t, http.StatusCreated, code)
	var call models.VideoCall
	require.NoError(t, json.Unmarshal(env.Data, &call))

	code, _ = ts.do(t, http.MethodGet, "/ws/calls/"+call.ID.Hex(), "stranger", "patient", nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(t, http.MethodGet, "/ws/calls/"+call.ID.Hex(), "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}
