package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/ksuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/wiredto/pkg/codec"
	"github.com/ssargent/wiredto/pkg/journal"
	"github.com/ssargent/wiredto/pkg/proto"
	"github.com/ssargent/wiredto/pkg/storage"
)

const testAPIKey = "test-key"

type testEnv struct {
	server   *Server
	registry *prometheus.Registry
	handler  http.Handler
	journal  *journal.Writer
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	corpus, err := storage.Open(filepath.Join(dir, "corpus"), 0, codec.DefaultLimits())
	require.NoError(t, err)
	t.Cleanup(func() { corpus.Close() })

	jw, err := journal.NewWriter(journal.WriterConfig{FilePath: filepath.Join(dir, "journal.log")})
	require.NoError(t, err)
	t.Cleanup(func() { jw.Close() })

	reg := prometheus.NewRegistry()
	server := NewServer(corpus, jw, ServerConfig{APIKey: testAPIKey, MaxPayload: 4096}, NewMetrics(reg))
	return &testEnv{
		server:   server,
		registry: reg,
		handler:  NewRouter(server, reg),
		journal:  jw,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)

	var resp APIResponse
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

// decodeData re-decodes resp.Data into out.
func decodeData(t *testing.T, resp APIResponse, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func marshal(t *testing.T, m codec.Message) []byte {
	t.Helper()
	b, err := codec.Marshal(m)
	require.NoError(t, err)
	return b
}

func TestServer_Health(t *testing.T) {
	env := setupTestServer(t)
	w, resp := env.do(t, "GET", "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"status": "healthy"}, resp.Data)
}

func TestServer_RequiresAPIKey(t *testing.T) {
	env := setupTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/types", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest("GET", "/api/v1/types", nil)
	req.Header.Set("X-API-Key", "wrong")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.authRequestsTotal.WithLabelValues(statusError)))
}

func TestServer_ListTypes(t *testing.T) {
	env := setupTestServer(t)
	w, resp := env.do(t, "GET", "/api/v1/types", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var types []TypeInfo
	decodeData(t, resp, &types)
	require.Len(t, types, len(proto.Names()))

	byName := map[string]TypeInfo{}
	for _, ti := range types {
		byName[ti.Name] = ti
	}
	label := byName["AssetLabel"]
	assert.Equal(t, 9, label.FixedBlockSize)
	assert.False(t, label.FixedSize)
	require.Len(t, label.Fields, 2)
	assert.Equal(t, "Name", label.Fields[1].Name)
	assert.True(t, label.Fields[1].Variable)

	assert.True(t, byName["Vector3f"].FixedSize)
}

func TestServer_GetType(t *testing.T) {
	env := setupTestServer(t)

	w, resp := env.do(t, "GET", "/api/v1/types/Color", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ti TypeInfo
	decodeData(t, resp, &ti)
	assert.Equal(t, 3, ti.FixedBlockSize)

	w, resp = env.do(t, "GET", "/api/v1/types/Nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, resp.Success)
}

func TestServer_Sample(t *testing.T) {
	env := setupTestServer(t)
	w, resp := env.do(t, "GET", "/api/v1/types/Trail/sample", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entry CorpusEntryResponse
	decodeData(t, resp, &entry)
	desc, _ := proto.Lookup("Trail")
	assert.Equal(t, marshal(t, desc.Sample()), entry.Payload)
	assert.Equal(t, len(entry.Payload), entry.Size)
}

func TestServer_Validate(t *testing.T) {
	env := setupTestServer(t)
	name := "abc"
	payload := marshal(t, proto.AssetLabel{Weight: 7, Name: &name})

	tests := []struct {
		name     string
		body     []byte
		ok       bool
		kind     string
		consumed int
		trailing int
	}{
		{"valid", payload, true, "", 13, 0},
		{"trailing bytes", append(append([]byte{}, payload...), 0, 0), true, "", 13, 2},
		{"truncated", payload[:5], false, codec.KindInsufficientData.String(), 0, 0},
		{"bad offset", func() []byte {
			b := append([]byte{}, payload...)
			b[5] = 9
			return b
		}(), false, codec.KindMalformedOffset.String(), 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := env.do(t, "POST", "/api/v1/validate/AssetLabel", tt.body)
			require.Equal(t, http.StatusOK, w.Code)
			var vr ValidateResponse
			decodeData(t, resp, &vr)
			assert.Equal(t, tt.ok, vr.OK)
			assert.Equal(t, tt.kind, vr.Kind)
			assert.Equal(t, tt.consumed, vr.BytesConsumed)
			assert.Equal(t, tt.trailing, vr.Trailing)
		})
	}

	counter := env.server.metrics.codecOperationsTotal
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues("AssetLabel", "validate", statusSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues("AssetLabel", "validate", statusError)))
}

func TestServer_ValidateBodyTooLarge(t *testing.T) {
	env := setupTestServer(t)
	w, resp := env.do(t, "POST", "/api/v1/validate/AssetLabel", make([]byte, 5000))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, resp.Success)
}

func TestServer_Decode(t *testing.T) {
	env := setupTestServer(t)
	payload := marshal(t, proto.Trail{ID: 4, Width: 0.5, Points: []proto.Vector3f{{X: 1}, {Y: 2}}})

	w, resp := env.do(t, "POST", "/api/v1/decode/Trail", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var dr struct {
		Type          string      `json:"type"`
		BytesConsumed int         `json:"bytes_consumed"`
		Canonical     bool        `json:"canonical"`
		Value         proto.Trail `json:"value"`
	}
	decodeData(t, resp, &dr)
	assert.Equal(t, "Trail", dr.Type)
	assert.Equal(t, len(payload), dr.BytesConsumed)
	assert.True(t, dr.Canonical)
	assert.Equal(t, int32(4), dr.Value.ID)
	assert.Len(t, dr.Value.Points, 2)

	w, resp = env.do(t, "POST", "/api/v1/decode/Trail", payload[:len(payload)-1])
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, resp.Error, codec.KindInsufficientData.String())
}

func TestServer_DecodeValueNotRepresentableAsJSON(t *testing.T) {
	env := setupTestServer(t)
	payload := marshal(t, proto.Vector3f{X: float32(math.NaN()), Y: 1, Z: 2})

	w, resp := env.do(t, "POST", "/api/v1/validate/Vector3f", payload)
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = env.do(t, "POST", "/api/v1/decode/Vector3f", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotEmpty(t, w.Body.String())
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "cannot be represented as JSON")
}

func TestServer_DecodeUndefinedEnum(t *testing.T) {
	env := setupTestServer(t)
	payload := marshal(t, proto.FluidFog{Mode: proto.TintModeColorLight})
	s, _ := proto.Lookup("FluidFog")
	fd, ok := s.Schema.Field("Mode")
	require.True(t, ok)
	payload[fd.Pos] = 9

	w, resp := env.do(t, "POST", "/api/v1/decode/FluidFog", payload)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, resp.Error, codec.KindUndefinedEnumValue.String())
}

func TestServer_CorpusRoundTrip(t *testing.T) {
	env := setupTestServer(t)
	payload := marshal(t, proto.Color{R: 1, G: 2, B: 3})

	w, resp := env.do(t, "POST", "/api/v1/corpus/Color", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	var created CorpusEntryResponse
	decodeData(t, resp, &created)
	assert.Equal(t, "Color", created.Type)
	assert.Equal(t, 3, created.Size)

	w, resp = env.do(t, "GET", "/api/v1/corpus/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		CorpusEntryResponse
		Value proto.Color `json:"value"`
	}
	decodeData(t, resp, &got)
	assert.Equal(t, payload, got.Payload)
	assert.Equal(t, proto.Color{R: 1, G: 2, B: 3}, got.Value)

	env.server.updateStorageStats()
	assert.Equal(t, 1.0, testutil.ToFloat64(env.server.metrics.corpusEntriesTotal))
}

func TestServer_CorpusErrors(t *testing.T) {
	env := setupTestServer(t)

	w, _ := env.do(t, "POST", "/api/v1/corpus/Color", []byte{1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = env.do(t, "POST", "/api/v1/corpus/Vector3f", append(marshal(t, proto.Vector3f{}), 1))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = env.do(t, "GET", "/api/v1/corpus/not-a-ksuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, "GET", "/api/v1/corpus/"+ksuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_NoCorpusOrJournal(t *testing.T) {
	reg := prometheus.NewRegistry()
	server := NewServer(nil, nil, ServerConfig{APIKey: testAPIKey}, NewMetrics(reg))
	env := &testEnv{server: server, registry: reg, handler: NewRouter(server, reg)}

	w, _ := env.do(t, "POST", "/api/v1/corpus/Color", marshal(t, proto.Color{}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	w, _ = env.do(t, "POST", "/api/v1/journal/Color", marshal(t, proto.Color{}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_JournalAppend(t *testing.T) {
	env := setupTestServer(t)
	payload := marshal(t, proto.Vector3f{X: 1, Y: 2, Z: 3})

	w, resp := env.do(t, "POST", "/api/v1/journal/Vector3f", payload)
	require.Equal(t, http.StatusCreated, w.Code)
	var jr JournalAppendResponse
	decodeData(t, resp, &jr)
	assert.Equal(t, int64(0), jr.Offset)
	assert.Equal(t, 12, jr.Size)
	assert.Greater(t, env.journal.Size(), int64(0))

	w, _ = env.do(t, "POST", "/api/v1/journal/Vector3f", payload[:4])
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	env := setupTestServer(t)
	env.do(t, "GET", "/api/v1/health", nil)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "wiredto_http_requests_total")
	assert.Contains(t, w.Body.String(), "wiredto_health_checks_total")
}
