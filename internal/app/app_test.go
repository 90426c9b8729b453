package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statementcheck/internal/config"
	"statementcheck/internal/shared/testutil"
	"statementcheck/pkg/contracts/domain"
	"statementcheck/pkg/contracts/events"
)

func newTestApp(t *testing.T, mutate func(*config.Config)) *Application {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	logger, _ := testutil.NewTestLogger(t)
	a, err := newApplication(cfg, logger)
	require.NoError(t, err)
	return a
}

type part struct {
	field string
	name  string
	data  []byte
}

func multipartRequest(t *testing.T, url string, parts []part, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, p := range parts {
		fw, err := w.CreateFormFile(p.field, p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestNewApplication_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Port = -1
	logger, _ := testutil.NewTestLogger(t)

	_, err := newApplication(cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRouter_Routes(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	tests := []struct {
		name        string
		method      string
		path        string
		wantStatus  int
		wantContent string
	}{
		{name: "health", method: http.MethodGet, path: "/api/v1/health", wantStatus: http.StatusOK, wantContent: "application/json"},
		{name: "readiness", method: http.MethodGet, path: "/api/v1/health/ready", wantStatus: http.StatusOK},
		{name: "liveness", method: http.MethodGet, path: "/api/v1/health/live", wantStatus: http.StatusOK},
		{name: "version", method: http.MethodGet, path: "/api/v1/version", wantStatus: http.StatusOK},
		{name: "defaults", method: http.MethodGet, path: "/api/v1/options/defaults", wantStatus: http.StatusOK},
		{name: "stats", method: http.MethodGet, path: "/api/v1/stats", wantStatus: http.StatusOK},
		{name: "metrics", method: http.MethodGet, path: "/metrics", wantStatus: http.StatusOK},
		{name: "unknown route", method: http.MethodGet, path: "/api/v2/nothing", wantStatus: http.StatusNotFound, wantContent: "application/problem+json"},
		{name: "analyze needs multipart", method: http.MethodPost, path: "/api/v1/analyze", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader("{}"))
			require.NoError(t, err)
			if tt.method == http.MethodPost {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
			if tt.wantContent != "" {
				assert.Contains(t, resp.Header.Get("Content-Type"), tt.wantContent)
			}
		})
	}
}

func TestRouter_DefaultsMatchConfig(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) {
		cfg.Analysis.PercentThreshold = 25
		cfg.Analysis.UseNetProfit = true
	})
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	resp, err := http.Get(srv.URL + config.DefaultsEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Status string                 `json:"status"`
		Data   domain.AnalysisOptions `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 25.0, body.Data.PercentThreshold)
	assert.True(t, body.Data.UseNetProfit)
}

func TestAnalyze_EndToEndWithProgress(t *testing.T) {
	a := newTestApp(t, nil)
	a.Hub.Start()
	t.Cleanup(a.Hub.Stop)

	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+config.WebSocketEndpoint, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, events.MessageTypeConnect, hello.Type)

	req := multipartRequest(t, srv.URL+config.AnalyzeEndpoint, []part{
		{field: "files", name: "mt5.csv", data: testutil.CSVBytes(t, ',', testutil.MT5Statement())},
		{field: "files", name: "notes.txt", data: []byte("nothing to see here\n")},
	}, map[string]string{"percent_threshold": "50"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data domain.BatchReport `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	report := body.Data
	require.Len(t, report.Files, 2)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "mt5.csv", report.Files[0].FileName)
	require.NotNil(t, report.Files[0].Result)
	assert.Equal(t, "notes.txt", report.Files[1].FileName)
	assert.NotEmpty(t, report.Files[1].ErrorKind)

	seen := map[events.MessageType]int{}
	for seen[events.MessageTypeBatchCompleted] == 0 {
		var msg events.WebSocketMessage
		require.NoError(t, conn.ReadJSON(&msg))
		seen[msg.Type]++
	}
	assert.Equal(t, 2, seen[events.MessageTypeFileAnalyzed])
}

func TestExport_Attachment(t *testing.T) {
	a := newTestApp(t, nil)
	srv := httptest.NewServer(a.Router)
	defer srv.Close()

	req := multipartRequest(t, srv.URL+config.ExportEndpoint, []part{
		{field: "file", name: "mt4.csv", data: testutil.CSVBytes(t, ',', testutil.MT4Statement())},
	}, map[string]string{"format": "csv"})

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "attachment")
	assert.NotEmpty(t, resp.Header.Get("X-Statement-Status"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "2088776")
}

func TestApplication_StartStop(t *testing.T) {
	a := newTestApp(t, nil)
	a.Server.Addr = "127.0.0.1:0"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Start(ctx, cancel))

	resp, err := http.Get(fmt.Sprintf("http://%s%s", a.Addr(), config.HealthEndpoint))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	assert.Equal(t, 0, a.Hub.ClientCount())

	_, err = http.Get(fmt.Sprintf("http://%s%s", a.Addr(), config.HealthEndpoint))
	assert.Error(t, err)
}
