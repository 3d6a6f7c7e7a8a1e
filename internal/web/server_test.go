package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/led-blinker/internal/blink"
	"github.com/sweeney/led-blinker/internal/status"
)

func newTestServer(t *testing.T, delays chan<- uint64) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		DefaultDelayMs: 500,
		MinDelayMs:     10,
		MaxDelayMs:     10000,
		GPIO:           "gpiochip0:16",
		HeartbeatMs:    900000,
		Broker:         "tcp://192.168.1.200:1883",
		HTTPAddr:       ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr, delays)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(blink.On, 250, 12)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.LED != "ON" {
		t.Errorf("LED: got %q, want ON", sj.Status.LED)
	}
	if sj.Status.DelayMs != 250 {
		t.Errorf("DelayMs: got %d, want 250", sj.Status.DelayMs)
	}
	if sj.Status.ToggleCount != 12 {
		t.Errorf("ToggleCount: got %d, want 12", sj.Status.ToggleCount)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Config.GPIO != "gpiochip0:16" {
		t.Errorf("Config.GPIO: got %q", sj.Status.Config.GPIO)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t, nil)
	tr.Update(blink.On, 500, 3)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `class="on">ON<`) {
		t.Errorf("expected rendered ON state in body:\n%s", body)
	}
	if !strings.Contains(string(body), "500ms") {
		t.Error("expected delay in body")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestDelayForwardsToLoop(t *testing.T) {
	delays := make(chan uint64, 1)
	ts, _ := newTestServer(t, delays)

	resp, err := http.PostForm(ts.URL+"/delay", url.Values{"ms": {"100000"}})
	if err != nil {
		t.Fatalf("POST /delay: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status: got %d, want 202", resp.StatusCode)
	}

	select {
	case got := <-delays:
		// Out-of-range values are forwarded as-is; the controller clamps them.
		if got != 100000 {
			t.Errorf("forwarded delay: got %d, want 100000", got)
		}
	default:
		t.Fatal("expected delay to be forwarded")
	}
}

func TestDelayQueryParam(t *testing.T) {
	delays := make(chan uint64, 1)
	ts, _ := newTestServer(t, delays)

	resp, err := http.Post(ts.URL+"/delay?ms=250", "text/plain", nil)
	if err != nil {
		t.Fatalf("POST /delay: %v", err)
	}
	resp.Body.Close()

	if got := <-delays; got != 250 {
		t.Errorf("forwarded delay: got %d, want 250", got)
	}
}

func TestDelayRejections(t *testing.T) {
	tests := []struct {
		name   string
		method string
		query  string
		nilCh  bool
		want   int
	}{
		{"get not allowed", http.MethodGet, "?ms=250", false, http.StatusMethodNotAllowed},
		{"missing value", http.MethodPost, "", false, http.StatusBadRequest},
		{"negative", http.MethodPost, "?ms=-1", false, http.StatusBadRequest},
		{"not a number", http.MethodPost, "?ms=fast", false, http.StatusBadRequest},
		{"disabled", http.MethodPost, "?ms=250", true, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var delays chan uint64
			if !tt.nilCh {
				delays = make(chan uint64, 1)
			}
			ts, _ := newTestServer(t, delays)

			req, _ := http.NewRequest(tt.method, ts.URL+"/delay"+tt.query, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.want {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.want)
			}
			if delays != nil && len(delays) != 0 {
				t.Error("rejected request should not reach the loop")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t, nil)

	get := func() status.StatusJSON {
		resp, err := http.Get(ts.URL + "/index.json")
		if err != nil {
			t.Fatalf("GET /index.json: %v", err)
		}
		defer resp.Body.Close()
		var sj status.StatusJSON
		json.NewDecoder(resp.Body).Decode(&sj)
		return sj
	}

	if sj := get(); sj.Status.Running || sj.Status.LED != "OFF" {
		t.Errorf("unexpected initial status: %+v", sj.Status)
	}

	tr.Update(blink.On, 40, 1)

	sj := get()
	if !sj.Status.Running || sj.Status.LED != "ON" || sj.Status.DelayMs != 40 {
		t.Errorf("update not reflected: %+v", sj.Status)
	}
}
