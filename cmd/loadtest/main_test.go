package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	httpsvc "github.com/vladislavdragonenkov/orders/internal/service/http"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func newOrdersServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := httpsvc.NewRouter(httpsvc.Config{
		Service: orders.NewService(memory.NewOrderRepository()),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    loadMode
		wantErr string
	}{
		{name: "create", input: "create", want: modeCreate},
		{name: "create-read", input: " create-read ", want: modeCreateRead},
		{name: "crud", input: "crud", want: modeCRUD},
		{name: "unsupported", input: "bad", wantErr: "unsupported mode"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := parseMode(tc.input)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("unexpected mode: got %q want %q", got, tc.want)
			}
		})
	}
}

func TestParseConfig(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		cfg, err := parseConfig([]string{
			"-addr=http://127.0.0.1:3000/",
			"-mode=crud",
			"-total=12",
			"-concurrency=3",
			"-timeout=2s",
			"-customer=Stage Runner",
			"-total-value=99.99",
			"-output=/tmp/out.json",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.totalSet {
			t.Fatalf("expected totalSet=true")
		}
		if cfg.baseURL != "http://127.0.0.1:3000" {
			t.Fatalf("expected trailing slash to be trimmed, got %s", cfg.baseURL)
		}
		if cfg.mode != modeCRUD {
			t.Fatalf("unexpected mode: %s", cfg.mode)
		}
		if cfg.total != 12 || cfg.concurrency != 3 {
			t.Fatalf("unexpected numeric config: %+v", cfg)
		}
		if cfg.timeout != 2*time.Second {
			t.Fatalf("unexpected timeout: %s", cfg.timeout)
		}
	})

	t.Run("duration mode", func(t *testing.T) {
		cfg, err := parseConfig([]string{"-duration=3s", "-concurrency=2"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.duration != 3*time.Second {
			t.Fatalf("unexpected duration: %s", cfg.duration)
		}
		if cfg.totalSet {
			t.Fatalf("expected totalSet=false when -total was not provided")
		}
	})

	t.Run("validation errors", func(t *testing.T) {
		tests := []struct {
			name    string
			args    []string
			wantErr string
		}{
			{name: "invalid duration", args: []string{"-duration=bad"}, wantErr: "invalid value"},
			{name: "negative duration", args: []string{"-duration=-1s"}, wantErr: "duration must be >= 0"},
			{name: "empty total", args: []string{"-total=0"}, wantErr: "total must be > 0"},
			{name: "zero concurrency", args: []string{"-concurrency=0"}, wantErr: "concurrency must be > 0"},
			{name: "blank customer", args: []string{"-customer= "}, wantErr: "customer is required"},
			{name: "bad total value", args: []string{"-total-value=abc"}, wantErr: "total-value must be a number"},
			{name: "bad mode", args: []string{"-mode=pay"}, wantErr: "unsupported mode"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				_, err := parseConfig(tc.args)
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
			})
		}
	})
}

func TestDispatchJobs(t *testing.T) {
	t.Run("count mode", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{total: 5})

		var got []int
		for v := range jobs {
			got = append(got, v)
		}
		if !slices.Equal(got, []int{0, 1, 2, 3, 4}) {
			t.Fatalf("unexpected jobs sequence: %v", got)
		}
	})

	t.Run("duration mode", func(t *testing.T) {
		jobs := make(chan int, 32)
		done := make(chan struct{})
		go func() {
			dispatchJobs(jobs, config{duration: 20 * time.Millisecond})
			close(done)
		}()

		count := 0
		for range jobs {
			count++
		}
		<-done
		if count == 0 {
			t.Fatalf("expected non-zero jobs for duration mode")
		}
	})

	t.Run("duration with explicit max total", func(t *testing.T) {
		jobs := make(chan int, 16)
		dispatchJobs(jobs, config{duration: time.Second, total: 3, totalSet: true})
		count := 0
		for range jobs {
			count++
		}
		if count != 3 {
			t.Fatalf("expected 3 jobs, got %d", count)
		}
	})
}

func TestCollectorAndReport(t *testing.T) {
	c := newCollector()
	c.record("scenario", 10*time.Millisecond, "ok", true)
	c.record("scenario", 20*time.Millisecond, "failed", false)
	c.record("CreateOrder", 15*time.Millisecond, "201", true)

	snap, ok := c.snapshot("scenario")
	if !ok {
		t.Fatalf("scenario snapshot missing")
	}
	if snap.Calls != 2 || snap.Success != 1 || snap.Failed != 1 {
		t.Fatalf("unexpected scenario snapshot: %+v", snap)
	}
	if snap.Codes["ok"] != 1 || snap.Codes["failed"] != 1 {
		t.Fatalf("unexpected codes: %+v", snap.Codes)
	}

	r := c.buildReport(time.Now(), 2*time.Second)
	if r.TotalScenarios != 2 || r.FailedScenarios != 1 {
		t.Fatalf("unexpected report totals: %+v", r)
	}
	if r.RPS <= 0 {
		t.Fatalf("expected positive rps, got %f", r.RPS)
	}
	if _, ok := r.Methods["CreateOrder"]; !ok {
		t.Fatalf("expected CreateOrder stats in report")
	}
}

func TestUtilityFunctions(t *testing.T) {
	if got := ratio(1, 4); got != 0.25 {
		t.Fatalf("ratio mismatch: %f", got)
	}
	if got := ratio(1, 0); got != 0 {
		t.Fatalf("ratio with zero total must be 0, got %f", got)
	}

	values := []float64{10, 20, 30, 40}
	summary := buildLatencySummary(values)
	if summary.Min != 10 || summary.Max != 40 || summary.Avg != 25 {
		t.Fatalf("unexpected latency summary: %+v", summary)
	}
	if p := percentile(values, 50); p != 25 {
		t.Fatalf("unexpected p50: %f", p)
	}
	if p := percentile([]float64{7}, 99); p != 7 {
		t.Fatalf("single value percentile must be the value, got %f", p)
	}
	if s := buildLatencySummary(nil); s != (latencySummary{}) {
		t.Fatalf("empty summary expected, got %+v", s)
	}

	if got := runTarget(config{total: 50}); got != "count:50" {
		t.Fatalf("unexpected run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second}); got != "duration:2s" {
		t.Fatalf("unexpected duration run target: %s", got)
	}
	if got := runTarget(config{duration: 2 * time.Second, total: 10, totalSet: true}); got != "duration:2s,max-total:10" {
		t.Fatalf("unexpected capped duration run target: %s", got)
	}
}

func TestWriteJSONReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")

	sample := report{TotalScenarios: 2, SuccessScenarios: 2}
	if err := writeJSONReport(path, sample); err != nil {
		t.Fatalf("writeJSONReport error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var decoded report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.TotalScenarios != 2 || decoded.SuccessScenarios != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}

	if err := writeJSONReport(".", sample); err == nil {
		t.Fatal("expected error for directory path")
	}
}

func TestRunScenario_CRUDAgainstOrdersAPI(t *testing.T) {
	srv := newOrdersServer(t)
	cfg := config{baseURL: srv.URL, timeout: 2 * time.Second, mode: modeCRUD, customer: "Load Tester", totalValue: "10.50"}
	col := newCollector()

	if err := runScenario(srv.Client(), cfg, 1, "run", col); err != nil {
		t.Fatalf("runScenario failed: %v", err)
	}

	for _, method := range []string{"CreateOrder", "GetOrder", "UpdateOrder", "DeleteOrder"} {
		snap, ok := col.snapshot(method)
		if !ok || snap.Success != 1 || snap.Failed != 0 {
			t.Fatalf("unexpected %s stats: %+v", method, snap)
		}
	}
	snap, _ := col.snapshot("CreateOrder")
	if snap.Codes["201"] != 1 {
		t.Fatalf("expected 201 code for CreateOrder, got %+v", snap.Codes)
	}
}

func TestRunScenario_ValidationFailure(t *testing.T) {
	srv := newOrdersServer(t)
	// Цифры в имени клиента не проходят валидацию.
	cfg := config{baseURL: srv.URL, timeout: 2 * time.Second, mode: modeCreate, customer: "Tester 42", totalValue: "1"}
	col := newCollector()

	if err := runScenario(srv.Client(), cfg, 1, "run", col); err == nil {
		t.Fatal("expected scenario failure on 400")
	}
	snap, _ := col.snapshot("CreateOrder")
	if snap.Failed != 1 || snap.Codes["400"] != 1 {
		t.Fatalf("unexpected CreateOrder stats: %+v", snap)
	}
	scenario, _ := col.snapshot("scenario")
	if scenario.Failed != 1 {
		t.Fatalf("expected failed scenario, got %+v", scenario)
	}
}

func TestCallAPI_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	col := newCollector()
	cfg := config{baseURL: url, timeout: time.Second}
	if err := callAPI(http.DefaultClient, cfg, col, "GetOrder", http.MethodGet, "/orders/1", nil, http.StatusOK, nil); err == nil {
		t.Fatal("expected transport error")
	}
	snap, _ := col.snapshot("GetOrder")
	if snap.Codes[codeTransportError] != 1 {
		t.Fatalf("expected transport_error code, got %+v", snap.Codes)
	}
}

func TestRunLoad(t *testing.T) {
	var creates atomic.Int64
	api := newOrdersServer(t)
	counting := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			creates.Add(1)
		}
		api.Config.Handler.ServeHTTP(w, r)
	}))
	t.Cleanup(counting.Close)

	cfg := config{baseURL: counting.URL, total: 10, concurrency: 3, timeout: 2 * time.Second, mode: modeCreateRead, customer: "Load Tester", totalValue: "5"}
	result := runLoad(counting.Client(), cfg)

	if result.TotalScenarios != 10 || result.FailedScenarios != 0 {
		t.Fatalf("unexpected report: %+v", result)
	}
	if creates.Load() != 10 {
		t.Fatalf("expected 10 create calls, got %d", creates.Load())
	}

	var out bytes.Buffer
	printReport(&out, result, cfg)
	if !strings.Contains(out.String(), "Load test summary") || !strings.Contains(out.String(), "GetOrder") {
		t.Fatalf("unexpected summary: %s", out.String())
	}
}
