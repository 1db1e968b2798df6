package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(MetricsConfig{
		Enabled:       true,
		ListenAddress: ":0",
		Path:          "/metrics",
		Namespace:     "stratctl",
	})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	return m
}

func TestMetrics_RecordAndExpose(t *testing.T) {
	m := newTestMetrics(t)

	m.RunStarted("dev")
	m.RunCompleted("dev", "succeeded", 2*time.Second)
	m.ModuleSynthesized("networking", 500*time.Millisecond)
	m.OutputsWritten("dev", 24)
	m.ValidationFindings("dev", 0)
	m.ProviderCall("ec2", "CreateVpc")
	m.ProviderError("ec2", "CreateVpc")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		`stratctl_runs_started_total{environment="dev"} 1`,
		`stratctl_runs_completed_total{environment="dev",status="succeeded"} 1`,
		`stratctl_modules_synthesized_total{module="networking"} 1`,
		`stratctl_registry_outputs{environment="dev"} 24`,
		`stratctl_provider_errors_total{operation="CreateVpc",service="ec2"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics exposition missing %q", want)
		}
	}
}

func TestMetrics_DisabledIsNoop(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	// Recording against a disabled collector must not panic.
	m.RunStarted("dev")
	m.RunCompleted("dev", "failed", time.Second)
	m.ModuleSynthesized("networking", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("disabled Handler() status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
