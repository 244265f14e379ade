package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectorsAndServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ActiveSessions.Set(3)
	m.BytesRelayed.WithLabelValues(DirectionClientToServer).Add(128)
	m.SessionsStarted.Inc()
	m.RecorderFlushes.Inc()

	srv := httptest.NewServer(Handler(reg))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf strings.Builder
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	body := buf.String()
	require.Contains(t, body, "rdp_mitm_active_sessions 3")
	require.Contains(t, body, "rdp_mitm_bytes_relayed_total")
	require.Contains(t, body, "rdp_mitm_sessions_started_total 1")
	require.Contains(t, body, "rdp_mitm_recorder_flushes_total 1")
}
