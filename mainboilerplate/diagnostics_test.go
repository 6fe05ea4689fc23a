package mainboilerplate

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticsRecoverLogsAndRepanics(t *testing.T) {
	var hook = test.NewGlobal()
	defer hook.Reset()

	require.PanicsWithValue(t, "whoops", func() {
		defer InitDiagnosticsAndRecover(DiagnosticsConfig{})()
		panic("whoops")
	})
	var entry = hook.LastEntry()
	require.NotNil(t, entry)
	require.Equal(t, "unrecovered panic", entry.Message)
	require.Equal(t, "whoops", entry.Data["panic"])
	require.Contains(t, entry.Data["stack"], "TestDiagnosticsRecoverLogsAndRepanics")

	// Initializing again is safe, and a deferred closure without a panic does nothing.
	func() { defer InitDiagnosticsAndRecover(DiagnosticsConfig{})() }()

	for _, path := range []string{"/debug/ready", "/debug/metrics"} {
		var w = httptest.NewRecorder()
		http.DefaultServeMux.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		require.Equal(t, http.StatusOK, w.Code, path)
	}
}
