package metrics

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PreciousTrainer/citra/pkg/fserr"
)

func TestNilCollectorIsInert(t *testing.T) {
	var c *Collector
	c.RecordOperation("OpenFile", time.Millisecond, nil)
	c.SetOpenArchives(3)
	c.SessionOpened("file")
	c.SessionClosed("file")
	assert.Empty(t, c.Addr())
	assert.NoError(t, c.Start(context.Background()))
}

func TestDisabledConfigYieldsNilCollector(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestExpositionEndpoint(t *testing.T) {
	c, err := NewCollector(&Config{
		Enabled:   true,
		Port:      0,
		Path:      "/metrics",
		Namespace: "citrafs",
	})
	require.NoError(t, err)

	c.RecordOperation("OpenFile", 2*time.Millisecond, nil)
	c.RecordOperation("DeleteFile", time.Millisecond, fserr.New(fserr.CodeNotFound, "gone"))
	c.SetOpenArchives(2)
	c.SessionOpened("file")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	var addr string
	require.Eventually(t, func() bool {
		addr = c.Addr()
		return addr != ""
	}, 2*time.Second, 10*time.Millisecond)

	_, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.Contains(t, text, `citrafs_operations_total{code="OK",operation="OpenFile"} 1`)
	assert.Contains(t, text, `citrafs_operations_total{code="NOT_FOUND",operation="DeleteFile"} 1`)
	assert.Contains(t, text, `citrafs_errors_total{category="backend",operation="DeleteFile"} 1`)
	assert.Contains(t, text, "citrafs_open_archives 2")
	assert.Contains(t, text, `citrafs_open_sessions{kind="file"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop on context cancel")
	}
}

func TestRecordOperationCountsErrorCategories(t *testing.T) {
	c, err := NewCollector(&Config{Enabled: true, Namespace: "citrafs", Path: "/metrics"})
	require.NoError(t, err)

	c.RecordOperation("OpenArchive", time.Millisecond, fserr.New(fserr.CodeArchiveNotFound, "none"))
	c.RecordOperation("OpenArchive", time.Millisecond, errors.New("plain failure"))

	// Foreign errors are classified as backend failures.
	n := counterValue(t, c, "OpenArchive", "BACKEND_FAILURE")
	assert.Equal(t, 1.0, n)
	n = counterValue(t, c, "OpenArchive", "ARCHIVE_NOT_FOUND")
	assert.Equal(t, 1.0, n)
}

func counterValue(t *testing.T, c *Collector, operation, code string) float64 {
	t.Helper()
	metrics, err := c.registry.Gather()
	require.NoError(t, err)
	for _, mf := range metrics {
		if mf.GetName() != "citrafs_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := 0
			for _, l := range m.GetLabel() {
				if (l.GetName() == "operation" && l.GetValue() == operation) ||
					(l.GetName() == "code" && l.GetValue() == code) {
					match++
				}
			}
			if match == 2 {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
