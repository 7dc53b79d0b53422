package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rkshawon/interprep/internal/importer"
	"github.com/rkshawon/interprep/internal/infrastructure/resilience"
	"github.com/rkshawon/interprep/tests/helpers/testutil"
)

// TestFetchBreakerOpensOnFailures keeps hitting a dead endpoint until
// the fetch breaker opens, then checks that calls fail fast without
// touching the network.
func TestFetchBreakerOpensOnFailures(t *testing.T) {
	var hits atomic.Int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		// 404 is terminal for the retry layer, so each Fetch costs
		// exactly one request.
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	client := importer.NewClient(importer.WithTimeout(2 * time.Second))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := client.Fetch(ctx, ts.URL)
		require.Error(t, err)
		require.NotErrorIs(t, err, resilience.ErrCircuitOpen, "breaker opened too early on attempt %d", i+1)
	}

	require.Equal(t, resilience.StateOpen, client.BreakerState())
	served := hits.Load()

	_, err := client.Fetch(ctx, ts.URL)
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, served, hits.Load(), "open breaker must not reach the server")
}

// TestFetchBreakerStaysClosedOnSuccess mixes failures below the trip
// threshold with successes and checks the breaker never opens.
func TestFetchBreakerStaysClosedOnSuccess(t *testing.T) {
	var fail atomic.Bool
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body><pre><code>console.log("alive")</code></pre></body></html>`))
	}))
	defer ts.Close()

	client := importer.NewClient(importer.WithTimeout(2 * time.Second))
	ctx := context.Background()

	for round := 0; round < 3; round++ {
		fail.Store(true)
		for i := 0; i < 3; i++ {
			_, err := client.Fetch(ctx, ts.URL)
			require.Error(t, err)
		}

		// A success resets the consecutive failure streak.
		fail.Store(false)
		page, err := client.Fetch(ctx, ts.URL)
		require.NoError(t, err)
		assert.Equal(t, importer.PageHTML, page.Kind)
		assert.Equal(t, resilience.StateClosed, client.BreakerState())
	}
}

// TestImportAgainstLivePage runs the full importer pipeline against a
// local page holding both valid and broken code blocks.
func TestImportAgainstLivePage(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
			<h3>Counting up</h3>
			<pre><code>for (let i = 1; i &lt;= 3; i++) console.log(i);</code></pre>
			<h3>Not JavaScript</h3>
			<pre><code>SELECT * FROM runs WHERE ok = 1;</code></pre>
			<h3>Greeting</h3>
			<pre><code>console.log("imported hello");</code></pre>
		</body></html>`))
	}))
	defer ts.Close()

	evaluator := testutil.NewEvaluator(t)
	manager := testutil.NewCatalog(t)
	imp := importer.New(importer.NewClient(), evaluator, manager, nil)

	report, err := imp.Import(context.Background(), ts.URL)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Found)
	assert.Equal(t, []string{
		importer.ImportPackID + "/counting-up",
		importer.ImportPackID + "/greeting",
	}, report.Imported)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "Not JavaScript", report.Rejected[0].Title)

	// Importing the same page again must not duplicate snippets.
	again, err := imp.Import(context.Background(), ts.URL)
	require.NoError(t, err)
	assert.Equal(t, report.Imported, again.Imported)

	pack, err := manager.Load(context.Background(), importer.ImportPackID)
	require.NoError(t, err)
	assert.Len(t, pack.Snippets, 2)

	// Imported snippets run as-is.
	outcome, err := evaluator.Run(context.Background(), pack.Snippets[0].Source)
	require.NoError(t, err)
	assert.True(t, outcome.OK)
	assert.Equal(t, "1\n2\n3", outcome.Output)
}

// TestFetchRejectsOversizedResponse checks the configured fetch cap.
func TestFetchRejectsOversizedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write(append([]byte("<html><body>"), make([]byte, 10*1024)...))
	}))
	defer ts.Close()

	client := importer.NewClient(importer.WithMaxFetchSize(4 * 1024))
	_, err := client.Fetch(context.Background(), ts.URL)
	require.Error(t, err)
	assert.NotErrorIs(t, err, resilience.ErrCircuitOpen)
}
