package importer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rkshawon/interprep/internal/domain/catalog"
	"github.com/rkshawon/interprep/internal/logging"
	"github.com/rkshawon/interprep/internal/sandbox"
	"github.com/rkshawon/interprep/internal/snippet"
)

func TestImporterImport(t *testing.T) {
	srv := httptest.NewServer(serveHTML(`<html><body>
		<h2>Counter</h2>
		<pre><code>let n = 40;
console.log(n + 2);</code></pre>
		<h2>Broken</h2>
		<pre><code>const const = 1;</code></pre>
		<h2>Greeting</h2>
		<pre><code>console.log('hello import');</code></pre>
	</body></html>`))
	defer srv.Close()

	imp, manager := newTestImporter(t)
	report, err := imp.Import(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if report.Found != 3 {
		t.Errorf("found = %d, want 3", report.Found)
	}
	if len(report.Imported) != 2 {
		t.Fatalf("imported = %v, want 2 ids", report.Imported)
	}
	if len(report.Rejected) != 1 || report.Rejected[0].Title != "Broken" {
		t.Errorf("rejected = %+v", report.Rejected)
	}

	for _, id := range report.Imported {
		if !strings.HasPrefix(id, ImportPackID+"/") {
			t.Errorf("id = %q, want %s/ prefix", id, ImportPackID)
		}
	}

	snip, pack, err := manager.GetSnippet(context.Background(), report.Imported[0])
	if err != nil {
		t.Fatalf("GetSnippet: %v", err)
	}
	if pack.ID != ImportPackID {
		t.Errorf("pack = %s, want %s", pack.ID, ImportPackID)
	}
	if snip.Title != "Counter" {
		t.Errorf("title = %q, want Counter", snip.Title)
	}
	if len(snip.Tags) != 1 || snip.Tags[0] != "imported" {
		t.Errorf("tags = %v", snip.Tags)
	}
}

func TestImporterSlugCollisions(t *testing.T) {
	srv := httptest.NewServer(serveHTML(`<body>
		<h3>Demo</h3>
		<pre><code>console.log('first demo');</code></pre>
		<pre><code>console.log('second demo');</code></pre>
	</body>`))
	defer srv.Close()

	imp, _ := newTestImporter(t)
	report, err := imp.Import(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	want := []string{ImportPackID + "/demo", ImportPackID + "/demo-2"}
	if len(report.Imported) != 2 || report.Imported[0] != want[0] || report.Imported[1] != want[1] {
		t.Errorf("imported = %v, want %v", report.Imported, want)
	}
}

func TestImporterAppendsAcrossImports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprintf(w, "console.log('script at %s');", r.URL.Path)
	}))
	defer srv.Close()

	imp, manager := newTestImporter(t)
	ctx := context.Background()
	if _, err := imp.Import(ctx, srv.URL+"/a.js"); err != nil {
		t.Fatalf("first Import: %v", err)
	}
	if _, err := imp.Import(ctx, srv.URL+"/b.js"); err != nil {
		t.Fatalf("second Import: %v", err)
	}

	pack, err := manager.Load(ctx, ImportPackID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pack.Snippets) != 2 {
		t.Fatalf("snippets = %d, want 2", len(pack.Snippets))
	}
	if pack.Snippets[0].ID == pack.Snippets[1].ID {
		t.Errorf("duplicate snippet id %q", pack.Snippets[0].ID)
	}
}

func TestImporterDedupsRepeatedSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		fmt.Fprint(w, "console.log('raw script body');")
	}))
	defer srv.Close()

	imp, manager := newTestImporter(t)
	ctx := context.Background()
	first, err := imp.Import(ctx, srv.URL+"/a.js")
	if err != nil {
		t.Fatalf("first Import: %v", err)
	}
	second, err := imp.Import(ctx, srv.URL+"/a.js")
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}

	// The repeat import reports the existing snippet instead of adding
	// a copy.
	if len(second.Imported) != 1 || second.Imported[0] != first.Imported[0] {
		t.Errorf("second import ids = %v, want %v", second.Imported, first.Imported)
	}

	pack, err := manager.Load(ctx, ImportPackID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(pack.Snippets) != 1 {
		t.Fatalf("snippets = %d, want 1", len(pack.Snippets))
	}
}

func TestImporterNoCode(t *testing.T) {
	srv := httptest.NewServer(serveHTML(`<body><p>Nothing to run here.</p></body>`))
	defer srv.Close()

	imp, _ := newTestImporter(t)
	_, err := imp.Import(context.Background(), srv.URL)
	if err == nil || !strings.Contains(err.Error(), "no code blocks") {
		t.Errorf("err = %v, want no code blocks", err)
	}
}

func TestImporterAllRejected(t *testing.T) {
	srv := httptest.NewServer(serveHTML(`<body>
		<pre><code>const const = 'not js';</code></pre>
	</body>`))
	defer srv.Close()

	imp, manager := newTestImporter(t)
	report, err := imp.Import(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(report.Imported) != 0 || len(report.Rejected) != 1 {
		t.Errorf("report = %+v", report)
	}
	if manager.Exists(ImportPackID) {
		t.Error("import pack created with nothing to register")
	}
}

func serveHTML(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	})
}

func newTestImporter(t *testing.T) (*Importer, *catalog.Manager) {
	t.Helper()

	pool, err := sandbox.NewPool(sandbox.DefaultConfig(), 1)
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	manager := catalog.NewManager(t.TempDir(), 0, nil)
	imp := New(NewClient(), snippet.New(pool, nil), manager, logging.NewNop())
	return imp, manager
}
