package testsupport

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// FixtureServer is an httptest server answering every request with a fixed
// status and body. It records the URLs it was called with.
type FixtureServer struct {
	*httptest.Server

	mu       sync.Mutex
	status   int
	body     []byte
	requests []*url.URL
}

// ServeFixture starts a FixtureServer replying with the content of the fixture
// at path. An empty path replies with no body. The server is closed when the
// test ends.
func ServeFixture(t testing.TB, status int, path string) *FixtureServer {
	t.Helper()

	var body []byte
	if path != "" {
		body = LoadFixture(t, path)
	}

	fs := &FixtureServer{status: status, body: body}
	fs.Server = httptest.NewServer(http.HandlerFunc(fs.handle))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *FixtureServer) handle(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	u := *r.URL
	fs.requests = append(fs.requests, &u)
	status, body := fs.status, fs.body
	fs.mu.Unlock()

	if len(body) > 0 {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Reply changes the status and body served from now on.
func (fs *FixtureServer) Reply(status int, body []byte) {
	fs.mu.Lock()
	fs.status = status
	fs.body = body
	fs.mu.Unlock()
}

// Requests returns the URLs received so far.
func (fs *FixtureServer) Requests() []*url.URL {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]*url.URL(nil), fs.requests...)
}
