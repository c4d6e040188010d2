package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// fakeAPI is a scripted trading API recording every hit.
type fakeAPI struct {
	mu       sync.Mutex
	hits     []*http.Request
	bodies   []map[string]interface{}
	handlers map[string]http.HandlerFunc
	server   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{handlers: make(map[string]http.HandlerFunc)}

	r := chi.NewRouter()
	r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
		var body map[string]interface{}
		if req.Body != nil {
			json.NewDecoder(req.Body).Decode(&body)
		}

		f.mu.Lock()
		f.hits = append(f.hits, req)
		f.bodies = append(f.bodies, body)
		h, ok := f.handlers[req.Method+" "+req.URL.Path]
		f.mu.Unlock()

		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
			return
		}
		h(w, req)
	})

	f.server = httptest.NewServer(r)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeAPI) handle(method, path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

func (f *fakeAPI) respond(method, path string, status int, body interface{}) {
	f.handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	})
}

func (f *fakeAPI) hitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.hits)
}

func (f *fakeAPI) lastHit() (*http.Request, map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.hits) == 0 {
		return nil, nil
	}
	return f.hits[len(f.hits)-1], f.bodies[len(f.bodies)-1]
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type staticTokens string

func (s staticTokens) Token() (string, bool) { return string(s), s != "" }
