package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockServer builds an httptest.Server that verifies the request it
// receives and replies with a canned response.
type mockServer struct {
	t          *testing.T
	server     *httptest.Server
	handler    http.HandlerFunc
	expectPath string
	expectMeth string
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	return &mockServer{t: t}
}

func (m *mockServer) ExpectPath(path string) *mockServer {
	m.expectPath = path
	return m
}

func (m *mockServer) ExpectMethod(method string) *mockServer {
	m.expectMeth = method
	return m
}

func (m *mockServer) ExpectGET() *mockServer    { return m.ExpectMethod(http.MethodGet) }
func (m *mockServer) ExpectPOST() *mockServer   { return m.ExpectMethod(http.MethodPost) }
func (m *mockServer) ExpectDELETE() *mockServer { return m.ExpectMethod(http.MethodDelete) }

// Handler sets a custom handler, called after path/method verification.
func (m *mockServer) Handler(h func(w http.ResponseWriter, r *http.Request)) *mockServer {
	m.handler = h
	return m
}

// RespondJSON replies with the JSON encoding of v.
func (m *mockServer) RespondJSON(v any) *mockServer {
	return m.RespondJSONStatus(http.StatusOK, v)
}

// RespondJSONStatus replies with the given status and the JSON encoding of v.
func (m *mockServer) RespondJSONStatus(code int, v any) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		if err := json.NewEncoder(w).Encode(v); err != nil {
			m.t.Fatalf("failed to encode JSON response: %v", err)
		}
	}
	return m
}

// RespondStatus replies with just a status code.
func (m *mockServer) RespondStatus(code int) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
	}
	return m
}

// RespondError replies with an error status and message body.
func (m *mockServer) RespondError(code int, message string) *mockServer {
	m.handler = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(code)
		_, _ = w.Write([]byte(message))
	}
	return m
}

// Build creates the httptest.Server. Close it with defer srv.Close().
func (m *mockServer) Build() *httptest.Server {
	m.t.Helper()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.expectPath != "" {
			assert.Equal(m.t, m.expectPath, r.URL.Path, "unexpected request path")
		}
		if m.expectMeth != "" {
			assert.Equal(m.t, m.expectMeth, r.Method, "unexpected request method")
		}
		if m.handler != nil {
			m.handler(w, r)
		}
	})

	m.server = httptest.NewServer(handler)
	return m.server
}
