package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUpstream serves canned dummyjson envelopes and records request URIs.
type fakeUpstream struct {
	mu       sync.Mutex
	requests []string
	status   int
	body     string
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.RequestURI())
	f.mu.Unlock()
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(f.body))
}

func (f *fakeUpstream) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestList_Products(t *testing.T) {
	up := &fakeUpstream{body: `{"products":[
		{"id":1,"title":"MacBook Pro","description":"Apple laptop","price":1999.99,"category":"laptops","brand":"Apple"},
		{"id":2,"title":"ThinkPad","description":"Lenovo\nlaptop","price":1299,"category":"laptops"}
	],"total":12,"skip":5,"limit":5}`}
	srv := httptest.NewServer(up)
	defer srv.Close()

	out, err := runCLI(t, "list", "products", "--base-url", srv.URL, "--category", "laptops", "--page", "2")
	require.NoError(t, err)

	assert.Contains(t, up.lastRequest(), "/products/category/laptops")
	assert.Contains(t, up.lastRequest(), "skip=5")
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "Discount Percentage")
	assert.Contains(t, out, "MacBook Pro")
	assert.Contains(t, out, "1999.99")
	assert.Contains(t, out, "Lenovo laptop")
	assert.Contains(t, out, "N/A")
	assert.Contains(t, out, "Page 2 of 3 · 12 records · 1 [2] 3")
}

func TestList_UsersSearchNarrowsPage(t *testing.T) {
	up := &fakeUpstream{body: `{"users":[
		{"id":1,"firstName":"Emily","lastName":"Johnson"},
		{"id":2,"firstName":"Michael","lastName":"Williams"}
	],"total":2,"skip":0,"limit":5}`}
	srv := httptest.NewServer(up)
	defer srv.Close()

	out, err := runCLI(t, "list", "users", "--base-url", srv.URL, "--search", "emi")
	require.NoError(t, err)

	assert.Contains(t, up.lastRequest(), "/users?")
	assert.Contains(t, out, "Emily")
	assert.NotContains(t, out, "Michael")
}

func TestList_FieldFilterUsesSearchEndpoint(t *testing.T) {
	up := &fakeUpstream{body: `{"users":[{"id":1,"firstName":"Emily"},{"id":2,"firstName":"Emma"}],"total":2}`}
	srv := httptest.NewServer(up)
	defer srv.Close()

	_, err := runCLI(t, "list", "users", "--base-url", srv.URL, "--filter", "firstName=Em")
	require.NoError(t, err)

	assert.Contains(t, up.lastRequest(), "/users/search")
	assert.Contains(t, up.lastRequest(), "q=Em")
}

func TestList_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(&fakeUpstream{body: `{"users":[],"total":0}`})
	defer srv.Close()

	out, err := runCLI(t, "list", "users", "--base-url", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "No records")
	assert.Contains(t, out, "Page 1 of 0 · 0 records")
}

func TestList_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "unknown kind",
			args:    []string{"list", "orders"},
			wantErr: "orders",
		},
		{
			name:    "missing kind",
			args:    []string{"list"},
			wantErr: "accepts 1 arg",
		},
		{
			name:    "page size not offered",
			args:    []string{"list", "users", "--page-size", "7"},
			wantErr: "invalid list options",
		},
		{
			name:    "malformed filter",
			args:    []string{"list", "users", "--filter", "firstName"},
			wantErr: "want column=value",
		},
		{
			name:    "undeclared filter column",
			args:    []string{"list", "users", "--filter", "password=x"},
			wantErr: "cannot be filtered",
		},
		{
			name:    "category on users",
			args:    []string{"list", "users", "--category", "laptops"},
			wantErr: "no categories",
		},
		{
			name:    "category with filter",
			args:    []string{"list", "products", "--category", "laptops", "--filter", "brand=Apple"},
			wantErr: "cannot be combined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestList_UpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(&fakeUpstream{status: http.StatusInternalServerError})
	defer srv.Close()

	_, err := runCLI(t, "list", "products", "--base-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Request failed with status code 500")
}

func TestList_ConfigFile(t *testing.T) {
	up := &fakeUpstream{body: `{"users":[{"id":1,"firstName":"Emily"}],"total":1}`}
	srv := httptest.NewServer(up)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  host: 127.0.0.1\n  port: 8080\n  mode: test\nupstream:\n  base_url: " + srv.URL + "\n  timeout: 5s\nlog:\n  level: error\n  format: text\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	out, err := runCLI(t, "list", "users", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Emily")
	assert.True(t, strings.HasPrefix(up.lastRequest(), "/users"))
}

func TestServe_MissingConfig(t *testing.T) {
	_, err := runCLI(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
