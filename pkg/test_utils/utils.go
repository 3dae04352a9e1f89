package testutils

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
)

const (
	JamfUser     = "patch-api"
	JamfPassword = "s3cret"
	JamfToken    = "test-bearer-token"
)

// JamfFixtureDir returns the directory holding the canned Classic API
// responses served by NewJamfServer.
func JamfFixtureDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", "jamf")
}

// JamfServer is a fake Jamf Pro server backed by XML files. Classic API
// paths map to files by replacing "/" with "_" after stripping the
// "patch_reports/patchsoftwaretitleid" and "computers/id" prefixes:
//
//	patchsoftwaretitles                    -> patchsoftwaretitles.xml
//	patch_reports/patchsoftwaretitleid/3   -> patch_report_3.xml
//	computers/id/5                         -> computer_5.xml
type JamfServer struct {
	*httptest.Server

	dir string

	mu       sync.Mutex
	hits     map[string]int
	status   map[string]int
	tokenErr bool
}

func NewJamfServer(t *testing.T, dir string) *JamfServer {
	t.Helper()
	s := &JamfServer{
		dir:    dir,
		hits:   map[string]int{},
		status: map[string]int{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// FailWith makes every request to the Classic API endpoint return code.
func (s *JamfServer) FailWith(endpoint string, code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[endpoint] = code
}

// RejectCredentials makes the token endpoint answer 401.
func (s *JamfServer) RejectCredentials() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenErr = true
}

// Hits returns how many times the Classic API endpoint was requested.
func (s *JamfServer) Hits(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[endpoint]
}

func (s *JamfServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/auth/token" {
		s.handleToken(w, r)
		return
	}

	endpoint, ok := strings.CutPrefix(r.URL.Path, "/JSSResource/")
	if !ok {
		http.NotFound(w, r)
		return
	}

	s.mu.Lock()
	s.hits[endpoint]++
	code := s.status[endpoint]
	s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer "+JamfToken {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if code != 0 {
		http.Error(w, http.StatusText(code), code)
		return
	}

	data, err := os.ReadFile(filepath.Join(s.dir, fixtureName(endpoint)))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	_, _ = w.Write(data)
}

func (s *JamfServer) handleToken(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	reject := s.tokenErr
	s.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	if r.Method != http.MethodPost || !ok || user != JamfUser || pass != JamfPassword || reject {
		http.Error(w, `{"httpStatus":401,"errors":[]}`, http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"token":"` + JamfToken + `","expires":"2030-01-01T00:00:00.000Z"}`))
}

func fixtureName(endpoint string) string {
	name := endpoint
	name = strings.Replace(name, "patch_reports/patchsoftwaretitleid/", "patch_report_", 1)
	name = strings.Replace(name, "computers/id/", "computer_", 1)
	return strings.ReplaceAll(name, "/", "_") + ".xml"
}
