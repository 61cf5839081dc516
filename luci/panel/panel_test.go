package panel

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"luciPanel/luci/logger/initLogs"
)

// fakePanel имитирует LuCI: вход по форме и страницы, требующие sysauth
type fakePanel struct {
	logins   atomic.Int32
	requests atomic.Int32
	// expired сколько следующих запросов к /data ответить 403
	expired atomic.Int32
	tokens  atomic.Int32
}

func (f *fakePanel) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/luci/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Redirect(w, r, "/cgi-bin/luci/login", http.StatusFound)
			return
		}
		f.logins.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse login form: %v", err)
		}
		if r.PostForm.Get("luci_username") != "root" || r.PostForm.Get("luci_password") != "password" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		n := f.tokens.Add(1)
		http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "tok" + string(rune('0'+n)), Path: "/cgi-bin/luci/"})
		http.Redirect(w, r, "/cgi-bin/luci/admin", http.StatusFound)
	})
	mux.HandleFunc("/cgi-bin/luci/data", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		if f.expired.Load() > 0 {
			f.expired.Add(-1)
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, "forbidden")
			return
		}
		_, _ = io.WriteString(w, r.Header.Get("Cookie")+"|"+r.URL.RawQuery)
	})
	mux.HandleFunc("/cgi-bin/luci/admin/logout", func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		w.WriteHeader(http.StatusForbidden)
	})
	mux.HandleFunc("/cgi-bin/luci/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "line one\nline two and a very long tail of text")
	})
	mux.HandleFunc("/cgi-bin/luci/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/cgi-bin/luci/data", http.StatusFound)
	})
	return mux
}

func newFakePanel(t *testing.T) (*fakePanel, *httptest.Server) {
	t.Helper()
	initLogs.SetOutput(io.Discard)
	f := &fakePanel{}
	ts := httptest.NewServer(f.handler(t))
	t.Cleanup(ts.Close)
	return f, ts
}

func hostOf(ts *httptest.Server) string {
	return strings.TrimPrefix(ts.URL, "http://")
}

func TestConfigureUnchangedKeepsSession(t *testing.T) {
	_, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")
	if err := cm.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	cm.StoreStaticStatus(cm.Generation(), StaticStatus{Hostname: "OpenWrt"})

	cm.Configure(hostOf(ts), "root", "password")
	if cm.Token() == "" {
		t.Fatalf("token cleared by unchanged Configure")
	}
	if s, _ := cm.CachedStaticStatus(); s == nil || s.Hostname != "OpenWrt" {
		t.Fatalf("static status cleared by unchanged Configure: %+v", s)
	}
}

func TestConfigureChangedFieldClearsSession(t *testing.T) {
	_, ts := newFakePanel(t)
	host := hostOf(ts)

	cases := []struct {
		name             string
		host, user, pass string
	}{
		{"host", "10.0.0.1", "root", "password"},
		{"user", host, "admin", "password"},
		{"pass", host, "root", "secret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cm := NewConfigManager(host, "root", "password")
			if err := cm.Login(context.Background()); err != nil {
				t.Fatalf("Login failed: %v", err)
			}
			cm.StoreStaticStatus(cm.Generation(), StaticStatus{Hostname: "OpenWrt"})

			cm.Configure(tc.host, tc.user, tc.pass)
			if cm.Token() != "" {
				t.Fatalf("token kept after %s change", tc.name)
			}
			if s, _ := cm.CachedStaticStatus(); s != nil {
				t.Fatalf("static status kept after %s change", tc.name)
			}
		})
	}
}

func TestStoreStaticStatusDropsStaleGeneration(t *testing.T) {
	cm := NewConfigManager("h", "u", "p")
	gen := cm.Generation()
	cm.Configure("h2", "u", "p")
	if cm.StoreStaticStatus(gen, StaticStatus{Hostname: "old"}) {
		t.Fatalf("stale static status stored")
	}
	if s, _ := cm.CachedStaticStatus(); s != nil {
		t.Fatalf("unexpected cached status: %+v", s)
	}
}

func TestLoginThenRequestUsesToken(t *testing.T) {
	f, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")
	if err := cm.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	body, err := cm.Request(context.Background(), RequestOptions{Path: "/data"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !strings.HasPrefix(body, "sysauth=tok1|") {
		t.Fatalf("unexpected cookie echo: %q", body)
	}
	if f.logins.Load() != 1 {
		t.Fatalf("expected single login, got %d", f.logins.Load())
	}
}

func TestRequestWithoutTokenSendsEmptyCookie(t *testing.T) {
	_, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")

	params := map[string][]string{"status": {"1"}}
	body, err := cm.Request(context.Background(), RequestOptions{Path: "/data", Params: params})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if body != "sysauth=|status=1" {
		t.Fatalf("unexpected echo: %q", body)
	}
}

func TestRequestRetriesOnceOn403(t *testing.T) {
	f, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")
	if err := cm.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	f.expired.Store(1)

	body, err := cm.Request(context.Background(), RequestOptions{Path: "/data"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !strings.HasPrefix(body, "sysauth=tok2|") {
		t.Fatalf("retry did not use new token: %q", body)
	}
	if got := f.logins.Load(); got != 2 {
		t.Fatalf("expected 2 logins, got %d", got)
	}
	if got := f.requests.Load(); got != 2 {
		t.Fatalf("expected 2 requests, got %d", got)
	}
}

func TestRequestSecond403Propagates(t *testing.T) {
	f, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")
	f.expired.Store(2)

	_, err := cm.Request(context.Background(), RequestOptions{Path: "/data"})
	var failed *RequestFailedError
	if !errors.As(err, &failed) || failed.Code != http.StatusForbidden {
		t.Fatalf("expected RequestFailedError 403, got %v", err)
	}
	if got := f.logins.Load(); got != 1 {
		t.Fatalf("expected exactly one relogin, got %d", got)
	}
	if got := f.requests.Load(); got != 2 {
		t.Fatalf("expected exactly 2 requests, got %d", got)
	}
}

func TestLogoutDoesNotRelogin(t *testing.T) {
	f, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")
	if err := cm.Login(context.Background()); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := cm.Logout(context.Background()); err == nil {
		t.Fatalf("expected logout error from 403")
	}
	if got := f.logins.Load(); got != 1 {
		t.Fatalf("logout triggered relogin: %d logins", got)
	}
	if got := f.requests.Load(); got != 1 {
		t.Fatalf("logout retried: %d requests", got)
	}
	if cm.Authenticated() {
		t.Fatalf("token kept after logout")
	}
}

func TestLogoutDoesNotFollowRedirect(t *testing.T) {
	initLogs.SetOutput(io.Discard)
	var followed atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/cgi-bin/luci/admin/logout", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login-page", http.StatusFound)
	})
	mux.HandleFunc("/login-page", func(w http.ResponseWriter, r *http.Request) {
		followed.Add(1)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	cm := NewConfigManager(hostOf(ts), "root", "password")
	if err := cm.Logout(context.Background()); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if got := followed.Load(); got != 0 {
		t.Fatalf("logout followed the redirect: %d extra requests", got)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	_, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "hunter22")

	err := cm.Login(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if authErr.MaskedPass != "•••••r22" {
		t.Fatalf("unexpected masked pass: %q", authErr.MaskedPass)
	}
	if strings.Contains(err.Error(), "hunter22") {
		t.Fatalf("raw password leaked: %v", err)
	}
	if cm.Authenticated() {
		t.Fatalf("token stored after failed login")
	}
}

func TestLoginNetworkErrorIsAuthenticationError(t *testing.T) {
	_, ts := newFakePanel(t)
	host := hostOf(ts)
	ts.Close()

	cm := NewConfigManager(host, "root", "password")
	err := cm.Login(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) || authErr.Err == nil {
		t.Fatalf("expected AuthenticationError with cause, got %v", err)
	}
}

func TestEnsureLoginSkipsWhenAuthenticated(t *testing.T) {
	f, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")
	for i := 0; i < 3; i++ {
		if err := cm.EnsureLogin(context.Background()); err != nil {
			t.Fatalf("EnsureLogin failed: %v", err)
		}
	}
	if got := f.logins.Load(); got != 1 {
		t.Fatalf("expected 1 login, got %d", got)
	}
}

func TestRequestNoRedirectReturnsRedirectAsSuccess(t *testing.T) {
	_, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")

	body, err := cm.Request(context.Background(), RequestOptions{Path: "/moved", NoRedirect: true})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if strings.Contains(body, "sysauth=") {
		t.Fatalf("redirect was followed: %q", body)
	}

	body, err = cm.Request(context.Background(), RequestOptions{Path: "/moved"})
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if !strings.HasPrefix(body, "sysauth=") {
		t.Fatalf("redirect was not followed: %q", body)
	}
}

func TestRequestFailedOnServerError(t *testing.T) {
	_, ts := newFakePanel(t)
	cm := NewConfigManager(hostOf(ts), "root", "password")

	_, err := cm.Request(context.Background(), RequestOptions{Path: "/boom"})
	var failed *RequestFailedError
	if !errors.As(err, &failed) || failed.Code != http.StatusInternalServerError {
		t.Fatalf("expected RequestFailedError 500, got %v", err)
	}
	if err.Error() != "responded 500 with line one line two and a very l…" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
