package acumatica_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"shipconf/internal/services"
	"shipconf/internal/services/acumatica"
)

const sessionCookie = ".ASPXAUTH"

type fakeService struct {
	t          *testing.T
	loginCode  int
	logoutCode int
	putCode    int
	logins     int
	logouts    int
	uploads    map[string][]byte
	headers    http.Header
}

func newFakeService(t *testing.T) *fakeService {
	return &fakeService{
		t:          t,
		loginCode:  http.StatusNoContent,
		logoutCode: http.StatusNoContent,
		putCode:    http.StatusNoContent,
		uploads:    map[string][]byte{},
	}
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/entity/auth/login/":
		f.logins++
		var creds acumatica.Credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			f.t.Errorf("decode login body: %v", err)
		}
		if creds.Name != "admin" || creds.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"Invalid credentials"}`)
			return
		}
		if f.loginCode == http.StatusNoContent {
			http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "token", Path: "/"})
		}
		w.WriteHeader(f.loginCode)
	case r.Method == http.MethodPost && r.URL.Path == "/entity/auth/logout/":
		f.logouts++
		w.WriteHeader(f.logoutCode)
	case r.Method == http.MethodPut:
		if _, err := r.Cookie(sessionCookie); err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		f.uploads[r.URL.EscapedPath()] = body
		w.WriteHeader(f.putCode)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newClient(t *testing.T, srv *httptest.Server) *acumatica.Client {
	t.Helper()
	client, err := acumatica.NewClient(srv.URL+"/entity", acumatica.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

var creds = acumatica.Credentials{Name: "admin", Password: "secret"}

func TestLoginRetainsSessionForSubmit(t *testing.T) {
	fake := newFakeService(t)
	srv := httptest.NewServer(fake)
	defer srv.Close()
	client := newClient(t, srv)

	if err := client.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !client.HasSession() {
		t.Fatal("expected session cookie after login")
	}

	resp, err := client.Submit(context.Background(), http.MethodPut, "Shipment/SHIP42/files/PackingSlip-SHIP42-A.pdf", nil, []byte("%PDF"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if got := string(fake.uploads["/entity/Shipment/SHIP42/files/PackingSlip-SHIP42-A.pdf"]); got != "%PDF" {
		t.Fatalf("unexpected upload body %q (uploads=%v)", got, fake.uploads)
	}
	if ct := fake.headers.Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if accept := fake.headers.Get("Accept"); accept != "application/json" {
		t.Fatalf("unexpected accept %q", accept)
	}
}

func TestLoginRejectedIsAuthErrorWithBody(t *testing.T) {
	srv := httptest.NewServer(newFakeService(t))
	defer srv.Close()
	client := newClient(t, srv)

	err := client.Login(context.Background(), acumatica.Credentials{Name: "admin", Password: "wrong"})
	var authErr *acumatica.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.StatusCode != http.StatusUnauthorized || !strings.Contains(authErr.Body, "Invalid credentials") {
		t.Fatalf("unexpected auth error %+v", authErr)
	}
	if !errors.Is(err, services.ErrAuth) {
		t.Fatal("AuthError should classify as ErrAuth")
	}
	if !strings.Contains(err.Error(), "Invalid credentials") {
		t.Fatalf("message should carry response body: %v", err)
	}
}

func TestLoginAcceptsOnlyValidStatuses(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusCreated, http.StatusNoContent, http.StatusAccepted, http.StatusFound} {
		fake := newFakeService(t)
		fake.loginCode = code
		srv := httptest.NewServer(fake)
		client := newClient(t, srv)
		err := client.Login(context.Background(), creds)
		srv.Close()

		valid := code == http.StatusOK || code == http.StatusCreated || code == http.StatusNoContent
		if valid && err != nil {
			t.Fatalf("status %d: unexpected error %v", code, err)
		}
		if !valid && !errors.Is(err, services.ErrAuth) {
			t.Fatalf("status %d: expected auth error, got %v", code, err)
		}
	}
}

func TestLogoutClearsSessionEvenOnFailure(t *testing.T) {
	fake := newFakeService(t)
	fake.logoutCode = http.StatusInternalServerError
	srv := httptest.NewServer(fake)
	defer srv.Close()
	client := newClient(t, srv)

	if err := client.Login(context.Background(), creds); err != nil {
		t.Fatalf("Login: %v", err)
	}
	err := client.Logout(context.Background(), creds)
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error from logout, got %v", err)
	}
	if client.HasSession() {
		t.Fatal("session should be discarded after logout")
	}
	if fake.logouts != 1 {
		t.Fatalf("expected one logout call, got %d", fake.logouts)
	}

	if _, err := client.Submit(context.Background(), http.MethodPut, "Shipment/S/files/x", nil, []byte("x")); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error without session, got %v", err)
	}
}

func TestSubmitJSONBodyWins(t *testing.T) {
	var gotType, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	client := newClient(t, srv)

	if _, err := client.Submit(context.Background(), http.MethodPut, "x", map[string]string{"a": "b"}, []byte("binary")); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if gotType != "application/json" || gotBody != `{"a":"b"}` {
		t.Fatalf("expected JSON body, got %q %q", gotType, gotBody)
	}
}

func TestSubmitStatusErrorCarriesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "no such shipment")
	}))
	defer srv.Close()
	client := newClient(t, srv)

	resp, err := client.Submit(context.Background(), http.MethodPut, "Shipment/NOPE/files/x.jpg", nil, []byte("x"))
	var statusErr *acumatica.StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusNotFound || statusErr.Body != "no such shipment" {
		t.Fatalf("unexpected status error %+v", statusErr)
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected response alongside status error, got %+v", resp)
	}
}

func TestSubmitNetworkFailureIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := newClient(t, srv)
	srv.Close()

	_, err := client.Submit(context.Background(), http.MethodPut, "x", nil, []byte("x"))
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestNewClientValidatesBaseURL(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com/", "://bad"} {
		if _, err := acumatica.NewClient(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
	client, err := acumatica.NewClient("https://erp.example.com/entity")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if client.BaseURL() != "https://erp.example.com/entity/" {
		t.Fatalf("unexpected base URL %q", client.BaseURL())
	}
}
