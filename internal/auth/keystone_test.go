package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"CapIot.telemetry/internal/models"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogJSON = `{
  "token": {
    "expires_at": "%s",
    "catalog": [
      {"type": "identity", "name": "keystone", "endpoints": [
        {"interface": "public", "region": "RegionOne", "region_id": "RegionOne", "url": "http://identity/v3"}
      ]},
      {"type": "metering", "name": "ceilometer", "endpoints": [
        {"interface": "admin", "region": "RegionOne", "region_id": "RegionOne", "url": "http://admin:8777"},
        {"interface": "public", "region": "RegionOne", "region_id": "RegionOne", "url": "http://public-one:8777"},
        {"interface": "public", "region": "RegionTwo", "region_id": "RegionTwo", "url": "http://public-two:8777"},
        {"interface": "internal", "region": "RegionTwo", "region_id": "RegionTwo", "url": "http://internal-two:8777"}
      ]}
    ]
  }
}`

type fakeKeystone struct {
	calls     int32
	status    int
	expiresAt string

	mu       sync.Mutex
	lastAuth map[string]any
}

func (f *fakeKeystone) authBody() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth["auth"].(map[string]any)
}

func (f *fakeKeystone) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/v3/auth/tokens", func(w http.ResponseWriter, req *http.Request) {
		n := atomic.AddInt32(&f.calls, 1)
		var body map[string]any
		_ = json.NewDecoder(req.Body).Decode(&body)
		f.mu.Lock()
		f.lastAuth = body
		f.mu.Unlock()
		if f.status != http.StatusCreated {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error": {"message": "bad credentials"}}`))
			return
		}
		w.Header().Set("X-Subject-Token", fmt.Sprintf("token-%d", n))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = fmt.Fprintf(w, catalogJSON, f.expiresAt)
	}).Methods(http.MethodPost)
	return r
}

func newKeystone(t *testing.T, f *fakeKeystone, creds Credentials) *KeystoneProvider {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return NewKeystoneProvider(srv.URL+"/v3/", creds, nil)
}

var passwordCreds = Credentials{
	Username:          "admin",
	Password:          "secret",
	ProjectName:       "demo",
	UserDomainName:    "Default",
	ProjectDomainName: "Default",
}

func TestKeystoneProviderIsLazy(t *testing.T) {
	f := &fakeKeystone{status: http.StatusCreated}
	_ = newKeystone(t, f, passwordCreds)
	assert.Equal(t, int32(0), atomic.LoadInt32(&f.calls))
}

func TestKeystoneTokenIsCached(t *testing.T) {
	f := &fakeKeystone{status: http.StatusCreated, expiresAt: time.Now().Add(time.Hour).UTC().Format(time.RFC3339Nano)}
	p := newKeystone(t, f, passwordCreds)
	ctx := context.Background()

	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	tok, err = p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))

	identity := f.authBody()["identity"].(map[string]any)
	assert.Equal(t, []any{"password"}, identity["methods"])
	user := identity["password"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "admin", user["name"])
	assert.NotNil(t, f.authBody()["scope"])
}

func TestKeystoneTokenRefreshesNearExpiry(t *testing.T) {
	expires := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f := &fakeKeystone{status: http.StatusCreated, expiresAt: expires.Format(time.RFC3339Nano)}
	p := newKeystone(t, f, passwordCreds)
	p.now = func() time.Time { return expires.Add(-time.Hour) }
	ctx := context.Background()

	_, err := p.Token(ctx)
	require.NoError(t, err)

	p.now = func() time.Time { return expires.Add(-10 * time.Second) }
	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&f.calls))
}

func TestKeystoneTokenMethod(t *testing.T) {
	f := &fakeKeystone{status: http.StatusCreated}
	p := newKeystone(t, f, Credentials{Token: "unscoped"})

	_, err := p.Token(context.Background())
	require.NoError(t, err)
	identity := f.authBody()["identity"].(map[string]any)
	assert.Equal(t, []any{"token"}, identity["methods"])
	assert.Equal(t, "unscoped", identity["token"].(map[string]any)["id"])
	_, scoped := f.authBody()["scope"]
	assert.False(t, scoped)
}

func TestKeystoneBaseURL(t *testing.T) {
	f := &fakeKeystone{status: http.StatusCreated}
	p := newKeystone(t, f, passwordCreds)
	ctx := context.Background()

	tests := []struct {
		name    string
		filter  EndpointFilter
		want    string
		wantErr bool
	}{
		{"v2 endpoint type", EndpointFilter{Service: "metering", Region: "RegionOne", EndpointType: "publicURL"}, "http://public-one:8777", false},
		{"v3 interface", EndpointFilter{Service: "metering", Region: "RegionTwo", EndpointType: "internal"}, "http://internal-two:8777", false},
		{"any region", EndpointFilter{Service: "metering", EndpointType: "adminURL"}, "http://admin:8777", false},
		{"unknown service", EndpointFilter{Service: "alarming", EndpointType: "publicURL"}, "", true},
		{"unknown region", EndpointFilter{Service: "metering", Region: "RegionThree", EndpointType: "publicURL"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.BaseURL(ctx, tt.filter)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrEndpointNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.calls))
}

func TestKeystoneRejectsBadCredentials(t *testing.T) {
	f := &fakeKeystone{status: http.StatusUnauthorized}
	p := newKeystone(t, f, passwordCreds)

	_, err := p.Token(context.Background())
	var statusErr *models.UnexpectedStatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusCreated, statusErr.Expected)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
	assert.Equal(t, models.ErrorCodeUnauthorized, statusErr.Code)
}

func TestInvalidateForcesReauth(t *testing.T) {
	f := &fakeKeystone{status: http.StatusCreated}
	p := newKeystone(t, f, passwordCreds)
	ctx := context.Background()

	_, err := p.Token(ctx)
	require.NoError(t, err)
	p.Invalidate()
	tok, err := p.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider("tok", "http://metering:8777")
	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", tok)

	url, err := p.BaseURL(context.Background(), EndpointFilter{Service: "anything"})
	require.NoError(t, err)
	assert.Equal(t, "http://metering:8777", url)

	_, err = NewStaticProvider("tok", "").BaseURL(context.Background(), EndpointFilter{})
	assert.ErrorIs(t, err, ErrEndpointNotFound)
}

func TestCredentialsValidate(t *testing.T) {
	assert.NoError(t, passwordCreds.Validate())
	assert.NoError(t, Credentials{Token: "t"}.Validate())
	assert.Error(t, Credentials{Username: "u"}.Validate())
}
