package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider serves a discovery document and a userinfo endpoint that
// accepts a single bearer token.
type fakeProvider struct {
	srv            *httptest.Server
	discoveryHits  atomic.Int32
	validToken     string
	userinfoStatus int
	userinfoBody   map[string]string
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()
	p := &fakeProvider{
		validToken:     "good-token",
		userinfoStatus: http.StatusOK,
		userinfoBody: map[string]string{
			"sub":     "g-123",
			"email":   "ann@test.com",
			"name":    "Ann",
			"picture": "https://img.test/ann.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		p.discoveryHits.Add(1)
		json.NewEncoder(w).Encode(map[string]string{
			"userinfo_endpoint": p.srv.URL + "/userinfo",
		})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+p.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(p.userinfoStatus)
		json.NewEncoder(w).Encode(p.userinfoBody)
	})

	p.srv = httptest.NewServer(mux)
	t.Cleanup(p.srv.Close)
	return p
}

func (p *fakeProvider) verifier() *GoogleVerifier {
	return NewGoogleVerifier(p.srv.URL+"/.well-known/openid-configuration", p.srv.Client())
}

func TestGoogleVerifier_Verify(t *testing.T) {
	p := newFakeProvider(t)
	v := p.verifier()

	id, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "g-123", id.Sub)
	assert.Equal(t, "ann@test.com", id.Email)
	assert.Equal(t, "Ann", id.Name)
	assert.Equal(t, "https://img.test/ann.png", id.Picture)

	_, err = v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, int32(1), p.discoveryHits.Load(), "discovery document should be cached")
}

func TestGoogleVerifier_Failures(t *testing.T) {
	t.Run("rejected token", func(t *testing.T) {
		p := newFakeProvider(t)
		_, err := p.verifier().Verify(context.Background(), "bad-token")
		assert.Error(t, err)
	})

	t.Run("empty token", func(t *testing.T) {
		p := newFakeProvider(t)
		_, err := p.verifier().Verify(context.Background(), "")
		assert.Error(t, err)
	})

	t.Run("missing sub", func(t *testing.T) {
		p := newFakeProvider(t)
		delete(p.userinfoBody, "sub")
		_, err := p.verifier().Verify(context.Background(), "good-token")
		assert.ErrorContains(t, err, "no sub")
	})

	t.Run("provider error status", func(t *testing.T) {
		p := newFakeProvider(t)
		p.userinfoStatus = http.StatusInternalServerError
		_, err := p.verifier().Verify(context.Background(), "good-token")
		assert.Error(t, err)
	})

	t.Run("discovery unreachable", func(t *testing.T) {
		p := newFakeProvider(t)
		v := NewGoogleVerifier(p.srv.URL+"/missing", p.srv.Client())
		_, err := v.Verify(context.Background(), "good-token")
		assert.Error(t, err)
	})
}
