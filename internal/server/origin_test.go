package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Tyrowin/tapwars/internal/testutil"
)

func requestWithOrigin(origin string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if origin != "" {
		r.Header.Set("Origin", origin)
	}
	return r
}

func TestOriginPolicy(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{name: "exact match", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "case insensitive", allowed: []string{"HTTP://LocalHost:8080"}, origin: "http://localhost:8080", want: true},
		{name: "different port", allowed: []string{"http://localhost:8080"}, origin: "http://localhost:9090", want: false},
		{name: "missing header", allowed: []string{"*"}, origin: "", want: false},
		{name: "wildcard", allowed: []string{"*"}, origin: "https://anything.example", want: true},
		{name: "malformed header", allowed: []string{"*"}, origin: "not a url", want: false},
		{name: "invalid config entries skipped", allowed: []string{"nope", " ", "https://ok.example"}, origin: "https://ok.example", want: true},
		{name: "empty allow list", allowed: nil, origin: "http://localhost:8080", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := newOriginPolicy(tt.allowed, testutil.NopLogger())
			assert.Equal(t, tt.want, policy.checkOrigin(requestWithOrigin(tt.origin)))
		})
	}
}
