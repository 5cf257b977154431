package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokens_RoundTrip(t *testing.T) {
	tk := newTokens()
	signed, err := tk.issue("eve.holt@reqres.in")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/me", nil)
	r.Header.Set("Authorization", "Bearer "+signed)
	sub, err := tk.subject(r)
	require.NoError(t, err)
	assert.Equal(t, "eve.holt@reqres.in", sub)
}

func TestTokens_Rejects(t *testing.T) {
	tk := newTokens()
	other, err := newTokens().issue("eve.holt@reqres.in")
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/api/me", nil)
	_, err = tk.subject(r)
	assert.Error(t, err, "missing header")

	r.Header.Set("Authorization", "Bearer "+other)
	_, err = tk.subject(r)
	assert.Error(t, err, "foreign key")
}
