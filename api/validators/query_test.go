package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/propnest/propnest-client/pkg/errors"
)

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/notifications?limit=5&bad=x&big=500", nil)

	v, err := ParseQueryInt(r, "limit", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = ParseQueryInt(r, "missing", 20, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 20, v)

	_, err = ParseQueryInt(r, "bad", 20, 1, 100)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = ParseQueryInt(r, "big", 20, 1, 100)
	assert.Equal(t, "big is out of range.", pkgerrors.As(err).Message())
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/notifications?unread=true&bad=maybe", nil)

	v, err := ParseQueryBool(r, "unread")
	require.NoError(t, err)
	assert.True(t, v)

	_, err = ParseQueryBool(r, "bad")
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestParsePathID(t *testing.T) {
	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", value)
		r := httptest.NewRequest(http.MethodPost, "/notifications/"+value+"/read", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := ParsePathID(withParam("42"), "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-3", "abc", ""} {
		_, err := ParsePathID(withParam(bad), "id")
		assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err), bad)
	}
}

type loginBody struct {
	Token string `json:"token" validate:"required"`
}

func TestDecodeJSONBody(t *testing.T) {
	var dest loginBody
	r := httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"token":"abc"}`))
	require.NoError(t, DecodeJSONBody(r, &dest))
	assert.Equal(t, "abc", dest.Token)

	r = httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"token":""}`))
	err := DecodeJSONBody(r, &loginBody{})
	require.Error(t, err)
	assert.Equal(t, "token is required.", pkgerrors.As(err).Message())

	r = httptest.NewRequest(http.MethodPost, "/session", strings.NewReader(`{"token":"abc","extra":1}`))
	err = DecodeJSONBody(r, &loginBody{})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
