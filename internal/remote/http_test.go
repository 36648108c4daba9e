package remote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPAdapter_BearerTokenAttached(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a, err := NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, err)
	a.TokenSource = func() string { return "tok123" }

	_, err = a.Load(context.Background(), EndpointCurrentOrder, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestHTTPAdapter_AnonymousNoAuthHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a, err := NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), EndpointOrders, "o1", nil)
	require.NoError(t, err)
	assert.False(t, hadAuth)
}

func TestHTTPAdapter_PathAndParams(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("productIds")
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	a, err := NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), EndpointProducts, "", Params{"productIds": "p1,p2"})
	require.NoError(t, err)
	assert.Equal(t, "/"+EndpointProducts, gotPath)
	assert.Equal(t, "p1,p2", gotQuery)
}

func TestHTTPAdapter_ErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errorCode":"couponApplyError","message":"expired","errors":[{"errorCode":"couponApplyError","message":"expired","moreInfo":"p1"}]}`))
	}))
	defer srv.Close()

	a, err := NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = a.Create(context.Background(), EndpointPriceCart, "", map[string]string{})
	require.Error(t, err)

	se, ok := AsServerError(err)
	require.True(t, ok)
	assert.Equal(t, CodeCouponApply, se.Code)
	assert.Equal(t, "expired", se.Message)
	assert.Equal(t, http.StatusBadRequest, se.Status)
	require.Len(t, se.Details, 1)
	assert.Equal(t, "p1", se.Details[0].ProductID)
}

func TestHTTPAdapter_401AlwaysSessionExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`not even json`))
	}))
	defer srv.Close()

	a, err := NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), EndpointCurrentOrder, "", nil)
	se, ok := AsServerError(err)
	require.True(t, ok)
	assert.Equal(t, CodeSessionExpired, se.Code)
}

func TestHTTPAdapter_CodelessErrorDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`upstream blew up`))
	}))
	defer srv.Close()

	a, err := NewHTTPAdapter(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = a.Load(context.Background(), EndpointCurrentOrder, "", nil)
	se, ok := AsServerError(err)
	require.True(t, ok)
	assert.Empty(t, se.Code)
	assert.Equal(t, http.StatusInternalServerError, se.Status)
}
