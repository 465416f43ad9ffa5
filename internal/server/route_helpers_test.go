package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteByMethod(t *testing.T) {
	called := false
	routes := MethodRouter{"GET": func(w http.ResponseWriter, r *http.Request) { called = true }}

	rec := httptest.NewRecorder()
	RouteByMethod(rec, httptest.NewRequest(http.MethodGet, "/x", nil), routes)
	assert.True(t, called)

	rec = httptest.NewRecorder()
	RouteByMethod(rec, httptest.NewRequest(http.MethodDelete, "/x", nil), routes)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "method not allowed", body["detail"])
}

func TestRouteResourceItem(t *testing.T) {
	var got string
	update := func(w http.ResponseWriter, r *http.Request) { got = "update" }
	del := func(w http.ResponseWriter, r *http.Request) { got = "delete" }

	rec := httptest.NewRecorder()
	RouteResourceItem(rec, httptest.NewRequest(http.MethodPut, "/x/1", nil), nil, update, del)
	assert.Equal(t, "update", got)

	rec = httptest.NewRecorder()
	RouteResourceItem(rec, httptest.NewRequest(http.MethodDelete, "/x/1", nil), nil, update, del)
	assert.Equal(t, "delete", got)

	// No GET handler registered for this resource
	rec = httptest.NewRecorder()
	RouteResourceItem(rec, httptest.NewRequest(http.MethodGet, "/x/1", nil), nil, update, del)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
