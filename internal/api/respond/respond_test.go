package respond

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestData(t *testing.T) {
	rec := httptest.NewRecorder()
	Data(rec, http.StatusCreated, map[string]string{"name": "Jazz Night"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"success":true,"data":{"name":"Jazz Night"}}`, rec.Body.String())
}

func TestMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	Message(rec, http.StatusOK, "Logged out successfully")

	require.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, rec.Body.String())
}

func TestErrorDetailOutsideProduction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	Error(rec, req, http.StatusInternalServerError, "Something went wrong!", errors.New("boom"), "development")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"success":false,"message":"Something went wrong!","error":"boom"}`, rec.Body.String())
}

func TestErrorDetailHiddenInProduction(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	rec := httptest.NewRecorder()
	Error(rec, req, http.StatusInternalServerError, "Something went wrong!", errors.New("boom"), "production")

	require.JSONEq(t, `{"success":false,"message":"Something went wrong!"}`, rec.Body.String())
}

func TestErrorWithoutUnderlyingError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	rec := httptest.NewRecorder()
	Error(rec, req, http.StatusNotFound, "Route not found", nil, "development")

	require.JSONEq(t, `{"success":false,"message":"Route not found"}`, rec.Body.String())
}
