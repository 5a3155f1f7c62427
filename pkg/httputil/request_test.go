package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func TestParseJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.c","password":"pw"}`))

	var dest credentials
	require.NoError(t, ParseJSON(req, &dest))
	assert.Equal(t, "a@b.c", dest.Email)
	assert.Equal(t, "pw", dest.Password)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty", "", "request body is required"},
		{"malformed", "{not json", "invalid JSON"},
		{"wrong type", `{"email": 5}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dest credentials
			err := ParseJSON(req, &dest)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseJSON_TooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 100)+`"}`))
	req.Body = http.MaxBytesReader(w, req.Body, 16)

	var dest credentials
	err := ParseJSON(req, &dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds 16 bytes")
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("nope"))

	var dest credentials
	assert.False(t, ParseJSONOrError(w, req, &dest))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathString(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/todo/abc", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "abc"})

	val, err := ParsePathString(req, "id")
	require.NoError(t, err)
	assert.Equal(t, "abc", val)

	_, err = ParsePathString(req, "missing")
	assert.Error(t, err)

	w := httptest.NewRecorder()
	_, ok := ParsePathStringOrError(w, req, "missing")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
