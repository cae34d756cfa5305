package embeddings

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("Authorization") != "Bearer k" || r.Header.Get("Content-Type") != "application/json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"value":7}`))
		case "/flat":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"model not found"}`))
		case "/nested":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"auth"}}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("  boom\n"))
		}
	}))
	defer server.Close()
	header := http.Header{}
	header.Set("Authorization", "Bearer k")

	var out struct {
		Value int `json:"value"`
	}
	if err := PostJSON(context.Background(), server.Client(), "test", server.URL+"/ok", header, map[string]string{"a": "b"}, &out); err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if out.Value != 7 {
		t.Fatalf("value = %d", out.Value)
	}

	tests := []struct {
		path    string
		status  int
		message string
	}{
		{path: "/flat", status: http.StatusNotFound, message: "model not found"},
		{path: "/nested", status: http.StatusUnauthorized, message: "bad key"},
		{path: "/other", status: http.StatusInternalServerError, message: "boom"},
	}
	for _, tc := range tests {
		err := PostJSON(context.Background(), server.Client(), "test", server.URL+tc.path, nil, struct{}{}, &out)
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("%s: expected *APIError, got %v", tc.path, err)
		}
		if apiErr.Status != tc.status || apiErr.Message != tc.message || apiErr.Provider != "test" {
			t.Errorf("%s: unexpected error %+v", tc.path, apiErr)
		}
	}
}
