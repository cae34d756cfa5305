package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viant/codevec/embeddings"
)

func TestEmbedder_EmbedDocuments(t *testing.T) {
	var got Request
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer secret" {
			t.Errorf("authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		resp := Response{Model: got.Model}
		// reversed to check the client restores input order
		for i := len(got.Input) - 1; i >= 0; i-- {
			vector := make([]float32, got.Dimensions)
			vector[0] = float32(i)
			resp.Data = append(resp.Data, EmbeddingData{Embedding: vector, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	embedder := New("secret", "", WithBaseURL(server.URL))
	vectors, err := embedder.EmbedDocuments(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if got.Model != defaultEmbeddingModel || got.Dimensions != 768 {
		t.Fatalf("unexpected request: %+v", got)
	}
	for i, vector := range vectors {
		if len(vector) != 768 || vector[0] != float32(i) {
			t.Fatalf("vector %d out of order", i)
		}
	}
}

func TestEmbedder_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer server.Close()
	_, err := New("x", "", WithBaseURL(server.URL)).EmbedQuery(context.Background(), "q")
	if !errors.Is(err, embeddings.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
	var apiErr *embeddings.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "bad key" {
		t.Fatalf("unexpected api error: %v", err)
	}
}
