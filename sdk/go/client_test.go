package agrichainsdk

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestsFollowConfiguredBasePath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode([]any{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	if _, err := c.ListProduce(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	c.BasePath = "/api/v2/"
	if _, err := c.ListProduce(context.Background(), ""); err != nil {
		t.Fatal(err)
	}

	if len(paths) != 2 || paths[0] != "/v0/produce" || paths[1] != "/api/v2/produce" {
		t.Fatalf("unexpected request paths %v", paths)
	}
}
