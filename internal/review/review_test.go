package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-github/v68/github"
)

func newTestSurface(t *testing.T, handler http.HandlerFunc) *Surface {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := github.NewClient(server.Client())
	baseURL, err := client.BaseURL.Parse(server.URL + "/")
	if err != nil {
		t.Fatalf("parse base URL: %v", err)
	}
	client.BaseURL = baseURL
	return NewSurface(client, "acme", "widgets")
}

func TestCreateCommentReturnsID(t *testing.T) {
	s := newTestSurface(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(&github.IssueComment{ID: github.Ptr(int64(42))})
	})

	id, err := s.CreateComment(context.Background(), 7, "## Review\npending")
	if err != nil {
		t.Fatalf("CreateComment() error: %v", err)
	}
	if id != 42 {
		t.Errorf("CreateComment() id = %d, want 42", id)
	}
}

func TestUpdateCommentSendsPatch(t *testing.T) {
	s := newTestSurface(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("expected PATCH, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(&github.IssueComment{ID: github.Ptr(int64(42))})
	})

	if err := s.UpdateComment(context.Background(), 42, "## Review\ndone"); err != nil {
		t.Fatalf("UpdateComment() error: %v", err)
	}
}
