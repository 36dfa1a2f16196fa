package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() (string, bool) { return string(s), s != "" }

func newTestClient(t *testing.T, handler http.HandlerFunc, token string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 2*time.Second, staticToken(token))
}

func TestListPeersFiltersSelf(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/all-users" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("missing bearer token, got %q", got)
		}
		json.NewEncoder(w).Encode([]Peer{
			{ID: "u1", Username: "me"},
			{ID: "u2", Username: "alice"},
			{ID: "u3", Username: "bob"},
		})
	}, "tok")

	peers, err := client.ListPeers(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list peers: %v", err)
	}
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	for _, p := range peers {
		if p.ID == "u1" {
			t.Errorf("own id not filtered out")
		}
	}
}

func TestAuthErrorOn401(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, "expired")

	_, err := client.FetchHistory(context.Background(), "u2")
	if !IsAuthError(err) {
		t.Errorf("expected AuthError, got %v", err)
	}
}

func TestNetworkErrorOnUnreachableHost(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", 500*time.Millisecond, staticToken("tok"))

	_, err := client.ListPeers(context.Background(), "u1")
	if !IsNetworkError(err) {
		t.Errorf("expected NetworkError, got %v", err)
	}
}

func TestNoCredential(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Errorf("request should not reach the server")
	}, "")

	if _, err := client.FetchHistory(context.Background(), "u2"); err != ErrNoCredential {
		t.Errorf("expected ErrNoCredential, got %v", err)
	}
}

func TestSendMessageReturnsServerCopy(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages/send/u2" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(Message{
			ID:         "m9",
			Text:       body.Text,
			SenderID:   "u1",
			ReceiverID: "u2",
			CreatedAt:  time.Now().UTC(),
		})
	}, "tok")

	msg, err := client.SendMessage(context.Background(), "u2", "hi")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if msg.ID != "m9" || msg.Text != "hi" {
		t.Errorf("unexpected server copy: %+v", msg)
	}
}

func TestAPIErrorCarriesBackendMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "text required"})
	}, "tok")

	_, err := client.SendMessage(context.Background(), "u2", "")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "text required" {
		t.Errorf("backend message lost: %q", apiErr.Message)
	}
}

func TestLoginReturnsIdentity(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("login must not send a token, got %q", got)
		}
		json.NewEncoder(w).Encode(AuthResult{
			Token: "fresh",
			User:  AuthUser{ID: "u1", Username: "me"},
		})
	}, "")

	result, err := client.Login(context.Background(), "me@example.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token != "fresh" || result.User.ID != "u1" {
		t.Errorf("unexpected result: %+v", result)
	}
}
