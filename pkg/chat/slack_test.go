package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/patchnotifier/patch-notifier/pkg/types"
	"github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slackStub struct {
	mu       sync.Mutex
	users    map[string]string // email -> raw user JSON
	posts    []post
	postFail bool
}

type post struct {
	Channel string
	Text    string
}

func newSlackStub(t *testing.T) (*slackStub, *SlackClient) {
	t.Helper()
	stub := &slackStub{users: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(stub.handle))
	t.Cleanup(srv.Close)
	return stub, NewSlackClient("xoxb-test", WithAPIURL(srv.URL), WithHTTPClient(srv.Client()))
}

func (s *slackStub) handle(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/users.lookupByEmail":
		user, ok := s.users[r.Form.Get("email")]
		if !ok {
			_, _ = w.Write([]byte(`{"ok":false,"error":"users_not_found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"user":` + user + `}`))
	case "/chat.postMessage":
		if s.postFail {
			_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
			return
		}
		s.posts = append(s.posts, post{Channel: r.Form.Get("channel"), Text: r.Form.Get("text")})
		_, _ = w.Write([]byte(`{"ok":true,"channel":"` + r.Form.Get("channel") + `","ts":"1700000000.000100"}`))
	default:
		http.NotFound(w, r)
	}
}

func TestLookupUser(t *testing.T) {
	stub, client := newSlackStub(t)
	stub.users["ada@example.com"] = `{"id":"U01ADA","name":"ada","real_name":"Ada King Lovelace",
		"profile":{"first_name":"Ada","last_name":"Lovelace","status_emoji":":palm_tree:","status_text":"Away"}}`
	stub.users["alan@example.com"] = `{"id":"U02ALAN","name":"alan","real_name":"Alan Mathison Turing","profile":{}}`
	stub.users["cher@example.com"] = `{"id":"U03CHER","name":"cher","real_name":"Cher","profile":{}}`

	tests := []struct {
		email   string
		want    *types.UserIdentity
		wantErr error
	}{
		{
			email: "ada@example.com",
			want: &types.UserIdentity{
				ID: "U01ADA", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
				StatusEmoji: ":palm_tree:", StatusText: "Away",
			},
		},
		{
			email: "alan@example.com",
			want:  &types.UserIdentity{ID: "U02ALAN", FirstName: "Alan", LastName: "Turing", Email: "alan@example.com"},
		},
		{
			email: "cher@example.com",
			want:  &types.UserIdentity{ID: "U03CHER", FirstName: "Cher", Email: "cher@example.com"},
		},
		{
			email:   "nobody@example.com",
			wantErr: types.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, err := client.LookupUser(context.Background(), tt.email)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostMessage(t *testing.T) {
	stub, client := newSlackStub(t)

	require.NoError(t, client.PostMessage(context.Background(), "U01ADA", "Hi Ada"))
	require.Len(t, stub.posts, 1)
	assert.Equal(t, "U01ADA", stub.posts[0].Channel)
	assert.Equal(t, "Hi Ada", stub.posts[0].Text)

	stub.postFail = true
	err := client.PostMessage(context.Background(), "U01ADA", "Hi again")
	assert.ErrorContains(t, err, "channel_not_found")
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name        string
		user        slack.User
		first, last string
	}{
		{"profile names", slack.User{RealName: "x y", Profile: slack.UserProfile{FirstName: "Grace", LastName: "Hopper"}}, "Grace", "Hopper"},
		{"real name", slack.User{RealName: "Grace Brewster Hopper"}, "Grace", "Hopper"},
		{"profile real name", slack.User{Profile: slack.UserProfile{RealName: "Grace Hopper"}}, "Grace", "Hopper"},
		{"single word", slack.User{RealName: "Grace"}, "Grace", ""},
		{"empty", slack.User{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, last := splitName(&tt.user)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
