package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/patchnotifier/patch-notifier/pkg/types"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// SlackClient resolves users by email and sends them direct messages.
type SlackClient struct {
	api *slack.Client
}

type Option func(*[]slack.Option)

// WithAPIURL points the client at a different Slack API endpoint.
func WithAPIURL(url string) Option {
	return func(o *[]slack.Option) {
		if url == "" {
			return
		}
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}
		*o = append(*o, slack.OptionAPIURL(url))
	}
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *[]slack.Option) {
		*o = append(*o, slack.OptionHTTPClient(hc))
	}
}

func NewSlackClient(token string, opts ...Option) *SlackClient {
	var slackOpts []slack.Option
	for _, o := range opts {
		o(&slackOpts)
	}
	if log.IsLevelEnabled(log.DebugLevel) {
		slackOpts = append(slackOpts, slack.OptionDebug(true), slack.OptionLog(debugLogger{}))
	}
	return &SlackClient{api: slack.New(token, slackOpts...)}
}

// LookupUser finds the Slack user registered with email.
func (c *SlackClient) LookupUser(ctx context.Context, email string) (*types.UserIdentity, error) {
	user, err := c.api.GetUserByEmailContext(ctx, email)
	if err != nil {
		if isUserNotFound(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("failed to look up Slack user %s: %w", email, err)
	}

	first, last := splitName(user)
	return &types.UserIdentity{
		ID:          user.ID,
		FirstName:   first,
		LastName:    last,
		Email:       email,
		StatusEmoji: user.Profile.StatusEmoji,
		StatusText:  user.Profile.StatusText,
	}, nil
}

// PostMessage sends text as a direct message to the user with userID.
func (c *SlackClient) PostMessage(ctx context.Context, userID, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, userID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("failed to post message to %s: %w", userID, err)
	}
	return nil
}

func isUserNotFound(err error) bool {
	var resp slack.SlackErrorResponse
	if errors.As(err, &resp) {
		return resp.Err == "users_not_found"
	}
	return err.Error() == "users_not_found"
}

// splitName prefers the structured profile names and falls back to the
// first and last words of the display real name.
func splitName(u *slack.User) (string, string) {
	if u.Profile.FirstName != "" || u.Profile.LastName != "" {
		return u.Profile.FirstName, u.Profile.LastName
	}
	realName := u.RealName
	if realName == "" {
		realName = u.Profile.RealName
	}
	fields := strings.Fields(realName)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return fields[0], fields[len(fields)-1]
	}
}

type debugLogger struct{}

func (debugLogger) Output(_ int, s string) error {
	log.Debug(strings.TrimSpace(s))
	return nil
}
