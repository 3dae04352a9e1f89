package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/patchnotifier/patch-notifier/pkg/message"
	"github.com/patchnotifier/patch-notifier/pkg/notify"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Helper()
	t.Setenv(EnvJamfURL, "https://example.jamfcloud.com")
	t.Setenv(EnvJamfUser, "patch-api")
	t.Setenv(EnvJamfPassword, "s3cret")
	t.Setenv(EnvSlackToken, "xoxb-token")
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "patch-notifier.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "https://example.jamfcloud.com", cfg.Jamf.URL)
	assert.Equal(t, "patch-api", cfg.Jamf.Username)
	assert.Equal(t, "s3cret", cfg.Jamf.Password)
	assert.Equal(t, "xoxb-token", cfg.Slack.Token)
	assert.Equal(t, 30*time.Second, cfg.Jamf.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Jamf.RateLimitWait)
	assert.Equal(t, notify.DefaultOutOfOfficeEmoji, cfg.Slack.OutOfOfficeEmoji)
	assert.Equal(t, notify.DefaultSendInterval, cfg.Notify.SendInterval)
	assert.Empty(t, cfg.Notify.IgnoreHosts)
	defaults := message.DefaultRules()
	assert.Equal(t, defaults.SkipMarkers, cfg.Message.SkipMarkers)
	assert.Equal(t, defaults.UpdateGuide, cfg.Message.UpdateGuide)
	assert.Equal(t, defaults.SupportName, cfg.Message.SupportName)
	require.Len(t, cfg.Message.Instructions, len(defaults.Instructions))
	for i, in := range defaults.Instructions {
		assert.Equal(t, in.Match, cfg.Message.Instructions[i].Match)
		assert.Equal(t, in.Text, cfg.Message.Instructions[i].Text)
		assert.ElementsMatch(t, in.Except, cfg.Message.Instructions[i].Except)
	}
	assert.NoError(t, cfg.Validate(true))
}

func TestLoadFile(t *testing.T) {
	setCredentials(t)
	path := writeFile(t, `
jamf:
  url: https://file.example.com
  password: from-file
  rate_limit_wait: 5s
slack:
  token: xoxb-from-file
  out_of_office_emoji: [":airplane:"]
notify:
  ignore_hosts: [test-tim-9001, kiosk-01]
  send_interval: 1s
message:
  skip_markers: ["Apple macOS", "Apple iOS"]
  support_name: "#help-desk"
  instructions:
    - match: Zoom
      text: Quit Zoom before updating.
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.Jamf.URL)
	assert.Equal(t, "s3cret", cfg.Jamf.Password, "secrets must come from the environment")
	assert.Equal(t, "xoxb-token", cfg.Slack.Token, "secrets must come from the environment")
	assert.Equal(t, 5*time.Second, cfg.Jamf.RateLimitWait)
	assert.Equal(t, []string{":airplane:"}, cfg.Slack.OutOfOfficeEmoji)
	assert.Equal(t, []string{"test-tim-9001", "kiosk-01"}, cfg.Notify.IgnoreHosts)
	assert.Equal(t, time.Second, cfg.Notify.SendInterval)
	assert.Equal(t, []string{"Apple macOS", "Apple iOS"}, cfg.Message.SkipMarkers)
	assert.Equal(t, "#help-desk", cfg.Message.SupportName)
	require.Len(t, cfg.Message.Instructions, 1)
	assert.Equal(t, message.Instruction{Match: "Zoom", Text: "Quit Zoom before updating."}, cfg.Message.Instructions[0])
	assert.Equal(t, message.DefaultRules().UpdateGuide, cfg.Message.UpdateGuide)
}

func TestLoadFileErrors(t *testing.T) {
	setCredentials(t)

	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	path := writeFile(t, `
message:
  instructions:
    - match: ""
      text: nothing to match
`)
	_, err = Load(viper.New(), path)
	assert.ErrorContains(t, err, "invalid message rules")
}

func TestEnvironmentOverrides(t *testing.T) {
	setCredentials(t)
	t.Setenv(EnvJamfURL, "")
	t.Setenv("PATCH_NOTIFIER_JAMF_URL", "https://prefixed.example.com")
	t.Setenv("PATCH_NOTIFIER_NOTIFY_SEND_INTERVAL", "2s")
	t.Setenv("PATCH_NOTIFIER_NOTIFY_IGNORE_HOSTS", "a,b")

	v := viper.New()
	Environment(v)
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "https://prefixed.example.com", cfg.Jamf.URL)
	assert.Equal(t, 2*time.Second, cfg.Notify.SendInterval)
	assert.Equal(t, []string{"a", "b"}, cfg.Notify.IgnoreHosts)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		needChat bool
		missing  []string
	}{
		{
			name:     "complete",
			cfg:      Config{Jamf: Jamf{URL: "u", Username: "n", Password: "p"}, Slack: Slack{Token: "t"}},
			needChat: true,
		},
		{
			name:     "dry run needs no token",
			cfg:      Config{Jamf: Jamf{URL: "u", Username: "n", Password: "p"}},
			needChat: false,
		},
		{
			name:     "token missing",
			cfg:      Config{Jamf: Jamf{URL: "u", Username: "n", Password: "p"}},
			needChat: true,
			missing:  []string{EnvSlackToken},
		},
		{
			name:     "nothing set",
			needChat: true,
			missing:  []string{EnvJamfURL, EnvJamfUser, EnvJamfPassword, EnvSlackToken},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate(tt.needChat)
			if len(tt.missing) == 0 {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, types.ErrMissingCredentials)
			for _, name := range tt.missing {
				assert.Contains(t, err.Error(), name)
			}
		})
	}
}

func TestNotifyConfig(t *testing.T) {
	cfg := Config{
		Slack:  Slack{OutOfOfficeEmoji: []string{":palm_tree:"}},
		Notify: Notify{IgnoreHosts: []string{"kiosk"}, SendInterval: time.Second},
	}

	nc := cfg.NotifyConfig(&types.Options{Force: true, DeviceID: 7, DryRun: true})
	assert.Equal(t, notify.Config{
		IgnoreHosts:      []string{"kiosk"},
		OutOfOfficeEmoji: []string{":palm_tree:"},
		SendInterval:     time.Second,
		Force:            true,
		DeviceID:         7,
		DryRun:           true,
	}, nc)

	nc = cfg.NotifyConfig(&types.Options{SendInterval: 50 * time.Millisecond, TestEmail: "me@example.com"})
	assert.Equal(t, 50*time.Millisecond, nc.SendInterval)
	assert.Equal(t, "me@example.com", nc.TestEmail)
}
