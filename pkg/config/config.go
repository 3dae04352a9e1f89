package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/patchnotifier/patch-notifier/pkg/jamf"
	"github.com/patchnotifier/patch-notifier/pkg/message"
	"github.com/patchnotifier/patch-notifier/pkg/notify"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	"github.com/patchnotifier/patch-notifier/pkg/utils"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces the non-secret setting overrides, e.g.
// PATCH_NOTIFIER_NOTIFY_IGNORE_HOSTS.
const EnvPrefix = "patch_notifier"

// Credential environment variables.
const (
	EnvJamfURL      = "JAMF_URL"
	EnvJamfUser     = "JAMF_PATCH_USER"
	EnvJamfPassword = "JAMF_PATCH_PASS"
	EnvSlackToken   = "SLACK_MAILER_TOKEN"
)

var credentials = map[string]string{
	"jamf.url":      EnvJamfURL,
	"jamf.username": EnvJamfUser,
	"jamf.password": EnvJamfPassword,
	"slack.token":   EnvSlackToken,
}

type Jamf struct {
	URL           string        `mapstructure:"url" yaml:"url"`
	Username      string        `mapstructure:"username" yaml:"-"`
	Password      string        `mapstructure:"password" yaml:"-"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
	RateLimitWait time.Duration `mapstructure:"rate_limit_wait" yaml:"rate_limit_wait"`
}

type Slack struct {
	Token            string   `mapstructure:"token" yaml:"-"`
	APIURL           string   `mapstructure:"api_url" yaml:"api_url,omitempty"`
	OutOfOfficeEmoji []string `mapstructure:"out_of_office_emoji" yaml:"out_of_office_emoji"`
}

type Notify struct {
	IgnoreHosts  []string      `mapstructure:"ignore_hosts" yaml:"ignore_hosts"`
	SendInterval time.Duration `mapstructure:"send_interval" yaml:"send_interval"`
}

// Config is the runtime configuration. Credentials only ever come from the
// environment; everything else may also be set in an optional YAML file.
type Config struct {
	Jamf    Jamf          `mapstructure:"jamf" yaml:"jamf"`
	Slack   Slack         `mapstructure:"slack" yaml:"slack"`
	Notify  Notify        `mapstructure:"notify" yaml:"notify"`
	Message message.Rules `mapstructure:"message" yaml:"message"`
}

// SetDefaults registers every key with its default so that environment
// overrides are visible to Unmarshal.
func SetDefaults(v *viper.Viper) {
	rules := message.DefaultRules()

	v.SetDefault("jamf.url", "")
	v.SetDefault("jamf.username", "")
	v.SetDefault("jamf.password", "")
	v.SetDefault("jamf.timeout", 30*time.Second)
	v.SetDefault("jamf.rate_limit_wait", jamf.DefaultRateLimitWait)

	v.SetDefault("slack.token", "")
	v.SetDefault("slack.api_url", "")
	v.SetDefault("slack.out_of_office_emoji", notify.DefaultOutOfOfficeEmoji)

	v.SetDefault("notify.ignore_hosts", []string{})
	v.SetDefault("notify.send_interval", notify.DefaultSendInterval)

	v.SetDefault("message.skip_markers", rules.SkipMarkers)
	v.SetDefault("message.instructions", rules.Instructions)
	v.SetDefault("message.update_guide", rules.UpdateGuide)
	v.SetDefault("message.support_url", rules.SupportURL)
	v.SetDefault("message.support_name", rules.SupportName)
	v.SetDefault("message.template", rules.Template)
}

// Environment enables PATCH_NOTIFIER_* overrides for every key, e.g.
// PATCH_NOTIFIER_NOTIFY_SEND_INTERVAL=1s.
func Environment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// BindEnv maps the credential variables onto their keys. The prefixed form
// (e.g. PATCH_NOTIFIER_JAMF_URL) is accepted as a fallback.
func BindEnv(v *viper.Viper) error {
	for key, env := range credentials {
		if err := v.BindEnv(key, env, prefixedEnv(key)); err != nil {
			return fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}
	return nil
}

// Load reads configuration from the environment and, when file is set, from
// a YAML file. Secrets in the file are ignored.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.Notify.IgnoreHosts = utils.NormalizeList(cfg.Notify.IgnoreHosts)
	cfg.Slack.OutOfOfficeEmoji = utils.NormalizeList(cfg.Slack.OutOfOfficeEmoji)

	// Secrets placed in the file are ignored.
	cfg.Jamf.Username = fromEnv("jamf.username")
	cfg.Jamf.Password = fromEnv("jamf.password")
	cfg.Slack.Token = fromEnv("slack.token")
	if err := cfg.Message.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message rules: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the credentials a run needs are present. The chat
// token is not needed for a dry run.
func (c *Config) Validate(needChat bool) error {
	var missing []string
	if c.Jamf.URL == "" {
		missing = append(missing, EnvJamfURL)
	}
	if c.Jamf.Username == "" {
		missing = append(missing, EnvJamfUser)
	}
	if c.Jamf.Password == "" {
		missing = append(missing, EnvJamfPassword)
	}
	if needChat && c.Slack.Token == "" {
		missing = append(missing, EnvSlackToken)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", types.ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}

// NotifyConfig builds the dispatcher configuration from c and the run options.
func (c *Config) NotifyConfig(opts *types.Options) notify.Config {
	interval := c.Notify.SendInterval
	if opts.SendInterval > 0 {
		interval = opts.SendInterval
	}
	return notify.Config{
		IgnoreHosts:      c.Notify.IgnoreHosts,
		OutOfOfficeEmoji: c.Slack.OutOfOfficeEmoji,
		SendInterval:     interval,
		Force:            opts.Force,
		TestEmail:        opts.TestEmail,
		DeviceID:         opts.DeviceID,
		DryRun:           opts.DryRun,
	}
}

// fromEnv returns the first non-empty value among the variables bound to key.
func fromEnv(key string) string {
	return utils.GetEnvAny(envNames(key)...)
}

func envNames(key string) []string {
	return []string{credentials[key], prefixedEnv(key)}
}

func prefixedEnv(key string) string {
	return strings.ToUpper(EnvPrefix + "_" + strings.ReplaceAll(key, ".", "_"))
}
