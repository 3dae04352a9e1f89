package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/patchnotifier/patch-notifier/pkg/chat"
	"github.com/patchnotifier/patch-notifier/pkg/config"
	"github.com/patchnotifier/patch-notifier/pkg/jamf"
	"github.com/patchnotifier/patch-notifier/pkg/message"
	"github.com/patchnotifier/patch-notifier/pkg/notify"
	"github.com/patchnotifier/patch-notifier/pkg/report"
	"github.com/patchnotifier/patch-notifier/pkg/tui"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const userAgent = "patch-notifier"

type notifyArgs struct {
	force        bool
	testEmail    string
	deviceID     int
	dryRun       bool
	configFile   string
	sendInterval time.Duration
	timeout      time.Duration
}

func (a *notifyArgs) options() *types.Options {
	return &types.Options{
		Force:        a.force,
		TestEmail:    a.testEmail,
		DeviceID:     a.deviceID,
		DryRun:       a.dryRun,
		ConfigFile:   a.configFile,
		SendInterval: a.sendInterval,
		Timeout:      a.timeout,
	}
}

func (a *notifyArgs) validate() error {
	opts := a.options()
	if opts.DeviceID < 0 {
		return fmt.Errorf("--id must be a positive device ID, got %d", opts.DeviceID)
	}
	if opts.TestMode() && !opts.HasDeviceFilter() {
		return errors.New("no device ID passed: --slack_test requires --id")
	}
	if opts.TestMode() && !notify.ValidEmail(opts.TestEmail) {
		return fmt.Errorf("%w: --slack_test %q", types.ErrInvalidEmail, opts.TestEmail)
	}
	if opts.SendInterval < 0 || opts.Timeout < 0 {
		return errors.New("--send-interval and --timeout must not be negative")
	}
	return nil
}

// NewNotifyCmd returns the command that scans patch reports and notifies
// device owners. It is used as the root command.
func NewNotifyCmd() *cobra.Command {
	ua := notifyArgs{}
	notifyCmd := &cobra.Command{
		Use:   "patch-notifier",
		Short: "Notify Mac users about outdated applications",
		Long:  "Scans Jamf patch reports and sends each device owner a Slack message listing the applications that need updating.",
		Example: `  patch-notifier
  patch-notifier --dry-run --id 42
  patch-notifier --slack_test me@example.com --id 42`,
		Args: cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			return ua.validate()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts := ua.options()
			cfg, err := config.Load(viper.GetViper(), opts.ConfigFile)
			if err != nil {
				return err
			}
			if err := Run(cmd.Context(), opts, cfg); err != nil {
				fmt.Fprintln(os.Stderr, tui.RenderError(getErrorInfo(err)))
				return err
			}
			return nil
		},
		SilenceUsage: true,
	}

	flags := notifyCmd.Flags()
	flags.BoolVarP(&ua.force, "force", "f", false, "Send the regular message even when the user's status says they are away")
	flags.StringVarP(&ua.testEmail, "slack_test", "t", "", "Send both message variants for --id to this email instead of the device owner")
	flags.IntVar(&ua.deviceID, "id", 0, "Only process this device ID")
	flags.BoolVar(&ua.dryRun, "dry-run", false, "Compose and print messages without sending them")
	flags.DurationVar(&ua.sendInterval, "send-interval", 0, "Minimum spacing between chat messages, defaults to the configured value (500ms)")
	flags.DurationVar(&ua.timeout, "timeout", 0, "Timeout for each Jamf request, defaults to the configured value (30s)")
	notifyCmd.PersistentFlags().StringVar(&ua.configFile, "config", "", "Path to a YAML file with message rules and settings")

	notifyCmd.AddCommand(newConfigCmd(&ua))
	return notifyCmd
}

// Run performs one notification pass: authenticate, aggregate the patch
// backlog and dispatch messages.
func Run(ctx context.Context, opts *types.Options, cfg *config.Config) error {
	if err := cfg.Validate(!opts.DryRun); err != nil {
		return err
	}

	composer, err := message.NewComposer(cfg.Message)
	if err != nil {
		return err
	}

	timeout := cfg.Jamf.Timeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	client, err := jamf.NewClient(cfg.Jamf.URL,
		jamf.WithHTTPClient(&http.Client{Timeout: timeout}),
		jamf.WithUserAgent(userAgent),
		jamf.WithRateLimitWait(cfg.Jamf.RateLimitWait),
	)
	if err != nil {
		return err
	}
	if err := client.Authenticate(ctx, cfg.Jamf.Username, cfg.Jamf.Password); err != nil {
		log.Errorf("Could not acquire a Jamf token: %v", err)
		return fmt.Errorf("failed to authenticate with jamf: %w", err)
	}

	backlog, stats, err := report.BuildBacklog(ctx, client)
	if err != nil {
		return err
	}
	log.Info(stats.String())
	switch {
	case opts.TestMode():
		log.Infof("Test mode: device %d goes to %s", opts.DeviceID, opts.TestEmail)
	case opts.HasDeviceFilter():
		log.Infof("Only processing device %d", opts.DeviceID)
	}

	var chatClient notify.Chat
	if !opts.DryRun {
		var slackOpts []chat.Option
		if cfg.Slack.APIURL != "" {
			slackOpts = append(slackOpts, chat.WithAPIURL(cfg.Slack.APIURL))
		}
		chatClient = chat.NewSlackClient(cfg.Slack.Token, slackOpts...)
	}

	notifier := notify.New(cfg.NotifyConfig(opts), client, chatClient, composer)
	results, err := notifier.Run(ctx, backlog)
	if err != nil {
		return err
	}
	log.Debugf("Run finished: %v", notify.Tally(results))
	return nil
}

// getErrorInfo maps common errors to styled error info.
func getErrorInfo(err error) tui.ErrorInfo {
	errStr := err.Error()

	var statusErr *jamf.StatusError
	var merr *multierror.Error
	switch {
	case errors.Is(err, context.Canceled):
		return tui.ErrorInfo{
			Title:   "Operation Canceled",
			Message: "Run was canceled by user",
		}
	case errors.Is(err, types.ErrMissingCredentials):
		return tui.ErrorInfo{
			Title:   "Missing Credentials",
			Message: errStr,
			Hint:    "Export the variables or put them in a .env file in the working directory",
		}
	case containsIgnoreCase(errStr, "authenticate") && (containsIgnoreCase(errStr, "401") || containsIgnoreCase(errStr, "unauthorized")):
		return tui.ErrorInfo{
			Title:   "Authentication Failed",
			Message: errStr,
			Hint:    "Check JAMF_PATCH_USER and JAMF_PATCH_PASS",
		}
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound:
		return tui.ErrorInfo{
			Title:   "Resource Not Found",
			Message: errStr,
			Hint:    "Check that JAMF_URL points at the Jamf Pro server root",
		}
	case containsIgnoreCase(errStr, "connection refused") || containsIgnoreCase(errStr, "no such host"):
		return tui.ErrorInfo{
			Title:   "Connection Failed",
			Message: errStr,
			Hint:    "Check that JAMF_URL is reachable from this machine",
		}
	case errors.As(err, &merr):
		return tui.ErrorInfo{
			Title:   "Some Notifications Failed",
			Message: fmt.Sprintf("%d device(s) could not be notified", len(merr.Errors)),
			Hint:    "See the run summary above; rerun with --id to retry a single device",
		}
	default:
		return tui.ErrorInfo{
			Title:   "Run Failed",
			Message: errStr,
		}
	}
}

// containsIgnoreCase checks if s contains substr (case-insensitive).
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
