package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/patchnotifier/patch-notifier/pkg/message"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Directory resolves device IDs to managed computers.
type Directory interface {
	Computer(ctx context.Context, id int) (*types.Device, error)
}

// Chat looks up users and delivers messages on the chat platform.
type Chat interface {
	LookupUser(ctx context.Context, email string) (*types.UserIdentity, error)
	PostMessage(ctx context.Context, userID, text string) error
}

// DefaultOutOfOfficeEmoji are the status markers that mean a user is away.
var DefaultOutOfOfficeEmoji = []string{":palm_tree:", ":face_with_thermometer:"}

// DefaultSendInterval spaces out chat messages to stay clear of rate limits.
const DefaultSendInterval = 500 * time.Millisecond

// Config controls which devices are notified and how.
type Config struct {
	IgnoreHosts      []string
	OutOfOfficeEmoji []string
	SendInterval     time.Duration

	// Force sends the regular message even to users marked out of office.
	Force bool
	// TestEmail redirects both message variants for DeviceID to this address
	// and ends the run.
	TestEmail string
	DeviceID  int
	// DryRun composes messages without contacting the chat platform.
	DryRun bool
}

// Notifier dispatches one message per device in a backlog.
type Notifier struct {
	cfg      Config
	dir      Directory
	chat     Chat
	composer *message.Composer
	limiter  *rate.Limiter
	out      io.Writer
	ignore   map[string]bool
}

type Option func(*Notifier)

// WithOutput sets where dry-run plans are rendered. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(n *Notifier) { n.out = w }
}

func New(cfg Config, dir Directory, chat Chat, composer *message.Composer, opts ...Option) *Notifier {
	if cfg.OutOfOfficeEmoji == nil {
		cfg.OutOfOfficeEmoji = DefaultOutOfOfficeEmoji
	}
	limit := rate.Inf
	if cfg.SendInterval > 0 {
		limit = rate.Every(cfg.SendInterval)
	}

	n := &Notifier{
		cfg:      cfg,
		dir:      dir,
		chat:     chat,
		composer: composer,
		limiter:  rate.NewLimiter(limit, 1),
		out:      os.Stdout,
		ignore:   make(map[string]bool, len(cfg.IgnoreHosts)),
	}
	for _, h := range cfg.IgnoreHosts {
		if h = strings.TrimSpace(h); h != "" {
			n.ignore[strings.ToLower(h)] = true
		}
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Run notifies every device in backlog, or only the configured device. A
// failure for one device is logged and the run moves on; all failures are
// returned together once every device has been attempted.
func (n *Notifier) Run(ctx context.Context, backlog *types.Backlog) ([]Result, error) {
	if n.cfg.TestEmail != "" {
		res, err := n.runTest(ctx, backlog)
		return []Result{res}, err
	}

	ids := backlog.Devices()
	if n.cfg.DeviceID > 0 {
		if !backlog.Has(n.cfg.DeviceID) {
			log.Warnf("Device %d has no outstanding patches", n.cfg.DeviceID)
			return nil, nil
		}
		ids = []int{n.cfg.DeviceID}
	}

	log.Infof("Composing messages for %d device(s)", len(ids))

	var (
		results  []Result
		multiErr *multierror.Error
	)
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			multiErr = multierror.Append(multiErr, err)
			break
		}
		res := n.notifyDevice(ctx, id, backlog.Patches(id))
		results = append(results, res)
		if res.Err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("device %d: %w", id, res.Err))
		}
	}

	printSummary(results)
	return results, multiErr.ErrorOrNil()
}

func (n *Notifier) notifyDevice(ctx context.Context, id int, patches types.OutstandingPatches) Result {
	res := Result{DeviceID: id}

	if len(patches) == 0 {
		log.Warnf("Issue detected with inventory on device %d", id)
		return res.skip(types.ErrNoBacklog)
	}

	device, err := n.dir.Computer(ctx, id)
	if err != nil {
		log.Errorf("An error occurred while resolving device %d: %v", id, err)
		return res.fail(err)
	}
	res.Hostname = device.Hostname

	if reason := n.skipReason(device, patches); reason != nil {
		log.Infof("Skipping %s as %v", device, reason)
		return res.skip(reason)
	}

	if n.cfg.DryRun {
		return n.plan(res, device, patches, device.Email, message.Regular)
	}

	user, err := n.chat.LookupUser(ctx, device.Email)
	if err != nil {
		log.Errorf("An error occurred while processing %s (%s): %v", device, device.Email, err)
		return res.fail(err)
	}
	res.User = user.ID

	variant, outcome := message.Regular, OutcomeSent
	if n.outOfOffice(user) {
		if n.cfg.Force {
			outcome = OutcomeForced
		} else {
			variant, outcome = message.OnLeave, OutcomeOnLeave
		}
	}

	if err := n.send(ctx, variant, user, device, patches); err != nil {
		log.Errorf("An error occurred while processing %s - %s %s: %v", user.ID, user.FirstName, user.LastName, err)
		return res.fail(err)
	}

	switch outcome {
	case OutcomeForced:
		log.Infof("Message has been sent to %s - %s, ignoring Slack status %s", user.ID, user.FullName(), user.StatusEmoji)
	case OutcomeOnLeave:
		log.Infof("On-leave message has been sent to %s - %s", user.ID, user.FullName())
	default:
		log.Infof("Message has successfully been sent to %s - %s", user.ID, user.FullName())
	}
	res.Outcome = outcome
	res.Detail = variant.String()
	return res
}

// runTest sends both message variants for the configured device to the
// operator's test address.
func (n *Notifier) runTest(ctx context.Context, backlog *types.Backlog) (Result, error) {
	id := n.cfg.DeviceID
	res := Result{DeviceID: id}

	if !backlog.Has(id) {
		log.Warnf("Device %d has no outstanding patches, test case over", id)
		return res.skip(types.ErrNoBacklog), nil
	}
	log.Infof("Device %d has been found and has patches to complete", id)
	patches := backlog.Patches(id)

	device, err := n.dir.Computer(ctx, id)
	if err != nil {
		return res.fail(err), fmt.Errorf("failed to resolve device %d: %w", id, err)
	}
	res.Hostname = device.Hostname

	if n.ignored(device.Hostname) {
		log.Infof("Skipping %s as in ignore list, test case over", device)
		return res.skip(errIgnored), nil
	}
	if n.composer.Empty(patches) {
		log.Infof("Skipping %s as only ignored apps available to patch, test case over", device)
		return res.skip(errOnlyIgnoredApps), nil
	}
	if !ValidEmail(n.cfg.TestEmail) {
		log.Warnf("Test address %q is not a valid email address", n.cfg.TestEmail)
		return res.skip(fmt.Errorf("%w: test address %q", types.ErrInvalidEmail, n.cfg.TestEmail)), nil
	}

	if n.cfg.DryRun {
		for _, v := range []message.Variant{message.Regular, message.OnLeave} {
			res = n.plan(res, device, patches, n.cfg.TestEmail, v)
			if res.Err != nil {
				return res, res.Err
			}
		}
		res.Detail = "regular+on-leave to " + n.cfg.TestEmail
		return res, nil
	}

	user, err := n.chat.LookupUser(ctx, n.cfg.TestEmail)
	if err != nil {
		return res.fail(err), fmt.Errorf("failed to look up test user %s: %w", n.cfg.TestEmail, err)
	}
	res.User = user.ID

	for _, v := range []message.Variant{message.Regular, message.OnLeave} {
		log.Infof("Sending %s test message for %s to %s - %s", v, device, user.ID, user.FullName())
		if err := n.send(ctx, v, user, device, patches); err != nil {
			return res.fail(err), fmt.Errorf("failed to send %s test message: %w", v, err)
		}
	}

	log.Infof("Messages have successfully been sent for %s to %s - %s", device, user.ID, user.FullName())
	res.Outcome = OutcomeTest
	res.Detail = "regular+on-leave"
	return res, nil
}

func (n *Notifier) send(ctx context.Context, v message.Variant, user *types.UserIdentity, device *types.Device, patches types.OutstandingPatches) error {
	text, err := n.composer.Compose(v, user.FirstName, device.Hostname, patches)
	if err != nil {
		return err
	}
	if text == "" {
		return fmt.Errorf("%s message for %s rendered empty", v, device)
	}
	if err := n.limiter.Wait(ctx); err != nil {
		return err
	}
	return n.chat.PostMessage(ctx, user.ID, text)
}

var (
	errIgnored         = errors.New("in ignore list")
	errOnlyIgnoredApps = errors.New("only ignored apps available to patch")
)

// skipReason returns why a device gets no message, or nil.
func (n *Notifier) skipReason(device *types.Device, patches types.OutstandingPatches) error {
	switch {
	case n.ignored(device.Hostname):
		return errIgnored
	case strings.TrimSpace(device.Email) == "":
		return fmt.Errorf("%w: no email has been specified", types.ErrInvalidEmail)
	case !ValidEmail(device.Email):
		return fmt.Errorf("%w: %q", types.ErrInvalidEmail, device.Email)
	case n.composer.Empty(patches):
		return errOnlyIgnoredApps
	default:
		return nil
	}
}

func (n *Notifier) ignored(hostname string) bool {
	return n.ignore[strings.ToLower(strings.TrimSpace(hostname))]
}

// outOfOffice reports whether the user's status emoji is an away marker.
// Markers match with or without their surrounding colons.
func (n *Notifier) outOfOffice(user *types.UserIdentity) bool {
	status := normalizeEmoji(user.StatusEmoji)
	if status == "" {
		return false
	}
	for _, m := range n.cfg.OutOfOfficeEmoji {
		if normalizeEmoji(m) == status {
			return true
		}
	}
	return false
}

func normalizeEmoji(s string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(s), ":"))
}

var emailPattern = regexp.MustCompile(`^.+@.+\..+$`)

// ValidEmail checks that s has the rough shape local@domain.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
