package message

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/patchnotifier/patch-notifier/pkg/types"
)

// Variant selects the greeting used for a message.
type Variant int

const (
	// Regular asks the user to update now.
	Regular Variant = iota
	// OnLeave asks the user to update once they are back.
	OnLeave
)

func (v Variant) String() string {
	switch v {
	case Regular:
		return "regular"
	case OnLeave:
		return "on-leave"
	default:
		return fmt.Sprintf("Variant(%d)", int(v))
	}
}

const defaultTemplate = "Hi {{ escape .FirstName }},\n" +
	"Your laptop ({{ escape .Hostname }}) has one or more applications that need to be updated" +
	"{{ if .OnLeave }}, can you update these once you're back?{{ else }}:{{ end }}\n" +
	"{{ range .Patches }}    - {{ escape .Name }} -> {{ escape .LatestVersion }}\n{{ end }}" +
	"{{ range .Instructions }}{{ . }} {{ end }}\n\n" +
	"You can update most applications by going to {{ .UpdateGuide }}.\n\n" +
	"If you are unsure how to update a specific app, please get in touch: " +
	"{{ if .SupportURL }}<{{ .SupportURL }}|{{ .SupportName }}>{{ else }}{{ .SupportName }}{{ end }}\n" +
	"_This is an automated message so apologies if I don't see your response_"

// Body is the data a message template is rendered with.
type Body struct {
	FirstName    string
	Hostname     string
	OnLeave      bool
	Patches      types.OutstandingPatches
	Instructions []string
	UpdateGuide  string
	SupportURL   string
	SupportName  string
}

// Composer turns a device's outstanding patches into message text.
type Composer struct {
	rules Rules
	tmpl  *template.Template
}

func NewComposer(rules Rules) (*Composer, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	text := rules.Template
	if text == "" {
		text = defaultTemplate
	}
	tmpl, err := template.New("message").Funcs(template.FuncMap{"escape": escape}).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("invalid message template: %w", err)
	}
	return &Composer{rules: rules, tmpl: tmpl}, nil
}

// Filter returns the patches worth mentioning and the instructions they
// trigger. Each instruction appears at most once, in first-seen order.
func (c *Composer) Filter(patches types.OutstandingPatches) (types.OutstandingPatches, []string) {
	var listed types.OutstandingPatches
	var instructions []string
	seen := make(map[int]bool, len(c.rules.Instructions))

	for _, p := range patches {
		if c.rules.skipped(p.Name) {
			continue
		}
		listed = append(listed, p)

		for i, in := range c.rules.Instructions {
			if seen[i] || !in.applies(p.Name) {
				continue
			}
			seen[i] = true
			instructions = append(instructions, in.Text)
		}
	}
	return listed, instructions
}

// Compose renders the message for a device. It returns "" when no patch
// survives filtering, in which case nothing should be sent.
func (c *Composer) Compose(v Variant, firstName, hostname string, patches types.OutstandingPatches) (string, error) {
	listed, instructions := c.Filter(patches)
	if len(listed) == 0 {
		return "", nil
	}
	if firstName == "" {
		firstName = "there"
	}

	body := Body{
		FirstName:    firstName,
		Hostname:     hostname,
		OnLeave:      v == OnLeave,
		Patches:      listed,
		Instructions: instructions,
		UpdateGuide:  c.rules.UpdateGuide,
		SupportURL:   c.rules.SupportURL,
		SupportName:  c.rules.SupportName,
	}

	var b strings.Builder
	if err := c.tmpl.Execute(&b, body); err != nil {
		return "", fmt.Errorf("failed to render %s message for %s: %w", v, hostname, err)
	}
	return b.String(), nil
}

// Empty reports whether patches would produce no message at all.
func (c *Composer) Empty(patches types.OutstandingPatches) bool {
	listed, _ := c.Filter(patches)
	return len(listed) == 0
}

var slackEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// escape applies Slack's control character escaping to user-derived text.
func escape(s string) string {
	return slackEscaper.Replace(s)
}
