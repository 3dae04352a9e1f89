package message

import (
	"fmt"
	"strings"
)

// Instruction is a remediation hint appended to a message the first time a
// patch whose name contains Match is listed. Patches whose name contains any
// of Except do not trigger it.
type Instruction struct {
	Match  string   `mapstructure:"match" yaml:"match"`
	Except []string `mapstructure:"except" yaml:"except,omitempty"`
	Text   string   `mapstructure:"text" yaml:"text"`
}

func (i Instruction) applies(name string) bool {
	if !strings.Contains(name, i.Match) {
		return false
	}
	for _, e := range i.Except {
		if e != "" && strings.Contains(name, e) {
			return false
		}
	}
	return true
}

// Rules control which patches are mentioned and what is said about them.
type Rules struct {
	// SkipMarkers drop any patch whose name contains one of them, e.g. OS
	// updates the user cannot act on from Self Service.
	SkipMarkers  []string      `mapstructure:"skip_markers" yaml:"skip_markers"`
	Instructions []Instruction `mapstructure:"instructions" yaml:"instructions"`

	UpdateGuide string `mapstructure:"update_guide" yaml:"update_guide"`
	SupportURL  string `mapstructure:"support_url" yaml:"support_url,omitempty"`
	SupportName string `mapstructure:"support_name" yaml:"support_name"`

	// Template overrides the built-in message template.
	Template string `mapstructure:"template" yaml:"template,omitempty"`
}

const (
	SafariInstruction = `To update Safari, go to System Preferences > Software Update > More Info..., check that Safari is ticked, and then click "Install Now".`
	AdobeInstruction  = `To update Adobe Apps, you will need to use Adobe Creative Cloud rather than Self Service.`
)

// DefaultRules returns the rules used when no configuration overrides them.
func DefaultRules() Rules {
	return Rules{
		SkipMarkers: []string{"Apple macOS"},
		Instructions: []Instruction{
			{Match: "Apple Safari", Text: SafariInstruction},
			{Match: "Adobe", Except: []string{"Adobe Acrobat DC"}, Text: AdobeInstruction},
		},
		UpdateGuide: "Self Service",
		SupportName: "the IT team",
	}
}

// Validate checks that every instruction can match and says something.
func (r Rules) Validate() error {
	for i, in := range r.Instructions {
		if in.Match == "" {
			return fmt.Errorf("instruction %d: match must not be empty", i)
		}
		if strings.TrimSpace(in.Text) == "" {
			return fmt.Errorf("instruction %d (%s): text must not be empty", i, in.Match)
		}
	}
	return nil
}

func (r Rules) skipped(name string) bool {
	for _, m := range r.SkipMarkers {
		if m != "" && strings.Contains(name, m) {
			return true
		}
	}
	return false
}
