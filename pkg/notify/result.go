package notify

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	log "github.com/sirupsen/logrus"
)

// Outcome is what happened to one device during a run.
type Outcome string

const (
	OutcomeSent    Outcome = "Sent"
	OutcomeOnLeave Outcome = "On-leave"
	OutcomeForced  Outcome = "Forced"
	OutcomeTest    Outcome = "Test"
	OutcomePlanned Outcome = "Planned"
	OutcomeSkipped Outcome = "Skipped"
	OutcomeFailed  Outcome = "Failed"
)

// Result records the outcome for one device.
type Result struct {
	DeviceID int
	Hostname string
	User     string
	Outcome  Outcome
	Detail   string
	// Reason is set for skipped devices.
	Reason error
	Err    error
}

func (r Result) skip(reason error) Result {
	r.Outcome = OutcomeSkipped
	r.Detail = reason.Error()
	r.Reason = reason
	return r
}

func (r Result) fail(err error) Result {
	r.Outcome = OutcomeFailed
	r.Detail = err.Error()
	r.Err = err
	return r
}

// Delivered reports whether at least one message reached the user.
func (r Result) Delivered() bool {
	switch r.Outcome {
	case OutcomeSent, OutcomeOnLeave, OutcomeForced, OutcomeTest:
		return true
	default:
		return false
	}
}

// Tally counts results per outcome.
func Tally(results []Result) map[Outcome]int {
	out := make(map[Outcome]int)
	for _, r := range results {
		out[r.Outcome]++
	}
	return out
}

func printSummary(results []Result) {
	if len(results) == 0 {
		return
	}

	var buf bytes.Buffer
	writer := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(writer, "DEVICE\tHOSTNAME\tUSER\tOUTCOME\tDETAILS")
	for _, r := range results {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			strconv.Itoa(r.DeviceID), orDash(r.Hostname), orDash(r.User), r.Outcome, orDash(r.Detail))
	}
	writer.Flush()

	tally := Tally(results)
	log.Infof("\n\n--- Notification Summary ---\n%s", buf.String())
	log.Infof("All tasks completed: %d delivered, %d planned, %d skipped, %d failed",
		tally[OutcomeSent]+tally[OutcomeOnLeave]+tally[OutcomeForced]+tally[OutcomeTest],
		tally[OutcomePlanned], tally[OutcomeSkipped], tally[OutcomeFailed])
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
