package notify

import (
	"fmt"

	"github.com/patchnotifier/patch-notifier/pkg/message"
	"github.com/patchnotifier/patch-notifier/pkg/report"
	"github.com/patchnotifier/patch-notifier/pkg/tui"
	"github.com/patchnotifier/patch-notifier/pkg/types"
)

// plan renders the message recipient would receive for device without
// contacting the chat platform.
func (n *Notifier) plan(res Result, device *types.Device, patches types.OutstandingPatches, recipient string, v message.Variant) Result {
	text, err := n.composer.Compose(v, "", device.Hostname, patches)
	if err != nil {
		return res.fail(err)
	}

	listed, _ := n.composer.Filter(patches)
	p := tui.MessagePlan{
		DeviceID:  device.ID,
		Hostname:  device.Hostname,
		Recipient: recipient,
		Variant:   v.String(),
		Text:      text,
	}
	for _, op := range listed {
		p.Patches = append(p.Patches, tui.PlannedPatch{
			Name:             op.Name,
			InstalledVersion: op.InstalledVersion,
			LatestVersion:    op.LatestVersion,
			Gap:              report.Gap(op.InstalledVersion, op.LatestVersion),
		})
	}
	fmt.Fprint(n.out, tui.RenderMessagePlan(p))

	res.Outcome = OutcomePlanned
	res.Detail = fmt.Sprintf("%d patch(es) to %s", len(listed), recipient)
	return res
}
