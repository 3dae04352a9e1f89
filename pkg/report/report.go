package report

import (
	"context"
	"fmt"

	"github.com/patchnotifier/patch-notifier/pkg/jamf"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	log "github.com/sirupsen/logrus"
)

// Source provides patch titles and their version reports.
type Source interface {
	PatchTitles(ctx context.Context) ([]jamf.PatchTitle, error)
	PatchReport(ctx context.Context, titleID int) (*jamf.PatchReport, error)
}

// Stats summarises one aggregation pass.
type Stats struct {
	Titles        int
	FailedTitles  int
	Devices       int
	Outstanding   int
	UnknownSkips  int
	ShapeMismatch int
}

func (s Stats) String() string {
	return fmt.Sprintf("%d title(s) scanned (%d failed), %d outstanding patch(es) across %d device(s)",
		s.Titles, s.FailedTitles, s.Outstanding, s.Devices)
}

// BuildBacklog scans every patch title and groups outstanding patches by
// device. A title whose report cannot be fetched is logged and skipped.
func BuildBacklog(ctx context.Context, src Source) (*types.Backlog, Stats, error) {
	var stats Stats

	titles, err := src.PatchTitles(ctx)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list patch titles: %w", err)
	}

	backlog := &types.Backlog{}
	for _, title := range titles {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		stats.Titles++

		report, err := src.PatchReport(ctx, title.ID)
		if err != nil {
			stats.FailedTitles++
			log.Errorf("Failed to fetch patch report for %s (%d): %v", title.Name, title.ID, err)
			continue
		}
		if report.Name == "" {
			report.Name = title.Name
		}
		AddReport(backlog, report, &stats)
	}

	stats.Devices = backlog.Len()
	return backlog, stats, nil
}

// AddReport appends one outstanding patch per device listed against every
// version after the first. stats may be nil.
func AddReport(backlog *types.Backlog, report *jamf.PatchReport, stats *Stats) {
	if stats == nil {
		stats = &Stats{}
	}
	if len(report.Versions) == 0 {
		log.Debugf("Patch report for %s lists no versions, skipping", report.Name)
		return
	}

	current := report.Versions[0].SoftwareVersion
	for _, v := range report.Versions[1:] {
		if v.SoftwareVersion == jamf.UnknownVersion {
			stats.UnknownSkips += len(v.Computers.Computers)
			continue
		}
		computers := v.Computers.Computers
		if v.Computers.Size != len(computers) {
			stats.ShapeMismatch++
			log.Debugf("%s %s: reported %d computer(s) but listed %d", report.Name, v.SoftwareVersion, v.Computers.Size, len(computers))
		}
		for _, c := range computers {
			backlog.Add(c.ID, types.OutstandingPatch{
				Name:             report.Name,
				InstalledVersion: v.SoftwareVersion,
				LatestVersion:    current,
			})
			stats.Outstanding++
		}
	}
}
