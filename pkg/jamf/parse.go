package jamf

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/patchnotifier/patch-notifier/pkg/types"
	"github.com/pkg/errors"
)

const (
	titlesXPathQuery   = "/patch_software_titles"
	reportXPathQuery   = "/patch_report"
	computerXPathQuery = "/computer"

	// Jamf renders a single computer as a lone <computer> element and several
	// computers as repeated elements; Find returns both as a slice.
	versionsXPathQuery  = "versions/version"
	computersXPathQuery = "computers/computer"
)

func parsePatchTitles(doc *xmlquery.Node) ([]PatchTitle, int, error) {
	root := xmlquery.FindOne(doc, titlesXPathQuery)
	if root == nil {
		return nil, 0, errors.Errorf("no %s element in patch title list", titlesXPathQuery)
	}
	size, err := intAt(root, "size")
	if err != nil {
		return nil, 0, err
	}

	var titles []PatchTitle
	for _, node := range xmlquery.Find(root, "patch_software_title") {
		id, err := intAt(node, "id")
		if err != nil {
			return nil, 0, err
		}
		titles = append(titles, PatchTitle{ID: id, Name: textAt(node, "name")})
	}
	return titles, size, nil
}

func parsePatchReport(doc *xmlquery.Node) (*PatchReport, error) {
	root := xmlquery.FindOne(doc, reportXPathQuery)
	if root == nil {
		return nil, errors.Errorf("no %s element in patch report", reportXPathQuery)
	}

	report := &PatchReport{Name: textAt(root, "name")}
	var err error
	if report.TitleID, err = intAt(root, "patch_software_title_id"); err != nil {
		return nil, err
	}
	if report.TotalComputers, err = intAt(root, "total_computers"); err != nil {
		return nil, err
	}
	if report.TotalVersions, err = intAt(root, "total_versions"); err != nil {
		return nil, err
	}

	for _, node := range xmlquery.Find(root, versionsXPathQuery) {
		version, err := parsePatchVersion(node)
		if err != nil {
			return nil, errors.Wrapf(err, "patch report %s", report.Name)
		}
		report.Versions = append(report.Versions, version)
	}
	return report, nil
}

func parsePatchVersion(node *xmlquery.Node) (PatchVersion, error) {
	version := PatchVersion{SoftwareVersion: textAt(node, "software_version")}
	size, err := intAt(node, "computers/size")
	if err != nil {
		return version, err
	}
	version.Computers.Size = size

	for _, c := range xmlquery.Find(node, computersXPathQuery) {
		id, err := intAt(c, "id")
		if err != nil {
			return version, errors.Wrapf(err, "version %s", version.SoftwareVersion)
		}
		version.Computers.Computers = append(version.Computers.Computers, ComputerRef{
			ID:           id,
			Name:         textAt(c, "name"),
			SerialNumber: textAt(c, "serial_number"),
		})
	}
	return version, nil
}

func parseComputer(doc *xmlquery.Node, id int) (*types.Device, error) {
	root := xmlquery.FindOne(doc, computerXPathQuery)
	if root == nil {
		return nil, errors.Errorf("no %s element in computer record %d", computerXPathQuery, id)
	}
	return &types.Device{
		ID:       id,
		Hostname: textAt(root, "general/name"),
		Email:    textAt(root, "location/email_address"),
	}, nil
}

// textAt returns the trimmed text of the first node matching expr, or "".
func textAt(node *xmlquery.Node, expr string) string {
	if n := xmlquery.FindOne(node, expr); n != nil {
		return strings.TrimSpace(n.InnerText())
	}
	return ""
}

// intAt parses the first node matching expr as an integer. A missing or
// empty node is 0.
func intAt(node *xmlquery.Node, expr string) (int, error) {
	s := textAt(node, expr)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s %q", expr, s)
	}
	return v, nil
}
