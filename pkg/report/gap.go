package report

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/patchnotifier/patch-notifier/pkg/utils"
)

// Gap classifies how far installed lags behind latest: "major", "minor",
// "patch", "none" or "unknown" when either side is not a version number.
func Gap(installed, latest string) string {
	iv, err := semver.NewVersion(coerce(installed))
	if err != nil {
		return utils.PatchTypeUnknown
	}
	lv, err := semver.NewVersion(coerce(latest))
	if err != nil {
		return utils.PatchTypeUnknown
	}

	switch {
	case !lv.GreaterThan(iv):
		return utils.PatchTypeNone
	case lv.Major() != iv.Major():
		return utils.PatchTypeMajor
	case lv.Minor() != iv.Minor():
		return utils.PatchTypeMinor
	default:
		return utils.PatchTypePatch
	}
}

// coerce trims application build numbers such as 120.0.6099.109 down to the
// three components semver understands.
func coerce(v string) string {
	v = strings.TrimSpace(v)
	parts := strings.SplitN(v, ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return strings.Join(parts, ".")
}
