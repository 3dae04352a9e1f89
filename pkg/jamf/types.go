package jamf

// UnknownVersion is the version string Jamf reports for devices whose
// installed version could not be determined.
const UnknownVersion = "Unknown"

// PatchTitle is an application tracked by Jamf patch management.
type PatchTitle struct {
	ID   int
	Name string
}

// PatchReport lists, for one patch title, every known version and the
// computers still on it. The first version is the current one.
type PatchReport struct {
	Name           string
	TitleID        int
	TotalComputers int
	TotalVersions  int
	Versions       []PatchVersion
}

// PatchVersion is one version entry of a PatchReport.
type PatchVersion struct {
	SoftwareVersion string
	Computers       ComputerList
}

// ComputerList is the set of computers reported against one version. Size
// is the count Jamf claims; Computers holds the entries actually listed.
type ComputerList struct {
	Size      int
	Computers []ComputerRef
}

// ComputerRef is the abbreviated computer record embedded in a patch report.
type ComputerRef struct {
	ID           int
	Name         string
	SerialNumber string
}

type tokenResponse struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}
