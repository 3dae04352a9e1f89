package types

import "strconv"

// OutstandingPatch is an application on a device that is not yet at the
// current tracked version.
type OutstandingPatch struct {
	Name             string `json:"name" yaml:"name"`
	InstalledVersion string `json:"installedVersion" yaml:"installedVersion"`
	LatestVersion    string `json:"latestVersion" yaml:"latestVersion"`
}

type OutstandingPatches []OutstandingPatch

// Device is a managed computer as known to the device-management API.
type Device struct {
	ID       int
	Hostname string
	Email    string
}

func (d Device) String() string {
	if d.Hostname == "" {
		return "device " + strconv.Itoa(d.ID)
	}
	return d.Hostname
}

// UserIdentity is a chat-platform user resolved from an email address.
type UserIdentity struct {
	ID          string
	FirstName   string
	LastName    string
	Email       string
	StatusEmoji string
	StatusText  string
}

// FullName returns "First Last" trimmed of missing parts.
func (u UserIdentity) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// Backlog maps device IDs to their outstanding patches. Devices iterate in
// the order they were first added and each device's patches keep insertion
// order. The zero value is ready to use.
type Backlog struct {
	order   []int
	patches map[int]OutstandingPatches
}

// Add appends p to the backlog of device id.
func (b *Backlog) Add(id int, p OutstandingPatch) {
	if b.patches == nil {
		b.patches = make(map[int]OutstandingPatches)
	}
	if _, ok := b.patches[id]; !ok {
		b.order = append(b.order, id)
	}
	b.patches[id] = append(b.patches[id], p)
}

// Devices returns device IDs in first-insertion order.
func (b *Backlog) Devices() []int {
	out := make([]int, len(b.order))
	copy(out, b.order)
	return out
}

// Patches returns the outstanding patches for device id, or nil.
func (b *Backlog) Patches(id int) OutstandingPatches {
	return b.patches[id]
}

// Has reports whether device id has any outstanding patches.
func (b *Backlog) Has(id int) bool {
	_, ok := b.patches[id]
	return ok
}

func (b *Backlog) Len() int {
	return len(b.order)
}
