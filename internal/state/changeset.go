package state

import (
	"math/bits"
	"strings"
)

// Change tags a configuration field that changed and has not been acted upon yet
type Change uint8

const (
	ModelChanged Change = 1 << iota
	BackendChanged
	FlagsChanged
	CameraTargetFPSChanged
	CameraSizeChanged
)

const (
	// DetectorChanges are consumed by the detector lifecycle manager
	DetectorChanges = ModelChanged | BackendChanged | FlagsChanged
	// CameraChanges are consumed by the camera source
	CameraChanges = CameraTargetFPSChanged | CameraSizeChanged
	// AllChanges is every tag a setter can raise
	AllChanges = DetectorChanges | CameraChanges

	numChanges = 5
)

var changeNames = [numChanges]string{
	"model",
	"backend",
	"flags",
	"camera_target_fps",
	"camera_size",
}

func (c Change) String() string {
	if c == 0 {
		return "none"
	}
	var names []string
	for i := 0; i < numChanges; i++ {
		if c&(1<<i) != 0 {
			names = append(names, changeNames[i])
		}
	}
	return strings.Join(names, "|")
}

// Names lists the tag names set in c
func (c Change) Names() []string {
	names := make([]string, 0, bits.OnesCount8(uint8(c)))
	for i := 0; i < numChanges; i++ {
		if c&(1<<i) != 0 {
			names = append(names, changeNames[i])
		}
	}
	return names
}

func (c Change) index() int {
	return bits.TrailingZeros8(uint8(c))
}

// ChangeSet is an observation of the pending tags. It remembers the
// sequence number of every tag so that consuming it cannot swallow a
// change that landed after the observation.
type ChangeSet struct {
	mask Change
	seq  [numChanges]uint64
}

// Has reports whether any of the given tags is pending
func (cs ChangeSet) Has(c Change) bool {
	return cs.mask&c != 0
}

// Mask returns the pending tags
func (cs ChangeSet) Mask() Change {
	return cs.mask
}

// Empty reports whether nothing is pending
func (cs ChangeSet) Empty() bool {
	return cs.mask == 0
}

// Only narrows the set to the given tags
func (cs ChangeSet) Only(c Change) ChangeSet {
	cs.mask &= c
	return cs
}

func (cs ChangeSet) String() string {
	return cs.mask.String()
}
