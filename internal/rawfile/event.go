package rawfile

// Activation is the fragmentation technique of one reaction, as the
// instrument names it in the scan filter.
type Activation int

const (
	ActivationUnknown Activation = iota
	ActivationCID
	ActivationHCD
	ActivationETD
	ActivationECD
	ActivationNETD
	ActivationMPD
	ActivationUVPD
	ActivationPQD
	ActivationSID
)

var activationNames = map[Activation]string{
	ActivationCID:  "cid",
	ActivationHCD:  "hcd",
	ActivationETD:  "etd",
	ActivationECD:  "ecd",
	ActivationNETD: "netd",
	ActivationMPD:  "mpd",
	ActivationUVPD: "uvpd",
	ActivationPQD:  "pqd",
	ActivationSID:  "sid",
}

func (a Activation) String() string {
	if s, ok := activationNames[a]; ok {
		return s
	}
	return "unknown"
}

// IsElectronBased reports whether the technique transfers or captures
// electrons. Used by the supplemental-activation heuristic.
func (a Activation) IsElectronBased() bool {
	switch a {
	case ActivationETD, ActivationECD, ActivationNETD:
		return true
	}
	return false
}

// IsCollisionBased reports whether the technique is collisional.
func (a Activation) IsCollisionBased() bool {
	switch a {
	case ActivationCID, ActivationHCD, ActivationPQD, ActivationSID:
		return true
	}
	return false
}

func activationFromName(name string) Activation {
	for a, s := range activationNames {
		if s == name {
			return a
		}
	}
	return ActivationUnknown
}

// Reaction is one fragmentation stage of a scan event.
type Reaction struct {
	PrecursorMz     float64
	IsolationWidth  float64
	IsolationOffset float64
	CollisionEnergy float64
	Activation      Activation
}

// Event describes one scan acquisition: its MS level, polarity, the
// chain of fragmentation reactions and the acquired m/z window.
type Event struct {
	MSLevel  int
	Polarity Polarity
	Filter   string
	// CentroidData is true when the event reports centroid-type data
	// (the "c" token in the filter).
	CentroidData bool
	// SupplementalActivation is true for "sa" scans, where the last
	// two reactions may describe a single logical fragmentation step.
	SupplementalActivation bool
	Reactions              []Reaction
	LowMz, HighMz          float64
}

// TerminalReaction returns the reaction describing this event's own
// fragmentation step, i.e. the one whose precursor the scan measured.
// For supplemental-activation events where an electron-based reaction
// is immediately followed by a collision-based one, the two entries are
// one logical step and the electron-based entry carries the precursor.
func (e *Event) TerminalReaction() (Reaction, bool) {
	n := len(e.Reactions)
	if n == 0 {
		return Reaction{}, false
	}
	idx := n - 1
	if e.SupplementalActivation && n >= 2 &&
		e.Reactions[n-2].Activation.IsElectronBased() &&
		e.Reactions[n-1].Activation.IsCollisionBased() {
		idx = n - 2
	}
	return e.Reactions[idx], true
}

// Reaction returns the reaction at the given fragmentation index, with
// ok=false when the index is out of range. Out-of-range lookups happen
// on Tribrid decision-tree data and must not panic.
func (e *Event) Reaction(i int) (Reaction, bool) {
	if i < 0 || i >= len(e.Reactions) {
		return Reaction{}, false
	}
	return e.Reactions[i], true
}
