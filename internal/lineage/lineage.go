// Package lineage reconstructs the precursor ancestry of scans across
// MS levels. It owns two pieces of per-run state: a map from normalized
// filter prefixes to the most recent scan that produced them, and the
// precursor tree keyed by scan number. Scans must be resolved in strict
// ascending order; each scan may only reference lineage data of earlier
// scans.
package lineage

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/mzio/thermostream/internal/rawfile"
)

// Parent scan sentinels.
const (
	// ScanNone marks an MS1 scan, which has no precursor.
	ScanNone = -1
	// ScanUnresolved marks a scan whose precursor could not be found.
	ScanUnresolved = -2
)

var (
	// ErrUnresolvedParent means no precursor scan could be determined.
	// Recoverable: a placeholder tree entry is synthesized.
	ErrUnresolvedParent = errors.New("lineage: precursor scan not resolvable")
	// ErrReactionIndex means the expected fragmentation reaction index
	// does not exist in the scan event. Recoverable per scan.
	ErrReactionIndex = errors.New("lineage: reaction index out of range")
)

// Info is the persistent precursor bookkeeping for one scan. Entries
// are created when a scan is resolved and never deleted; any ancestor
// must stay reachable for the whole run.
type Info struct {
	// ParentScan is the precursor scan number, ScanNone or ScanUnresolved.
	ParentScan int
	// MSLevel is the scan's own MS level.
	MSLevel int
	// ReactionCount is the fragmentation-stage cursor descendants of
	// this scan must consult next.
	ReactionCount int
	// Reaction is the fragmentation reaction that produced this scan,
	// when one was resolved.
	Reaction    rawfile.Reaction
	HasReaction bool
}

// Resolution is the outcome of resolving one scan's precursor.
type Resolution struct {
	ParentScan  int
	Reaction    rawfile.Reaction
	HasReaction bool
}

// Resolver holds the lineage state of one conversion run.
type Resolver struct {
	byPrefix map[string]int
	tree     map[int]*Info
	log      *slog.Logger
}

// NewResolver creates an empty resolver for a single run.
func NewResolver(log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		byPrefix: make(map[string]int),
		tree:     make(map[int]*Info),
		log:      log,
	}
}

// Info returns the precursor bookkeeping of an already-resolved scan.
func (r *Resolver) Info(scan int) (*Info, bool) {
	info, ok := r.tree[scan]
	return info, ok
}

// Resolve determines the precursor of a scan and advances the lineage
// state. Scans must be passed in ascending scan-number order. Both
// returned error kinds are recoverable: the resolver always installs a
// tree entry so descendant bookkeeping cannot crash.
func (r *Resolver) Resolve(scan int, ev *rawfile.Event, tr rawfile.Trailer) (Resolution, error) {
	if ev.MSLevel <= 1 {
		// New root: later msN scans find it via the empty prefix
		r.byPrefix[""] = scan
		r.tree[scan] = &Info{ParentScan: ScanNone, MSLevel: 1}
		return Resolution{ParentScan: ScanNone}, nil
	}

	// Register this scan under its own normalized prefix so deeper
	// levels can find it. Overwrite, not merge: lookups want the most
	// recent ancestor.
	r.byPrefix[rawfile.LineageKey(ev.Filter)] = scan

	parentKey := rawfile.ParentKey(ev.Filter)
	parent := tr.MasterScanNumber()
	if parent <= 0 {
		var ok bool
		parent, ok = r.byPrefix[parentKey]
		if !ok {
			return r.unresolved(scan, ev)
		}
	}
	pinfo, ok := r.tree[parent]
	if !ok {
		return r.unresolved(scan, ev)
	}

	idx := pinfo.ReactionCount
	reaction, ok := ev.Reaction(idx)
	if !ok && ev.MSLevel == pinfo.MSLevel {
		// Tribrid decision-tree artifact: the trailer points at a
		// sibling of the same level. Retry by prefix lookup alone.
		if alt, found := r.byPrefix[parentKey]; found && alt != parent {
			if altInfo, present := r.tree[alt]; present {
				parent, pinfo = alt, altInfo
				idx = pinfo.ReactionCount
				reaction, ok = ev.Reaction(idx)
			}
		}
	}
	if !ok {
		// Malformed data assumption violated for this scan; consume
		// every reaction so grandchildren do not trip over it again.
		r.tree[scan] = &Info{
			ParentScan:    parent,
			MSLevel:       ev.MSLevel,
			ReactionCount: len(ev.Reactions),
		}
		return Resolution{ParentScan: parent},
			fmt.Errorf("%w: scan %d level %d wants reaction %d of %d",
				ErrReactionIndex, scan, ev.MSLevel, idx, len(ev.Reactions))
	}

	// Advance the cursor for future grandchildren. A supplemental
	// activation pair (electron-based immediately followed by a
	// collision-based entry) is one logical fragmentation step.
	consumed := 1
	if ev.SupplementalActivation {
		if next, more := ev.Reaction(idx + 1); more &&
			reaction.Activation.IsElectronBased() &&
			next.Activation.IsCollisionBased() {
			consumed = 2
		}
	}
	r.tree[scan] = &Info{
		ParentScan:    parent,
		MSLevel:       ev.MSLevel,
		ReactionCount: idx + consumed,
		Reaction:      reaction,
		HasReaction:   true,
	}
	return Resolution{ParentScan: parent, Reaction: reaction, HasReaction: true}, nil
}

func (r *Resolver) unresolved(scan int, ev *rawfile.Event) (Resolution, error) {
	r.log.Warn("precursor scan not resolvable", "scan", scan, "level", ev.MSLevel)
	// Placeholder so downstream reaction-count bookkeeping holds up.
	// The terminal reaction still describes the scan's own step.
	info := &Info{
		ParentScan:    ScanUnresolved,
		MSLevel:       ev.MSLevel,
		ReactionCount: len(ev.Reactions),
	}
	if reaction, ok := ev.TerminalReaction(); ok {
		info.Reaction = reaction
		info.HasReaction = true
	}
	r.tree[scan] = info
	return Resolution{ParentScan: ScanUnresolved, Reaction: info.Reaction, HasReaction: info.HasReaction},
		fmt.Errorf("%w: scan %d level %d", ErrUnresolvedParent, scan, ev.MSLevel)
}
