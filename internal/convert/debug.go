// This file contains code to help debugging, and is separated from the
// rest in order not to litter the main code with debugging stuff

package convert

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mzio/thermostream/internal/lineage"
	"github.com/mzio/thermostream/internal/rawfile"
	"github.com/mzio/thermostream/internal/scanrange"
)

// debugScansEnv selects a scan range whose lineage decisions are dumped
// to stdout, e.g. THERMOSTREAM_DEBUG_SCANS=3-6
const debugScansEnv = "THERMOSTREAM_DEBUG_SCANS"

type debugDump struct {
	rng *scanrange.Range
}

func newDebugDump(log *slog.Logger) *debugDump {
	sel := os.Getenv(debugScansEnv)
	if sel == "" {
		return &debugDump{}
	}
	rng, err := scanrange.Parse(sel, 1, int(^uint(0)>>1))
	if err != nil {
		log.Warn("debug scan range ignored", "value", sel, "err", err)
		return &debugDump{}
	}
	return &debugDump{rng: rng}
}

func (d *debugDump) record(scan int, ev *rawfile.Event, res lineage.Resolution) {
	if d.rng == nil || !d.rng.Contains(scan) {
		return
	}
	fmt.Printf("Scan:%d ms%d filter:%q\n", scan, ev.MSLevel, ev.Filter)
	switch res.ParentScan {
	case lineage.ScanNone:
		fmt.Printf("  no precursor (survey scan)\n")
	case lineage.ScanUnresolved:
		fmt.Printf("  precursor unresolved\n")
	default:
		fmt.Printf("  precursor scan:%d\n", res.ParentScan)
	}
	if res.HasReaction {
		fmt.Printf("  reaction mz:%f width:%f activation:%s energy:%f\n",
			res.Reaction.PrecursorMz, res.Reaction.IsolationWidth,
			res.Reaction.Activation, res.Reaction.CollisionEnergy)
	}
	for i, r := range ev.Reactions {
		fmt.Printf("  stage %d: mz:%f @%s%.2f\n", i, r.PrecursorMz, r.Activation, r.CollisionEnergy)
	}
}
