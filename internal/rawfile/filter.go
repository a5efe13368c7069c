package rawfile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The scan filter follows the grammar
//
//	[analyzer] [+|-] [p|c] [NSI|ESI|APCI...] [d] [sa] Full|SIM ms<N>
//	    <precursor>[@<activation><energy>]... [<low>-<high>]
//
// e.g. "FTMS + p NSI d Full ms2 445.1200@hcd30.00 [110.0000-445.0000]".
// Only the parts the pipeline needs are extracted; unknown tokens are
// skipped.

var (
	msLevelRe  = regexp.MustCompile(`^ms(\d*)$`)
	reactionRe = regexp.MustCompile(`^(\d+\.?\d*)(?:@([a-z]+)(\d+\.?\d*))?$`)
	windowRe   = regexp.MustCompile(`^\[(\d+\.?\d*)-(\d+\.?\d*)\]$`)
)

// ParseFilter parses a free-text scan filter string into an Event.
// The default isolation width of parsed reactions is 0 (not reported
// in the filter); the instrument reader fills it from the event record
// when available.
func ParseFilter(filter string) (*Event, error) {
	ev := &Event{Filter: filter, MSLevel: 1}
	sawMs := false
	for _, tok := range strings.Fields(filter) {
		switch {
		case tok == "+":
			ev.Polarity = PolarityPositive
		case tok == "-":
			ev.Polarity = PolarityNegative
		case tok == "c":
			ev.CentroidData = true
		case tok == "p":
			ev.CentroidData = false
		case tok == "sa":
			ev.SupplementalActivation = true
		case !sawMs:
			if m := msLevelRe.FindStringSubmatch(tok); m != nil {
				sawMs = true
				if m[1] == "" {
					ev.MSLevel = 1
				} else {
					level, err := strconv.Atoi(m[1])
					if err != nil || level < 1 {
						return nil, fmt.Errorf("rawfile: bad ms level token %q in filter %q", tok, filter)
					}
					ev.MSLevel = level
				}
			}
		default:
			if m := windowRe.FindStringSubmatch(tok); m != nil {
				ev.LowMz, _ = strconv.ParseFloat(m[1], 64)
				ev.HighMz, _ = strconv.ParseFloat(m[2], 64)
				continue
			}
			m := reactionRe.FindStringSubmatch(tok)
			if m == nil {
				continue
			}
			var r Reaction
			r.PrecursorMz, _ = strconv.ParseFloat(m[1], 64)
			if m[2] != "" {
				r.Activation = activationFromName(m[2])
				r.CollisionEnergy, _ = strconv.ParseFloat(m[3], 64)
			}
			ev.Reactions = append(ev.Reactions, r)
		}
	}
	if ev.MSLevel > 1 && len(ev.Reactions) == 0 {
		return nil, fmt.Errorf("rawfile: ms%d filter without reactions: %q", ev.MSLevel, filter)
	}
	return ev, nil
}

// LineageKey normalizes the fragmentation part of an msN filter string
// for precursor lookup: the text between "msN " and the scan window
// bracket, with the energy suffix stripped from the last reaction
// token. When the last token repeats the previous token's precursor
// mass with a different activation suffix (supplemental activation),
// the duplicate is dropped before stripping.
//
// The key of the scan itself and the key of its parent share a prefix;
// ParentKey removes the scan's own reaction to obtain the parent's key.
// MS1 scans use the empty key.
func LineageKey(filter string) string {
	tokens := isolationTokens(filter)
	return normalizeTokens(tokens)
}

// ParentKey returns the lineage key of the scan's precursor: the
// scan's isolation tokens minus its own (terminal) reaction.
func ParentKey(filter string) string {
	tokens := isolationTokens(filter)
	tokens = dropDuplicateTerminal(tokens)
	if len(tokens) == 0 {
		return ""
	}
	return normalizeTokens(tokens[:len(tokens)-1])
}

var isolationRe = regexp.MustCompile(`ms\d+ (.*?) ?\[`)

func isolationTokens(filter string) []string {
	m := isolationRe.FindStringSubmatch(filter)
	if m == nil {
		return nil
	}
	return strings.Fields(m[1])
}

func dropDuplicateTerminal(tokens []string) []string {
	if len(tokens) < 2 {
		return tokens
	}
	last := tokenMass(tokens[len(tokens)-1])
	prev := tokenMass(tokens[len(tokens)-2])
	if last != "" && last == prev {
		return tokens[:len(tokens)-1]
	}
	return tokens
}

func normalizeTokens(tokens []string) string {
	tokens = dropDuplicateTerminal(tokens)
	if len(tokens) == 0 {
		return ""
	}
	out := make([]string, len(tokens))
	copy(out, tokens)
	out[len(out)-1] = tokenMass(out[len(out)-1])
	return strings.Join(out, " ")
}

func tokenMass(tok string) string {
	if i := strings.IndexByte(tok, '@'); i >= 0 {
		return tok[:i]
	}
	return tok
}
