// Package emit turns hardware snapshots and events into the wire-format
// payloads and terminal status lines described in §6, and fans them out to
// the UDP event socket, stdout, and the diagnostics broadcaster.
package emit

import (
	"fmt"
	"strconv"
	"strings"

	"lifty/internal/hardware"
)

// RenderStatus renders the bit-exact terminal status line from §6. It is a
// pure function of a Snapshot so it can be unit-tested independently of the
// state machine that produces one (§9 Design notes).
func RenderStatus(s hardware.Snapshot) string {
	overall := fmt.Sprintf("%-8s", s.Overall())
	ind := indicatorGlyph(s.IndicatorAt(s.Floor))

	return fmt.Sprintf(
		"[ FLOOR %d | %s %s | P:%s | U:%s | D:%s ] :",
		s.Floor, overall, ind,
		digitRow(s.Panel, 1, 5),
		digitRow(s.HallUp, 1, 4),
		digitRow(s.HallDown, 2, 5),
	)
}

// RenderCrash renders the one-time CRASH! line emitted immediately before
// the next status line after a safety-interlock violation (§6, §7).
func RenderCrash(reason string) string {
	return "CRASH! : " + reason
}

func indicatorGlyph(dir hardware.IndicatorDir) string {
	switch dir {
	case hardware.IndicatorUp:
		return "^^"
	case hardware.IndicatorDown:
		return "vv"
	default:
		return "--"
	}
}

// digitRow renders a five-character row where position i (1..5) is the
// digit i if i is in set and within [lo, hi], else '-'. Positions outside
// [lo, hi] are always '-', matching the fixed-dash columns in §6 (U's
// position 5, D's position 1).
func digitRow(set map[int]bool, lo, hi int) string {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		if i >= lo && i <= hi && set[i] {
			b.WriteString(strconv.Itoa(i))
		} else {
			b.WriteByte('-')
		}
	}
	return b.String()
}
