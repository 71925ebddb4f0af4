package cutplan

import (
	"fmt"
	"math"
	"strings"

	"github.com/fraeswerk/nestkit/internal/config"
	"github.com/fraeswerk/nestkit/internal/model"
)

// Emit renders a cut sequence as a machine program for a guillotine-style
// cutter. Each operation becomes a rapid to the line start, a plunge per
// pass and a feed along the full span. The output is a plain string; writing
// it anywhere is the caller's business.
func Emit(seq CutSequence, sheet model.SheetSpec, m config.MachineProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "; NestKit cut program - sheet %d\n", seq.SheetIndex+1)
	fmt.Fprintf(&b, "; Stock: %.1f x %.1f mm\n", sheet.Width, sheet.Height)
	fmt.Fprintf(&b, "; Operations: %d, length %.0f mm, est. %.0f s\n",
		len(seq.Operations), seq.TotalLengthMM, seq.EstimatedTimeSec)
	fmt.Fprintf(&b, "; Machine: %s, kerf %.1f mm\n", m.Name, m.KerfMM)
	b.WriteString("\n")

	b.WriteString("G90\n")
	b.WriteString("G21\n")
	fmt.Fprintf(&b, "G0 Z%.3f\n", m.SafeZ)
	b.WriteString("\n")

	passes := 1
	if m.PassDepth > 0 && m.CutDepth > 0 {
		passes = int(math.Ceil(m.CutDepth / m.PassDepth))
	}

	for i, op := range seq.Operations {
		fmt.Fprintf(&b, "; --- Cut %d: %s at %.1f ---\n", i+1, op.Type, op.Position)

		var sx, sy, ex, ey float64
		if op.Direction == DirectionVertical {
			sx, sy = op.Position, op.SpanStart
			ex, ey = op.Position, op.SpanEnd
		} else {
			sx, sy = op.SpanStart, op.Position
			ex, ey = op.SpanEnd, op.Position
		}

		for pass := 1; pass <= passes; pass++ {
			depth := float64(pass) * m.PassDepth
			if depth > m.CutDepth {
				depth = m.CutDepth
			}
			fmt.Fprintf(&b, "G0 X%.3f Y%.3f\n", sx, sy)
			fmt.Fprintf(&b, "G1 Z%.3f F%.0f\n", -depth, m.PlungeRate)
			fmt.Fprintf(&b, "G1 X%.3f Y%.3f F%.0f\n", ex, ey, m.FeedRate)
			fmt.Fprintf(&b, "G0 Z%.3f\n", m.SafeZ)
		}
		b.WriteString("\n")
	}

	b.WriteString("; === Job complete ===\n")
	b.WriteString("G0 X0.000 Y0.000\n")
	b.WriteString("M2\n")
	return b.String()
}

// EmitAll renders one program per sheet.
func EmitAll(sequences []CutSequence, sheets []model.SheetSpec, m config.MachineProfile) []string {
	out := make([]string, len(sequences))
	for i, seq := range sequences {
		out[i] = Emit(seq, model.SheetForIndex(sheets, seq.SheetIndex), m)
	}
	return out
}
