package cutplan

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/fraeswerk/nestkit/internal/model"
)

// MoveType classifies a parsed program movement.
type MoveType int

const (
	MoveRapid   MoveType = iota // G0 positioning, no cutting
	MoveFeed                    // G1 feed in the XY plane
	MovePlunge                  // G1 with Z decreasing, no XY motion
	MoveRetract                 // Z increasing, no XY motion
)

func (t MoveType) String() string {
	switch t {
	case MoveRapid:
		return "rapid"
	case MoveFeed:
		return "feed"
	case MovePlunge:
		return "plunge"
	case MoveRetract:
		return "retract"
	default:
		return "unknown"
	}
}

// Move is a single parsed movement with before and after positions.
type Move struct {
	Type     MoveType
	FromX    float64
	FromY    float64
	FromZ    float64
	ToX      float64
	ToY      float64
	ToZ      float64
	FeedRate float64
}

var coordRe = regexp.MustCompile(`([XYZF])(-?\d+\.?\d*)`)

// ParseProgram parses an emitted program back into structured moves. It
// tracks absolute position and classifies each G0/G1 by its movement
// characteristics. Tests and host-side auditors use it to check emitted
// programs without a machine.
func ParseProgram(code string) []Move {
	var moves []Move
	curX, curY, curZ, curFeed := 0.0, 0.0, 0.0, 0.0

	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if idx := strings.Index(line, ";"); idx >= 0 {
			line = strings.TrimSpace(line[:idx])
		}
		if line == "" {
			continue
		}

		upper := strings.ToUpper(line)
		isRapid := upper == "G0" || strings.HasPrefix(upper, "G0 ") || strings.HasPrefix(upper, "G00 ")
		isFeed := upper == "G1" || strings.HasPrefix(upper, "G1 ") || strings.HasPrefix(upper, "G01 ")
		if !isRapid && !isFeed {
			continue
		}

		newX, newY, newZ, newFeed := curX, curY, curZ, curFeed
		for _, m := range coordRe.FindAllStringSubmatch(upper, -1) {
			val, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			switch m[1] {
			case "X":
				newX = val
			case "Y":
				newY = val
			case "Z":
				newZ = val
			case "F":
				newFeed = val
			}
		}

		moves = append(moves, Move{
			Type:     classifyMove(isRapid, curZ, newZ, curX, curY, newX, newY),
			FromX:    curX,
			FromY:    curY,
			FromZ:    curZ,
			ToX:      newX,
			ToY:      newY,
			ToZ:      newZ,
			FeedRate: newFeed,
		})
		curX, curY, curZ, curFeed = newX, newY, newZ, newFeed
	}
	return moves
}

func classifyMove(isRapid bool, fromZ, toZ, fromX, fromY, toX, toY float64) MoveType {
	zDelta := toZ - fromZ
	hasXY := fromX != toX || fromY != toY

	switch {
	case isRapid:
		if zDelta > 0 {
			return MoveRetract
		}
		return MoveRapid
	case zDelta < -0.001 && !hasXY:
		return MovePlunge
	case zDelta > 0.001 && !hasXY:
		return MoveRetract
	default:
		return MoveFeed
	}
}

// AuditProgram parses a program and returns a finding per cutting move that
// leaves the sheet. An empty slice means the program stays in bounds.
func AuditProgram(code string, sheet model.SheetSpec) []string {
	var findings []string
	for i, mv := range ParseProgram(code) {
		if mv.Type != MoveFeed || mv.ToZ >= 0 {
			continue
		}
		if mv.ToX < -0.001 || mv.ToX > sheet.Width+0.001 ||
			mv.ToY < -0.001 || mv.ToY > sheet.Height+0.001 {
			findings = append(findings, fmt.Sprintf(
				"move %d: cutting feed to (%.1f, %.1f) leaves the %.0fx%.0f sheet",
				i, mv.ToX, mv.ToY, sheet.Width, sheet.Height))
		}
	}
	return findings
}
