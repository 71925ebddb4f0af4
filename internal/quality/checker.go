// Package quality validates finished layouts independently of the packers
// that produced them.
package quality

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/fraeswerk/nestkit/internal/model"
)

// Severity ranks how bad an issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// IssueType names the check that raised an issue.
type IssueType string

const (
	IssueOverlap     IssueType = "overlap"
	IssueOutOfBounds IssueType = "out_of_bounds"
	IssueSpacing     IssueType = "spacing"
	IssueRotation    IssueType = "rotation"
	IssueDimension   IssueType = "dimension_mismatch"
)

// Region is an optional rectangle locating an issue on the sheet.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// QualityIssue is one finding. Issues are produced once and read-only after.
type QualityIssue struct {
	ID           string    `json:"id"`
	Type         IssueType `json:"issue_type"`
	Severity     Severity  `json:"severity"`
	PartIDs      []string  `json:"part_ids"`
	SheetIndex   int       `json:"sheet_index"`
	Description  string    `json:"description"`
	SuggestedFix string    `json:"suggested_fix,omitempty"`
	Region       *Region   `json:"region,omitempty"`
}

// QualityReport aggregates the full check battery over one layout.
type QualityReport struct {
	Issues       []QualityIssue `json:"issues"`
	PassedChecks []string       `json:"passed_checks"`
	FailedChecks []string       `json:"failed_checks"`
	Score        float64        `json:"score"` // 0-100
}

// Passed reports whether the layout has no critical issues.
func (r QualityReport) Passed() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			return false
		}
	}
	return true
}

// CountBySeverity returns the number of issues at a severity.
func (r QualityReport) CountBySeverity(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Checker runs a fixed battery of read-only layout checks. It never mutates
// a layout; running it twice on the same input yields the same report.
type Checker struct {
	Tolerance  float64 // geometric slack for bounds and overlap, mm
	MinSpacing float64 // desired inter-part gap; 0 disables the spacing check
}

func NewChecker() *Checker {
	return &Checker{Tolerance: 0.01}
}

// Check validates placements against sheet bounds and each other. When
// originals is non-nil, placed dimensions are validated against the source
// parts, accounting for the width/height swap of 90 and 270 degree turns.
func (c *Checker) Check(placed []model.PlacedPart, sheets []model.SheetSpec, originals []model.Part) QualityReport {
	report := QualityReport{}

	checks := []struct {
		name string
		run  func([]model.PlacedPart, []model.SheetSpec) []QualityIssue
	}{
		{"overlap", c.checkOverlaps},
		{"bounds", c.checkBounds},
		{"spacing", c.checkSpacing},
		{"rotation", c.checkRotations},
	}

	for _, chk := range checks {
		issues := chk.run(placed, sheets)
		report.Issues = append(report.Issues, issues...)
		if len(issues) == 0 {
			report.PassedChecks = append(report.PassedChecks, chk.name)
		} else {
			report.FailedChecks = append(report.FailedChecks, chk.name)
		}
	}

	if originals != nil {
		issues := c.checkDimensions(placed, originals)
		report.Issues = append(report.Issues, issues...)
		if len(issues) == 0 {
			report.PassedChecks = append(report.PassedChecks, "dimensions")
		} else {
			report.FailedChecks = append(report.FailedChecks, "dimensions")
		}
	}

	report.Score = c.score(report)
	return report
}

// checkOverlaps runs the pairwise rectangle intersection per sheet,
// reporting the overlap area for each colliding pair.
func (c *Checker) checkOverlaps(placed []model.PlacedPart, _ []model.SheetSpec) []QualityIssue {
	var issues []QualityIssue
	for i := 0; i < len(placed); i++ {
		for j := i + 1; j < len(placed); j++ {
			a, b := placed[i], placed[j]
			if a.SheetIndex != b.SheetIndex || !a.Intersects(b, c.Tolerance) {
				continue
			}
			ox := math.Min(a.Right(), b.Right()) - math.Max(a.X, b.X)
			oy := math.Min(a.Top(), b.Top()) - math.Max(a.Y, b.Y)
			issues = append(issues, QualityIssue{
				ID:          shortID(),
				Type:        IssueOverlap,
				Severity:    SeverityCritical,
				PartIDs:     []string{a.PartID, b.PartID},
				SheetIndex:  a.SheetIndex,
				Description: fmt.Sprintf("parts %s and %s overlap by %.1f sq mm", a.PartID, b.PartID, ox*oy),
				SuggestedFix: "re-run packing; overlapping layouts indicate corrupted input " +
					"or a post-placement edit",
				Region: &Region{
					X:      math.Max(a.X, b.X),
					Y:      math.Max(a.Y, b.Y),
					Width:  ox,
					Height: oy,
				},
			})
		}
	}
	return issues
}

// checkBounds verifies every part lies inside its sheet, with tolerance.
func (c *Checker) checkBounds(placed []model.PlacedPart, sheets []model.SheetSpec) []QualityIssue {
	var issues []QualityIssue
	for _, p := range placed {
		sheet := model.SheetForIndex(sheets, p.SheetIndex)
		if p.X >= -c.Tolerance && p.Y >= -c.Tolerance &&
			p.Right() <= sheet.Width+c.Tolerance && p.Top() <= sheet.Height+c.Tolerance {
			continue
		}
		issues = append(issues, QualityIssue{
			ID:           shortID(),
			Type:         IssueOutOfBounds,
			Severity:     SeverityCritical,
			PartIDs:      []string{p.PartID},
			SheetIndex:   p.SheetIndex,
			Description:  fmt.Sprintf("part %s at (%.1f, %.1f) extends beyond the %.0fx%.0f sheet", p.PartID, p.X, p.Y, sheet.Width, sheet.Height),
			SuggestedFix: "verify the sheet size passed to the packer matches the physical stock",
		})
	}
	return issues
}

// checkSpacing reports pairs closer than the configured minimum gap.
// Disabled when MinSpacing is zero.
func (c *Checker) checkSpacing(placed []model.PlacedPart, _ []model.SheetSpec) []QualityIssue {
	if c.MinSpacing <= 0 {
		return nil
	}
	var issues []QualityIssue
	for i := 0; i < len(placed); i++ {
		for j := i + 1; j < len(placed); j++ {
			a, b := placed[i], placed[j]
			if a.SheetIndex != b.SheetIndex {
				continue
			}
			gap := rectGap(a, b)
			if gap >= c.MinSpacing-c.Tolerance || a.Intersects(b, c.Tolerance) {
				continue // overlapping pairs are already critical
			}
			issues = append(issues, QualityIssue{
				ID:          shortID(),
				Type:        IssueSpacing,
				Severity:    SeverityWarning,
				PartIDs:     []string{a.PartID, b.PartID},
				SheetIndex:  a.SheetIndex,
				Description: fmt.Sprintf("parts %s and %s are %.2f mm apart, below the %.2f mm minimum", a.PartID, b.PartID, gap, c.MinSpacing),
			})
		}
	}
	return issues
}

// rectGap returns the smallest axis-aligned distance between two rectangles;
// 0 when they touch or overlap.
func rectGap(a, b model.PlacedPart) float64 {
	dx := math.Max(0, math.Max(b.X-a.Right(), a.X-b.Right()))
	dy := math.Max(0, math.Max(b.Y-a.Top(), a.Y-b.Top()))
	if dx > 0 && dy > 0 {
		return math.Hypot(dx, dy)
	}
	return math.Max(dx, dy)
}

// checkRotations flags rotation angles outside the right-angle set.
func (c *Checker) checkRotations(placed []model.PlacedPart, _ []model.SheetSpec) []QualityIssue {
	var issues []QualityIssue
	for _, p := range placed {
		switch p.RotationDeg {
		case 0, 90, 180, 270:
		default:
			issues = append(issues, QualityIssue{
				ID:          shortID(),
				Type:        IssueRotation,
				Severity:    SeverityWarning,
				PartIDs:     []string{p.PartID},
				SheetIndex:  p.SheetIndex,
				Description: fmt.Sprintf("part %s has rotation %d, expected one of 0/90/180/270", p.PartID, p.RotationDeg),
			})
		}
	}
	return issues
}

// checkDimensions verifies the as-placed size matches the source part,
// swapping width and height for 90 and 270 degree rotations.
func (c *Checker) checkDimensions(placed []model.PlacedPart, originals []model.Part) []QualityIssue {
	byID := make(map[string]model.Part, len(originals))
	for _, p := range originals {
		byID[p.ID] = p
	}

	var issues []QualityIssue
	for _, p := range placed {
		orig, ok := byID[p.PartID]
		if !ok {
			issues = append(issues, QualityIssue{
				ID:          shortID(),
				Type:        IssueDimension,
				Severity:    SeverityInfo,
				PartIDs:     []string{p.PartID},
				SheetIndex:  p.SheetIndex,
				Description: fmt.Sprintf("placed part %s has no matching source part", p.PartID),
			})
			continue
		}

		w, h := orig.Width, orig.Height
		if p.RotationDeg == 90 || p.RotationDeg == 270 {
			w, h = h, w
		}
		if math.Abs(p.Width-w) > c.Tolerance || math.Abs(p.Height-h) > c.Tolerance {
			issues = append(issues, QualityIssue{
				ID:         shortID(),
				Type:       IssueDimension,
				Severity:   SeverityWarning,
				PartIDs:    []string{p.PartID},
				SheetIndex: p.SheetIndex,
				Description: fmt.Sprintf("part %s placed as %.1fx%.1f but source is %.1fx%.1f at %d degrees",
					p.PartID, p.Width, p.Height, orig.Width, orig.Height, p.RotationDeg),
			})
		}
	}
	return issues
}

// score starts at 100, subtracts 20 per critical, 10 per warning and 2 per
// info issue, adds a small bonus for the passed/total check ratio and clamps
// to [0, 100].
func (c *Checker) score(report QualityReport) float64 {
	score := 100.0
	for _, issue := range report.Issues {
		switch issue.Severity {
		case SeverityCritical:
			score -= 20
		case SeverityWarning:
			score -= 10
		case SeverityInfo:
			score -= 2
		}
	}

	total := len(report.PassedChecks) + len(report.FailedChecks)
	if total > 0 {
		score += 5.0 * float64(len(report.PassedChecks)) / float64(total)
	}

	return math.Max(0, math.Min(100, score))
}

func shortID() string {
	return uuid.New().String()[:8]
}
