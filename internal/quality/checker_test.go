package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fraeswerk/nestkit/internal/model"
)

func TestCheckCleanLayoutScoresFull(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 50},
		{PartID: "b", X: 110, Y: 0, Width: 100, Height: 50},
	}
	sheets := []model.SheetSpec{{Width: 250, Height: 150}}

	report := c.Check(placed, sheets, nil)

	assert.True(t, report.Passed())
	assert.Empty(t, report.Issues)
	assert.Equal(t, 100.0, report.Score)
	assert.Len(t, report.PassedChecks, 4)
	assert.Empty(t, report.FailedChecks)
}

func TestCheckDetectsOverlap(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", X: 50, Y: 50, Width: 100, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)

	assert.False(t, report.Passed())
	require.Equal(t, 1, report.CountBySeverity(SeverityCritical))

	issue := report.Issues[0]
	assert.Equal(t, IssueOverlap, issue.Type)
	assert.ElementsMatch(t, []string{"a", "b"}, issue.PartIDs)
	require.NotNil(t, issue.Region)
	assert.InDelta(t, 50.0, issue.Region.X, 1e-9)
	assert.InDelta(t, 50.0, issue.Region.Width, 1e-9)
	assert.Contains(t, issue.Description, "2500.0 sq mm")
	assert.Less(t, report.Score, 100.0)
}

func TestCheckIgnoresCrossSheetOverlap(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "a", SheetIndex: 0, X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", SheetIndex: 1, X: 0, Y: 0, Width: 100, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)
	assert.True(t, report.Passed())
}

func TestCheckDetectsOutOfBounds(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "a", X: 450, Y: 0, Width: 100, Height: 50},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)

	assert.False(t, report.Passed())
	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueOutOfBounds, report.Issues[0].Type)
	assert.Equal(t, SeverityCritical, report.Issues[0].Severity)
}

func TestCheckSpacingWarning(t *testing.T) {
	c := NewChecker()
	c.MinSpacing = 5

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 50},
		{PartID: "b", X: 102, Y: 0, Width: 100, Height: 50}, // 2mm gap
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)

	assert.True(t, report.Passed(), "spacing is a warning, not critical")
	require.Equal(t, 1, report.CountBySeverity(SeverityWarning))
	assert.Equal(t, IssueSpacing, report.Issues[0].Type)
	assert.Contains(t, report.Issues[0].Description, "2.00 mm")
}

func TestCheckSpacingDisabledByDefault(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 50},
		{PartID: "b", X: 100.5, Y: 0, Width: 100, Height: 50},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)
	assert.Empty(t, report.Issues)
}

func TestCheckSpacingSkipsOverlappingPairs(t *testing.T) {
	c := NewChecker()
	c.MinSpacing = 5

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", X: 50, Y: 50, Width: 100, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)

	assert.Equal(t, 1, report.CountBySeverity(SeverityCritical))
	assert.Equal(t, 0, report.CountBySeverity(SeverityWarning),
		"overlapping pairs are not double-reported as spacing issues")
}

func TestCheckRotationOutsideRightAngles(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 50, RotationDeg: 45},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, nil)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueRotation, report.Issues[0].Type)
	assert.Equal(t, SeverityWarning, report.Issues[0].Severity)
}

func TestCheckDimensionsAgainstSourceParts(t *testing.T) {
	c := NewChecker()

	originals := []model.Part{
		{ID: "a", Width: 100, Height: 50},
		{ID: "b", Width: 80, Height: 40},
	}
	placed := []model.PlacedPart{
		// Rotated 90: swapped dimensions are correct.
		{PartID: "a", X: 0, Y: 0, Width: 50, Height: 100, RotationDeg: 90},
		// Claims no rotation but has swapped dimensions: mismatch.
		{PartID: "b", X: 100, Y: 0, Width: 40, Height: 80, RotationDeg: 0},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, originals)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, IssueDimension, report.Issues[0].Type)
	assert.Equal(t, []string{"b"}, report.Issues[0].PartIDs)
	assert.Contains(t, report.FailedChecks, "dimensions")
}

func TestCheckDimensionsUnknownPart(t *testing.T) {
	c := NewChecker()

	placed := []model.PlacedPart{
		{PartID: "ghost", X: 0, Y: 0, Width: 10, Height: 10},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	report := c.Check(placed, sheets, []model.Part{{ID: "a", Width: 10, Height: 10}})

	require.Len(t, report.Issues, 1)
	assert.Equal(t, SeverityInfo, report.Issues[0].Severity)
	assert.True(t, report.Passed())
}

func TestScoreDecreasesWithSeverity(t *testing.T) {
	c := NewChecker()
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	clean := c.Check([]model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 50},
	}, sheets, nil)

	oneCritical := c.Check([]model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", X: 50, Y: 50, Width: 100, Height: 100},
	}, sheets, nil)

	twoCritical := c.Check([]model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", X: 50, Y: 50, Width: 100, Height: 100},
		{PartID: "c", X: 450, Y: 450, Width: 100, Height: 100},
	}, sheets, nil)

	assert.Equal(t, 100.0, clean.Score)
	assert.Less(t, oneCritical.Score, clean.Score)
	assert.Less(t, twoCritical.Score, oneCritical.Score)
	assert.GreaterOrEqual(t, twoCritical.Score, 0.0)
}

func TestCheckDeterministic(t *testing.T) {
	c := NewChecker()
	placed := []model.PlacedPart{
		{PartID: "a", X: 0, Y: 0, Width: 100, Height: 100},
		{PartID: "b", X: 50, Y: 50, Width: 100, Height: 100},
	}
	sheets := []model.SheetSpec{{Width: 500, Height: 500}}

	first := c.Check(placed, sheets, nil)
	second := c.Check(placed, sheets, nil)

	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, len(first.Issues), len(second.Issues))
	assert.Equal(t, first.FailedChecks, second.FailedChecks)
}
