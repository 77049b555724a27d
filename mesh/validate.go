package mesh

import (
	"math"
)

// Thresholds used by AnalyzePair.
const (
	minVertexRatio     = 0.7
	minAreaRatio       = 0.95
	tinyArea           = 1e-8
	significantArea    = 1e-2
	shortSegmentLength = 0.5
	sharpTurnDeg       = 20.0
)

// AnalyzePair runs every adjacent-section check and returns all issues
// that apply. Checks are independent; none short-circuits another.
func AnalyzePair(a, b *Section, seg Segment) []Issue {
	var issues []Issue

	na, nb := a.VertexCount(), b.VertexCount()
	lo, hi := min(na, nb), max(na, nb)
	if lo < 3 || float64(lo)/float64(hi) < minVertexRatio {
		issues = append(issues, IssueVertexCountMismatch)
	}

	aa, ab := math.Abs(a.SignedArea), math.Abs(b.SignedArea)
	switch {
	case aa > tinyArea && ab > tinyArea:
		if math.Min(aa, ab)/math.Max(aa, ab) < minAreaRatio {
			issues = append(issues, IssueAreaRatioDrift)
		}
	case aa < tinyArea && ab > significantArea, ab < tinyArea && aa > significantArea:
		issues = append(issues, IssueAreaRatioDrift)
	}

	if a.Orientation != 0 && b.Orientation != 0 && a.Orientation != b.Orientation {
		issues = append(issues, IssueOrientationFlip)
	}

	angleDeg := math.Abs(seg.CurvatureAngle * 180 / math.Pi)
	if seg.Length < shortSegmentLength && angleDeg > sharpTurnDeg {
		issues = append(issues, IssueSharpTurnOnShortSegment)
	}

	return issues
}

// HasIssue reports whether issues contains kind.
func HasIssue(issues []Issue, kind Issue) bool {
	for _, i := range issues {
		if i == kind {
			return true
		}
	}
	return false
}
