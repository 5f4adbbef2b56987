// Package landuse decides whether a crop planting fits on a field for a crop
// year. It has no storage dependency; callers load the field's active crops
// (every record not rejected) and run Check inside whatever lock makes the
// read-check-insert sequence atomic.
package landuse

import (
	"fmt"
	"math"
)

// epsilon absorbs float rounding when comparing summed areas.
const epsilon = 1e-9

type Rule string

const (
	RuleInvalidArea       Rule = "invalid_area"
	RuleDuplicateSeason   Rule = "duplicate_season"
	RuleSeasonConflict    Rule = "season_conflict"
	RuleUtilizationExceed Rule = "land_utilization_exceeded"
)

// Crop is an active planting already occupying the field in the year.
type Crop struct {
	ID       int     `json:"id"`
	CropName string  `json:"crop_name,omitempty"`
	Season   Season  `json:"season"`
	Area     float64 `json:"area"`
}

type Candidate struct {
	Season   Season
	CropYear int
	Area     float64
}

type Snapshot struct {
	TotalArea             float64 `json:"total_area"`
	OccupiedArea          float64 `json:"occupied_area"`
	RemainingArea         float64 `json:"remaining_area"`
	UtilizationPercentage float64 `json:"utilization_percentage"`
	ActiveCrops           []Crop  `json:"active_crops"`
}

// Violation is returned when a candidate breaks a rule. Nothing has been
// written when a Violation is returned.
type Violation struct {
	Rule            Rule    `json:"rule"`
	Reason          string  `json:"reason"`
	ConflictsWith   *Crop   `json:"conflicts_with,omitempty"`
	OccupiedBefore  float64 `json:"occupied_before"`
	RemainingBefore float64 `json:"remaining_before"`
	Shortfall       float64 `json:"shortfall,omitempty"`
}

func (v *Violation) Error() string {
	return v.Reason
}

// Summarize computes the utilization of a field from its active crops.
func Summarize(totalArea float64, active []Crop) *Snapshot {
	occupied := occupiedArea(active)
	remaining := totalArea - occupied
	if math.Abs(remaining) < epsilon {
		remaining = 0
	}

	var pct float64
	if totalArea > 0 {
		pct = round2(occupied / totalArea * 100)
	}

	crops := make([]Crop, len(active))
	copy(crops, active)

	return &Snapshot{
		TotalArea:             totalArea,
		OccupiedArea:          occupied,
		RemainingArea:         remaining,
		UtilizationPercentage: pct,
		ActiveCrops:           crops,
	}
}

// Check validates candidate against the field's active crops for the same
// crop year. Rules run in order: area sanity, duplicate season, season
// exclusivity, area conservation. On success the returned snapshot includes
// the candidate as if it had been inserted.
func Check(totalArea float64, active []Crop, candidate Candidate) (*Snapshot, error) {
	occupied := occupiedArea(active)
	remaining := totalArea - occupied

	violation := func(rule Rule, reason string) *Violation {
		return &Violation{
			Rule:            rule,
			Reason:          reason,
			OccupiedBefore:  occupied,
			RemainingBefore: remaining,
		}
	}

	if candidate.Area <= 0 || math.IsNaN(candidate.Area) || math.IsInf(candidate.Area, 0) {
		return nil, violation(RuleInvalidArea, "crop area must be greater than zero")
	}

	for i := range active {
		if active[i].Season == candidate.Season {
			v := violation(RuleDuplicateSeason, fmt.Sprintf(
				"a %s crop already exists on this field for %d", candidate.Season, candidate.CropYear))
			v.ConflictsWith = &active[i]
			return nil, v
		}
	}

	for i := range active {
		if candidate.Season.Excludes(active[i].Season) {
			var reason string
			if candidate.Season == WholeYear {
				reason = fmt.Sprintf("a Whole Year crop cannot be added: the field already has a %s crop for %d",
					active[i].Season, candidate.CropYear)
			} else {
				reason = fmt.Sprintf("a %s crop cannot be added: the field is occupied by a Whole Year crop for %d",
					candidate.Season, candidate.CropYear)
			}
			v := violation(RuleSeasonConflict, reason)
			v.ConflictsWith = &active[i]
			return nil, v
		}
	}

	if occupied+candidate.Area > totalArea+epsilon {
		v := violation(RuleUtilizationExceed, fmt.Sprintf(
			"land utilization exceeded: %.2f of %.2f acres already occupied, %.2f remaining, %.2f requested",
			occupied, totalArea, math.Max(remaining, 0), candidate.Area))
		v.Shortfall = occupied + candidate.Area - totalArea
		return nil, v
	}

	after := append(make([]Crop, 0, len(active)+1), active...)
	after = append(after, Crop{Season: candidate.Season, Area: candidate.Area})
	return Summarize(totalArea, after), nil
}

func occupiedArea(active []Crop) float64 {
	var sum float64
	for _, c := range active {
		sum += c.Area
	}
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CheckResize validates changing a field's total area from currentArea to
// newArea. occupiedByYear holds the summed active crop area per crop year;
// the new area must still hold the fullest year.
func CheckResize(currentArea, newArea float64, occupiedByYear map[int]float64) error {
	if newArea <= 0 || math.IsNaN(newArea) || math.IsInf(newArea, 0) {
		return &Violation{Rule: RuleInvalidArea, Reason: "field area must be greater than zero"}
	}

	year, occupied := 0, 0.0
	for y, sum := range occupiedByYear {
		if sum > occupied || (sum == occupied && y < year) {
			year, occupied = y, sum
		}
	}
	if occupied <= newArea+epsilon {
		return nil
	}
	return &Violation{
		Rule: RuleUtilizationExceed,
		Reason: fmt.Sprintf(
			"land utilization exceeded: %.2f acres are already planted for %d, the field cannot shrink to %.2f",
			occupied, year, newArea),
		OccupiedBefore:  occupied,
		RemainingBefore: currentArea - occupied,
		Shortfall:       occupied - newArea,
	}
}
