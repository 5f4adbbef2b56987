package landuse

import (
	"fmt"
	"strings"
)

type Season string

const (
	Kharif    Season = "Kharif"
	Rabi      Season = "Rabi"
	WholeYear Season = "Whole Year"
)

// Seasons is the canonical enumeration accepted by the backend.
var Seasons = []Season{Kharif, Rabi, WholeYear}

// ParseSeason accepts any casing and treats spaces, dashes and underscores
// as equivalent ("whole_year", "WHOLE YEAR", "Whole-Year").
func ParseSeason(s string) (Season, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", "", "-", "", " ", "").Replace(key)
	switch key {
	case "kharif":
		return Kharif, nil
	case "rabi":
		return Rabi, nil
	case "wholeyear":
		return WholeYear, nil
	}
	return "", fmt.Errorf("unknown season %q (allowed: Kharif, Rabi, Whole Year)", s)
}

// Excludes reports whether s and other cannot share a field in one crop year.
// Identical seasons are handled by the duplicate rule, not here.
func (s Season) Excludes(other Season) bool {
	if s == other {
		return false
	}
	return s == WholeYear || other == WholeYear
}
