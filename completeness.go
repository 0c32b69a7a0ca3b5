package membership

import (
	"math"
	"strings"
)

// Completeness is the derived view of how filled-in a member's profile
// is. It is recomputed from the raw fields on every mutation; the
// Member.ProfileCompleted flag is only ever a cache of Completed.
type Completeness struct {
	Completed     bool     `json:"completed"`
	MissingFields []string `json:"missing_fields"`
	Progress      int      `json:"progress"`
}

// RequiredProfileFields is the fixed field set a complete profile must
// populate: the core registration fields plus the post-login extended
// fields. Order is the order missing fields are reported in.
var RequiredProfileFields = []string{
	"first_name",
	"last_name",
	"phone_number",
	"age",
	"country",
	"commune",
	"occupation",
	"availability",
	"motivation",
	"values_commitment",
	"data_consent",
	"city",
	"mobilization_city",
	"section",
	"interests",
}

// EvaluateCompleteness reports which required fields are missing on a
// member snapshot. Presence is type aware: strings count after
// trimming, numbers must be non-zero, and booleans must be explicitly
// true (an unticked consent is missing, not merely falsy).
func EvaluateCompleteness(m *Member) Completeness {
	total := len(RequiredProfileFields)
	missing := make([]string, 0, total)

	for _, field := range RequiredProfileFields {
		if !fieldPresent(m, field) {
			missing = append(missing, field)
		}
	}

	progress := int(math.Round(float64(total-len(missing)) / float64(total) * 100))

	return Completeness{
		Completed:     len(missing) == 0,
		MissingFields: missing,
		Progress:      progress,
	}
}

func fieldPresent(m *Member, field string) bool {
	switch field {
	case "first_name":
		return strings.TrimSpace(m.FirstName) != ""
	case "last_name":
		return strings.TrimSpace(m.LastName) != ""
	case "phone_number":
		return strings.TrimSpace(m.Phone) != ""
	case "age":
		return m.Age != 0
	case "country":
		return strings.TrimSpace(m.Country) != ""
	case "commune":
		return strings.TrimSpace(m.Commune) != ""
	case "occupation":
		return strings.TrimSpace(m.Occupation) != ""
	case "availability":
		return strings.TrimSpace(m.Availability) != ""
	case "motivation":
		return strings.TrimSpace(m.Motivation) != ""
	case "values_commitment":
		return m.ValuesCommitment
	case "data_consent":
		return m.DataConsent
	case "city":
		return strings.TrimSpace(m.City) != ""
	case "mobilization_city":
		return strings.TrimSpace(m.MobilizationCity) != ""
	case "section":
		return strings.TrimSpace(m.Section) != ""
	case "interests":
		return strings.TrimSpace(m.Interests) != ""
	default:
		return false
	}
}

// RefreshCompleteness recomputes and caches the completed flag after a
// mutation that touched tracked fields. Returns the evaluation so
// callers can surface progress without a second pass.
func RefreshCompleteness(m *Member) Completeness {
	c := EvaluateCompleteness(m)
	m.ProfileCompleted = c.Completed
	return c
}
