package record

import (
	"fmt"
	"strings"
	"time"
)

// PatientProfile identifies the patient at the head of the report. Age is
// derived from DOB when the profile is extracted and never stored separately.
type PatientProfile struct {
	Name string `json:"name" toml:"name"`
	DOB  string `json:"dob" toml:"dob"`
	Age  int    `json:"age" toml:"age"`
}

// profileFields is what the model is asked to produce.
type profileFields struct {
	Name string `json:"name" jsonschema:"The name of the patient"`
	DOB  string `json:"dob" jsonschema:"The patient's date of birth, formatted as MM/DD/YYYY"`
}

var dobLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"02 January 2006",
}

// ParseDOB parses a date of birth in any of the layouts seen in records,
// US month/day order first.
func ParseDOB(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dobLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date of birth %q", s)
}

// AgeAt returns the number of whole birthdays between dob and now.
func AgeAt(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
