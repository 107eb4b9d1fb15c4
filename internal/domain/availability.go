package domain

import (
	"encoding/json"
	"fmt"
)

type Availability string

const (
	AvailabilityFullSemester Availability = "Full Semester"
	AvailabilityQ1Only       Availability = "Q1 Only"
	AvailabilityQ2Only       Availability = "Q2 Only"
)

var Availabilities = []Availability{
	AvailabilityFullSemester,
	AvailabilityQ1Only,
	AvailabilityQ2Only,
}

// ParseAvailability 解析学生提交的时间段承诺，空字符串视为未选择，返回 Full Semester
func ParseAvailability(s string) (Availability, error) {
	if s == "" {
		return AvailabilityFullSemester, nil
	}
	for _, a := range Availabilities {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown availability %q", s)
}

func (a Availability) Valid() bool {
	switch a {
	case AvailabilityFullSemester, AvailabilityQ1Only, AvailabilityQ2Only:
		return true
	}
	return false
}

func (a *Availability) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAvailability(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
