package models

import (
	"fmt"
	"strings"
	"time"
)

var clockFormats = []string{
	"15:04:05",
	"15:04",
}

// PadSeconds turns "HH:MM" into "HH:MM:00" and leaves "HH:MM:SS" alone
func PadSeconds(s string) string {
	s = strings.TrimSpace(s)
	if strings.Count(s, ":") == 1 {
		return s + ":00"
	}
	return s
}

// ParseClock parses a time of day, with or without seconds
func ParseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var parseErr error
	for _, format := range clockFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
		parseErr = err
	}
	return 0, fmt.Errorf("unable to parse time of day %q: %w", s, parseErr)
}

// MillisSinceMidnight is the partidaMs/chegadaMs form of a time of day
func MillisSinceMidnight(s string) (int64, error) {
	d, err := ParseClock(s)
	if err != nil {
		return 0, err
	}
	return d.Milliseconds(), nil
}
