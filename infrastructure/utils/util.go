package utils

import "time"

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// StringValue dereferences s, returning "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
