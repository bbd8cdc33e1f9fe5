package validate

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"autolot/internal/domain"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reID     = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// ID validates a resource identifier (listing uuids, submission ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Int coerces a JSON number or numeric string into an integer.
// Blank or non-numeric input is a validation error, never zero.
func Int(field string, raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, domain.Invalid(field, "must be a number")
		}
		s = strings.TrimSpace(str)
	}
	if s == "" || s == "null" {
		return 0, domain.Invalid(field, "must be a number")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, domain.Invalid(field, "must be a whole number")
	}
	return int64(f), nil
}

// SafeName reduces an uploaded file name to a single path segment of safe characters.
// It returns "" when nothing usable is left.
func SafeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = reUnsafe.ReplaceAllString(strings.TrimSpace(name), "-")
	name = strings.TrimLeft(name, ".-")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
