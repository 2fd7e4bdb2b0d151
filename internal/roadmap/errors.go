package roadmap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHoursCeiling is returned when the hours solver cannot reach zero
// backlog at or below MAX_OPTIMAL_HOURS_PER_WEEK.
var ErrHoursCeiling = errors.New("hours solver exceeded ceiling")

// ValidationError aggregates every fatal problem found in an input or config.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid roadmap input: " + strings.Join(e.Problems, "; ")
}

// problems collects validation failures in discovery order.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: append([]string(nil), p...)}
}
