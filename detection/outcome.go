package detection

import "strings"

// Predicate selects labels.
type Predicate func(label string) bool

// LabelEquals matches one label exactly.
func LabelEquals(label string) Predicate {
	return func(l string) bool { return l == label }
}

// LabelContains matches labels containing substr, ignoring case.
func LabelContains(substr string) Predicate {
	substr = strings.ToLower(substr)
	return func(l string) bool { return strings.Contains(strings.ToLower(l), substr) }
}

// Outcome is either a non-empty list of matches or an explicit "no matches"
// result with a reason.
type Outcome struct {
	Matches []Labeled `json:"detections,omitempty"`
	// Reason explains an empty outcome, e.g. "License plate not found".
	Reason string `json:"reason,omitempty"`
}

// Found reports whether the outcome carries matches.
func (o Outcome) Found() bool {
	return len(o.Matches) > 0
}

// NoMatches builds an empty outcome.
func NoMatches(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Select keeps the detections accepted by keep. An empty selection becomes
// NoMatches(reason).
func Select(labeled []Labeled, keep Predicate, reason string) Outcome {
	var matches []Labeled
	for _, l := range labeled {
		if keep(l.Label) {
			matches = append(matches, l)
		}
	}
	if len(matches) == 0 {
		return NoMatches(reason)
	}
	return Outcome{Matches: matches}
}
