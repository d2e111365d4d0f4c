package event

import "strings"

// Topic names a kind of event as a dot-separated path, most specific
// segment last.
type Topic string

// TopicProvider is implemented by every event payload; the bus routes
// on the returned topic.
type TopicProvider interface {
	EventTopic() Topic
}

// Match reports whether the topic matches a subscription pattern.
// "*" matches exactly one segment and a trailing "**" matches any
// remaining segments, including none.
func (t Topic) Match(pattern Topic) bool {
	if pattern == t {
		return true
	}
	segs := strings.Split(string(t), ".")
	pats := strings.Split(string(pattern), ".")
	for i, p := range pats {
		if p == "**" && i == len(pats)-1 {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if p != "*" && p != segs[i] {
			return false
		}
	}
	return len(pats) == len(segs)
}

// Valid reports whether a pattern is well formed: non-empty segments,
// with "**" allowed only as the final segment.
func (t Topic) Valid() bool {
	if t == "" {
		return false
	}
	segs := strings.Split(string(t), ".")
	for i, s := range segs {
		if s == "" {
			return false
		}
		if s == "**" && i != len(segs)-1 {
			return false
		}
	}
	return true
}
