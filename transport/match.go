package transport

import "strings"

// MatchTopic reports whether a concrete topic matches an MQTT-style pattern.
// "+" matches exactly one level, a trailing "#" matches any number of
// remaining levels (including none). Wildcards must occupy a whole level;
// patterns violating that never match.
func MatchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patternLevels := strings.Split(pattern, "/")
	topicLevels := strings.Split(topic, "/")

	for i, level := range patternLevels {
		switch level {
		case "#":
			// Multi-level wildcard is only valid as the final level.
			return i == len(patternLevels)-1
		case "+":
			if i >= len(topicLevels) {
				return false
			}
		default:
			if i >= len(topicLevels) || level != topicLevels[i] {
				return false
			}
		}
	}

	return len(patternLevels) == len(topicLevels)
}
