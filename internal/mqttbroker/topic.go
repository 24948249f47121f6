package mqttbroker

import "strings"

// ValidFilter reports whether filter is a well formed MQTT topic filter.
func ValidFilter(filter string) bool {
	if filter == "" || len(filter) > 65535 {
		return false
	}
	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return false
			}
		case level == "+":
		case strings.ContainsAny(level, "+#"):
			return false
		}
	}
	return true
}

// TopicMatches reports whether topic matches filter, honouring the single
// level "+" and multi level "#" wildcards. Wildcards at the first level never
// match topics starting with "$".
func TopicMatches(filter, topic string) bool {
	if filter == topic {
		return true
	}
	if strings.HasPrefix(topic, "$") && (strings.HasPrefix(filter, "+") || strings.HasPrefix(filter, "#")) {
		return false
	}

	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")

	for i, level := range f {
		if level == "#" {
			return true
		}
		if i >= len(t) {
			return false
		}
		if level != "+" && level != t[i] {
			return false
		}
	}
	return len(f) == len(t)
}
