package interceptor

import (
	"regexp"
	"strings"
	"sync"

	"github.com/waypoint-labs/waypoint/logger"
	"go.uber.org/zap"
)

var patternMu sync.RWMutex
var patternCache = make(map[string]*regexp.Regexp)

// MatchTopic matches an event type against an MQTT-style topic pattern.
// "#" is a catch-all (including as a standalone pattern), "+" matches exactly
// one path segment and "*" is a within-segment wildcard. Literal pattern
// characters are regex-escaped so user-provided topic strings cannot inject
// regex syntax.
func MatchTopic(pattern string, topic string) bool {
	re, err := compiledPattern(pattern)
	if err != nil {
		logger.Error("invalid topic pattern", zap.String("pattern", pattern), zap.Error(err))
		return false
	}
	return re.MatchString(topic)
}

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[pattern]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}
	re, err := regexp.Compile(translatePattern(pattern))
	if err != nil {
		return nil, err
	}
	patternMu.Lock()
	patternCache[pattern] = re
	patternMu.Unlock()
	return re, nil
}

func translatePattern(pattern string) string {
	if pattern == "#" {
		return "^.*$"
	}
	segments := strings.Split(pattern, "/")
	var parts []string
	for i, seg := range segments {
		switch {
		case seg == "#" && i == len(segments)-1:
			// "a/#" also matches "a" itself.
			return "^" + strings.Join(parts, "/") + "(?:/.*)?$"
		case seg == "#":
			parts = append(parts, ".*")
		case seg == "+":
			parts = append(parts, "[^/]+")
		default:
			escaped := regexp.QuoteMeta(seg)
			parts = append(parts, strings.ReplaceAll(escaped, `\*`, `[^/]*`))
		}
	}
	return "^" + strings.Join(parts, "/") + "$"
}
