// Package loader implements source loaders used by the routing orchestrator.
//
// This package contains:
//   - HTTPLoader: fetches a source catalog over HTTP, direct or through prefix/forward proxies
//   - GRPCLoader: lists a source's gRPC services via server reflection, direct or through gateways
//   - ClassifyHTTPStatus / ClassifyStatus: map transport failures onto the kind taxonomy
//
// Every error a loader returns is a *domain.ClassifiedError, so the
// orchestrator never has to guess from error types.
package loader

import (
	"strings"

	"github.com/vietddude/routefleet/internal/core/domain"
)

// SourcePlaceholder is replaced by the source id in URL and target templates.
const SourcePlaceholder = "{source}"

// throttlePatterns are substrings that indicate throttling or anti-bot defence in a body.
var throttlePatterns = []string{
	"rate limit exceeded",
	"rate limited",
	"too many requests",
	"request count exceeded",
	"quota exceeded",
	"ddos protection",
	"cloudflare",
	"attention required",
	"access denied",
}

// DetectThrottlePattern checks if a message contains throttle patterns.
func DetectThrottlePattern(message string) bool {
	lowerMsg := strings.ToLower(message)

	for _, pattern := range throttlePatterns {
		if strings.Contains(lowerMsg, pattern) {
			return true
		}
	}

	return false
}

func expand(template string, id domain.SourceID) string {
	return strings.ReplaceAll(template, SourcePlaceholder, string(id))
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
