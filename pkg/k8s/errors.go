package k8s

import (
	"errors"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// ErrUnavailable is returned when no live cluster connection exists.
// Callers are expected to turn this into an explicit "cluster API not
// available" result rather than a failure.
var ErrUnavailable = errors.New("cluster API not available")

// IsNotFound reports whether err means the requested object does not exist.
// Not-found is treated as an empty result throughout, never propagated.
func IsNotFound(err error) bool {
	return apierrors.IsNotFound(err)
}

// classifyError buckets a connection error message for reporting
func classifyError(errMsg string) string {
	switch {
	case containsAny(errMsg, "context deadline exceeded", "timeout"):
		return "timeout"
	case containsAny(errMsg, "401", "Unauthorized", "forbidden"):
		return "auth"
	case containsAny(errMsg, "connection refused", "no such host", "network"):
		return "network"
	case containsAny(errMsg, "x509", "certificate"):
		return "certificate"
	default:
		return "unknown"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
