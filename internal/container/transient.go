// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"os/exec"
	"strings"
)

// transientMarkers are engine or registry messages that usually clear up on retry.
var transientMarkers = []string{
	"Temporary failure resolving",
	"Could not resolve host",
	"connection timed out",
	"connection refused",
	"connection reset by peer",
	"TLS handshake timeout",
	"i/o timeout",
	"503 Service Unavailable",
	"502 Bad Gateway",
	"toomanyrequests",
	"error creating overlay mount",
	"error mounting layer",
}

// IsTransientError reports whether a build or push failure may succeed on a
// second attempt. Cancellation is never transient.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// 125 is the generic engine failure exit code.
	if exitErr, ok := errors.AsType[*exec.ExitError](err); ok && exitErr.ExitCode() == 125 {
		return true
	}

	msg := err.Error()
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
