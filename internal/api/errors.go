package api

import (
	"fmt"
	"sort"
	"strings"
)

// NetworkError covers transport failures and non-2xx responses that carry
// no structured rejection detail. The previous snapshot stays usable; the
// caller decides whether to surface a banner or a toast.
type NetworkError struct {
	Op  string // "fetch catalog", "place order", ...
	Err error  // underlying transport error, nil for bare status failures
}

func (e *NetworkError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ValidationError is a structured rejection from order submission, e.g.
// the service detected insufficient stock. Details maps product id to the
// service's reason.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Details[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}
