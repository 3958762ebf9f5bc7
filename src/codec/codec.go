package codec

import (
	"regexp"
	"strings"
)

// MaxToolNameLength caps encoded tool names to stay within the host
// protocol's naming constraints.
const MaxToolNameLength = 64

var illegalChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// Encode maps a capability id to a protocol-legal tool name: dots become
// underscores, every other character outside [A-Za-z0-9_] is stripped, and
// the result is truncated to MaxToolNameLength. Deterministic and
// side-effect free. Distinct capability ids that differ only in stripped
// characters encode to the same tool name; reverse resolution must therefore
// go through a cache lookup by encoded form, not through Decode.
func Encode(capabilityID string) string {
	name := strings.ReplaceAll(capabilityID, ".", "_")
	name = illegalChars.ReplaceAllString(name, "")
	if len(name) > MaxToolNameLength {
		name = name[:MaxToolNameLength]
	}
	return name
}

// Decode is the best-effort inverse of Encode: underscores become dots.
// Information stripped by Encode cannot be recovered, so the returned id is
// only a fallback guess for display purposes.
func Decode(toolName string) string {
	return strings.ReplaceAll(toolName, "_", ".")
}
