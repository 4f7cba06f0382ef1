package backing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// contextNamePattern matches a single segment of a context name: letters,
// digits, underscore, hyphen. The reserved "__" separator joins segments
// and may not appear inside one.
var contextNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateContextName checks a context name against the naming rule: it
// must match [A-Za-z0-9_-]+ overall, and no individual "__"-joined segment
// may itself be empty (that would collapse the reserved separator).
func ValidateContextName(name string) error {
	if name == "" {
		return fmt.Errorf("backing: context name must not be empty")
	}
	if !contextNamePattern.MatchString(name) {
		return fmt.Errorf("backing: context name %q contains characters outside [A-Za-z0-9_-]", name)
	}
	for _, seg := range strings.Split(name, "__") {
		if seg == "" {
			return fmt.Errorf("backing: context name %q has an empty __-joined segment", name)
		}
	}
	if len(name) > ContextNameFieldLen {
		return fmt.Errorf("backing: context name %q exceeds %d bytes", name, ContextNameFieldLen)
	}
	return nil
}

// JoinContextName builds a context name from a namespace, a human name, and
// a sequence number, joined by the reserved "__" separator, e.g.
// JoinContextName("prod", "social-graph", 3) == "prod__social-graph__3".
func JoinContextName(namespace, name string, seq uint64) string {
	return fmt.Sprintf("%s__%s__%d", namespace, name, seq)
}

// GenerateContextName builds a context name for a caller that did not
// supply one: namespace defaults to "anon", name is a freshly generated
// UUID, sequence is 0.
func GenerateContextName(namespace string) string {
	if namespace == "" {
		namespace = "anon"
	}
	return JoinContextName(namespace, uuid.NewString(), 0)
}
