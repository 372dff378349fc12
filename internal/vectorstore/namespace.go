package vectorstore

import (
	"fmt"
	"regexp"
	"strings"
)

// Namespace is an isolated logical partition of the store, one per user.
// Entries in one namespace are never visible to queries in another.
type Namespace string

var namespaceCharRe = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// UserNamespace derives a namespace from the numeric user ID. IDs are
// stable and unique, so two users can never collide the way two display
// names can after sanitization.
func UserNamespace(userID uint) Namespace {
	return Namespace(fmt.Sprintf("user_%d", userID))
}

// SanitizeNamespace turns an externally supplied label into a usable
// collection name: whitespace becomes underscores, anything outside the
// collection-name alphabet is dropped.
func SanitizeNamespace(label string) Namespace {
	label = strings.Join(strings.Fields(strings.TrimSpace(label)), "_")
	return Namespace(namespaceCharRe.ReplaceAllString(label, ""))
}

func (n Namespace) String() string { return string(n) }

func (n Namespace) Valid() bool { return n != "" }
