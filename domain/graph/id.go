// Package graph implements the in-memory code graph: the canonical node
// and relationship value types (C1) and the mutable store that owns them
// (C2).
package graph

import (
	"strconv"
	"strings"

	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

// Kind enumerates the entity kinds a Node may have.
type Kind string

const (
	KindFunction Kind = "function"
	KindMethod   Kind = "method"
	KindClass    Kind = "class"
	KindModule   Kind = "module"
	KindImport   Kind = "import"
	KindVariable Kind = "variable"
	KindOther    Kind = "other"
)

// idDelimiter separates the components of a canonical node id. None of
// the components may contain it.
const idDelimiter = ":"

// NewID constructs the canonical node identifier
// "{kind}:{file}:{name}:{line}[:{suffix}]". Paths are normalized to
// forward slashes and the kind is lower-cased, so two callers describing
// the same entity always produce the same id.
func NewID(kind Kind, file, name string, line int, suffix ...string) (string, error) {
	k := strings.ToLower(string(kind))
	f := filepathToSlash(file)
	n := name

	for _, part := range []string{k, f, n} {
		if part == "" {
			return "", apperrors.NewInvalidIdentifier("identifier component cannot be empty")
		}
		if strings.Contains(part, idDelimiter) {
			return "", apperrors.NewInvalidIdentifier("identifier component cannot contain '" + idDelimiter + "'")
		}
	}

	parts := []string{k, f, n, strconv.Itoa(line)}
	if len(suffix) > 0 && suffix[0] != "" {
		if strings.Contains(suffix[0], idDelimiter) {
			return "", apperrors.NewInvalidIdentifier("identifier suffix cannot contain '" + idDelimiter + "'")
		}
		parts = append(parts, suffix[0])
	}
	return strings.Join(parts, idDelimiter), nil
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
