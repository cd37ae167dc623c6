package goshawk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

type segKind int

const (
	segLiteral segKind = iota
	segParam
	segWildcard
)

// segment is one element of a parsed route pattern: a literal, a named
// single-segment parameter with an optional type constraint, or a trailing
// wildcard capturing the rest of the path.
type segment struct {
	kind     segKind
	literal  string
	name     string
	typeName string
	check    func(string) bool
}

// paramTypes maps a {name:type} constraint onto its segment predicate.
// A segment that fails the predicate does not match the route at all, so
// /items/{id:int} and /items/{id:uuid} can coexist.
var paramTypes = map[string]func(string) bool{
	"str": func(string) bool { return true },
	"int": func(s string) bool {
		_, err := strconv.ParseInt(s, 10, 64)
		return err == nil
	},
	"uint": func(s string) bool {
		_, err := strconv.ParseUint(s, 10, 64)
		return err == nil
	},
	"float": func(s string) bool {
		_, err := strconv.ParseFloat(s, 64)
		return err == nil
	},
	"hex": func(s string) bool {
		if s == "" {
			return false
		}
		for _, r := range s {
			switch {
			case '0' <= r && r <= '9', 'a' <= r && r <= 'f', 'A' <= r && r <= 'F':
			default:
				return false
			}
		}
		return true
	},
	"uuid": func(s string) bool {
		return uuid.Validate(s) == nil
	},
}

// parsePattern splits a route pattern into segments. Parameters are written
// {name} or {name:type}; {name:path} is a trailing wildcard and must be the
// final segment.
func parsePattern(pattern string) ([]segment, error) {
	if pattern == "" || pattern[0] != '/' {
		return nil, fmt.Errorf("pattern %q must start with /", pattern)
	}

	parts := splitPath(pattern)
	segs := make([]segment, 0, len(parts))

	for i, part := range parts {
		if !strings.HasPrefix(part, "{") {
			if strings.ContainsAny(part, "{}") {
				return nil, fmt.Errorf("pattern %q: malformed segment %q", pattern, part)
			}
			segs = append(segs, segment{kind: segLiteral, literal: part})
			continue
		}

		if !strings.HasSuffix(part, "}") {
			return nil, fmt.Errorf("pattern %q: unterminated parameter %q", pattern, part)
		}
		name, typeName, _ := strings.Cut(part[1:len(part)-1], ":")
		if name == "" {
			return nil, fmt.Errorf("pattern %q: parameter with empty name", pattern)
		}
		if typeName == "" {
			typeName = "str"
		}

		if typeName == "path" {
			if i != len(parts)-1 {
				return nil, fmt.Errorf("pattern %q: wildcard %q must be the final segment", pattern, part)
			}
			segs = append(segs, segment{kind: segWildcard, name: name, typeName: typeName})
			continue
		}

		check, ok := paramTypes[typeName]
		if !ok {
			return nil, fmt.Errorf("pattern %q: unknown parameter type %q", pattern, typeName)
		}
		segs = append(segs, segment{kind: segParam, name: name, typeName: typeName, check: check})
	}

	return segs, nil
}

// splitPath breaks a path into its non-empty segments. Leading, trailing
// and doubled slashes collapse, so /a/b/ and /a/b resolve identically.
func splitPath(path string) []string {
	raw := strings.Split(path, "/")
	parts := raw[:0]
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

// Route is an immutable binding from an HTTP method and path pattern to a
// handler. Route values are created during registration and read-only while
// serving.
type Route struct {
	Method  string
	Pattern string

	segments []segment
	handler  Handler
	index    int
}

// signature is the conflict key: two patterns collide when their literals
// are identical and their parameters are positionally equal with the same
// type constraint.
func (rt *Route) signature() string {
	var b strings.Builder
	b.WriteString(rt.Method)
	for _, seg := range rt.segments {
		b.WriteByte('/')
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.literal)
		case segParam:
			b.WriteString("{:" + seg.typeName + "}")
		case segWildcard:
			b.WriteString("{*}")
		}
	}
	return b.String()
}

// extractParams maps the matched path segments onto the route's parameter
// names. The wildcard captures the joined remainder (possibly empty).
func (rt *Route) extractParams(parts []string) map[string]string {
	params := make(map[string]string)
	for i, seg := range rt.segments {
		switch seg.kind {
		case segParam:
			params[seg.name] = parts[i]
		case segWildcard:
			params[seg.name] = strings.Join(parts[i:], "/")
		}
	}
	return params
}
