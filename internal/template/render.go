// Package template implements the {{path.to.field}} placeholder renderer used
// by the embedding strategy (clue content), the LLM strategy (matching
// instructions), and the NPC response generator (system prompts). Rendering
// never fails on missing variables; it substitutes an empty string and reports
// the path, so an authoring mistake degrades a prompt instead of a request.
package template

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// SegmentType distinguishes verbatim template text from substituted variables
// in a render trace.
type SegmentType string

const (
	SegmentTemplate SegmentType = "template"
	SegmentVariable SegmentType = "variable"
)

// Segment is one piece of rendered output in source order. Variable segments
// carry the original path and whether it resolved, so callers can audit
// exactly what text an LLM received.
type Segment struct {
	Type     SegmentType `json:"type"`
	Text     string      `json:"text"`
	Variable string      `json:"variable,omitempty"`
	Resolved bool        `json:"resolved,omitempty"`
}

// Rendered is the full output of one Render call.
type Rendered struct {
	Content    string    `json:"content"`
	Warnings   []string  `json:"warnings,omitempty"`
	Unresolved []string  `json:"unresolved,omitempty"`
	Segments   []Segment `json:"segments"`
}

// ListFormat selects how slice values are joined into text.
type ListFormat string

const (
	FormatList    ListFormat = "list"    // numbered: "1. a\n2. b"
	FormatComma   ListFormat = "comma"   // "a, b"
	FormatBullet  ListFormat = "bullet"  // "• a\n• b"
	FormatDash    ListFormat = "dash"    // "- a\n- b"
	FormatNewline ListFormat = "newline" // "a\nb"
)

// Render substitutes every well-formed {{path}} or {{path|format}} placeholder
// in tmpl against ctx. Malformed placeholders pass through as literal text.
func Render(tmpl string, ctx map[string]any) Rendered {
	out := Rendered{}
	var content strings.Builder

	emitLiteral := func(text string) {
		if text == "" {
			return
		}
		content.WriteString(text)
		// Merge with a preceding literal segment so traces stay compact.
		if n := len(out.Segments); n > 0 && out.Segments[n-1].Type == SegmentTemplate {
			out.Segments[n-1].Text += text
			return
		}
		out.Segments = append(out.Segments, Segment{Type: SegmentTemplate, Text: text})
	}

	rest := tmpl
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			emitLiteral(rest)
			break
		}
		emitLiteral(rest[:open])

		end := strings.Index(rest[open:], "}}")
		if end < 0 {
			// Unterminated placeholder: keep the tail verbatim.
			emitLiteral(rest[open:])
			break
		}
		end += open

		raw := rest[open+2 : end]
		rest = rest[end+2:]

		path, format, ok := parsePlaceholder(raw)
		if !ok {
			emitLiteral("{{" + raw + "}}")
			continue
		}

		value, found := resolvePath(ctx, path)
		text := ""
		if found {
			text = formatValue(value, format)
		} else {
			out.Unresolved = append(out.Unresolved, path)
			out.Warnings = append(out.Warnings, fmt.Sprintf("variable %q not found in context", path))
		}

		content.WriteString(text)
		out.Segments = append(out.Segments, Segment{
			Type:     SegmentVariable,
			Text:     text,
			Variable: path,
			Resolved: found,
		})
	}

	out.Content = content.String()
	return out
}

// ExtractVariables returns the sorted set of unique variable paths referenced
// by well-formed placeholders in tmpl.
func ExtractVariables(tmpl string) []string {
	seen := make(map[string]struct{})
	rest := tmpl
	for {
		open := strings.Index(rest, "{{")
		if open < 0 {
			break
		}
		end := strings.Index(rest[open:], "}}")
		if end < 0 {
			break
		}
		end += open

		if path, _, ok := parsePlaceholder(rest[open+2 : end]); ok {
			seen[path] = struct{}{}
		}
		rest = rest[end+2:]
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// ValidateVariables checks that every referenced variable's root identifier is
// in the allow-list. It returns false plus one error string per offending
// variable; an empty template is valid.
func ValidateVariables(tmpl string, allowedRoots []string) (bool, []string) {
	allowed := make(map[string]struct{}, len(allowedRoots))
	for _, r := range allowedRoots {
		allowed[r] = struct{}{}
	}

	var errs []string
	for _, path := range ExtractVariables(tmpl) {
		root := path
		if i := strings.IndexByte(path, '.'); i >= 0 {
			root = path[:i]
		}
		if _, ok := allowed[root]; !ok {
			errs = append(errs, fmt.Sprintf("variable %q uses unknown root %q", path, root))
		}
	}
	return len(errs) == 0, errs
}

// parsePlaceholder splits the inside of a {{...}} into path and format.
// Returns ok=false when the contents are not identifier(.identifier)* with an
// optional known |format suffix.
func parsePlaceholder(raw string) (path string, format ListFormat, ok bool) {
	body := strings.TrimSpace(raw)
	format = FormatList

	if i := strings.IndexByte(body, '|'); i >= 0 {
		mode := strings.TrimSpace(body[i+1:])
		body = strings.TrimSpace(body[:i])
		switch ListFormat(mode) {
		case FormatList, FormatComma, FormatBullet, FormatDash, FormatNewline:
			format = ListFormat(mode)
		default:
			return "", "", false
		}
	}

	if body == "" {
		return "", "", false
	}
	for _, part := range strings.Split(body, ".") {
		if !isIdentifier(part) {
			return "", "", false
		}
	}
	return body, format, true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_',
			r >= 'a' && r <= 'z',
			r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// resolvePath walks ctx by successive keys. Each hop supports map lookup,
// struct field lookup (json tag first, then field name, case-insensitive), and
// pointer dereference. Any failed hop yields found=false.
func resolvePath(ctx map[string]any, path string) (any, bool) {
	var current any = ctx
	for _, key := range strings.Split(path, ".") {
		next, ok := lookup(current, key)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func lookup(v any, key string) (any, bool) {
	if v == nil {
		return nil, false
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true

	case reflect.Struct:
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			field := rt.Field(i)
			if !field.IsExported() {
				continue
			}
			tag := field.Tag.Get("json")
			if i := strings.IndexByte(tag, ','); i >= 0 {
				tag = tag[:i]
			}
			if tag == key || strings.EqualFold(field.Name, key) {
				return rv.Field(i).Interface(), true
			}
		}
		return nil, false

	default:
		return nil, false
	}
}

// formatValue stringifies a resolved value: slices per the requested list
// format, maps as sorted "key: value" pairs, everything else via %v.
func formatValue(v any, format ListFormat) string {
	if v == nil {
		return ""
	}

	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		items := make([]string, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = formatValue(rv.Index(i).Interface(), format)
		}
		return joinList(items, format)

	case reflect.Map:
		pairs := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			pairs = append(pairs, fmt.Sprintf("%v: %v", k.Interface(), rv.MapIndex(k).Interface()))
		}
		sort.Strings(pairs)
		return strings.Join(pairs, ", ")

	default:
		return fmt.Sprintf("%v", rv.Interface())
	}
}

func joinList(items []string, format ListFormat) string {
	switch format {
	case FormatComma:
		return strings.Join(items, ", ")
	case FormatNewline:
		return strings.Join(items, "\n")
	case FormatBullet:
		return prefixJoin(items, "• ")
	case FormatDash:
		return prefixJoin(items, "- ")
	default: // FormatList
		lines := make([]string, len(items))
		for i, item := range items {
			lines[i] = fmt.Sprintf("%d. %s", i+1, item)
		}
		return strings.Join(lines, "\n")
	}
}

func prefixJoin(items []string, prefix string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = prefix + item
	}
	return strings.Join(lines, "\n")
}
