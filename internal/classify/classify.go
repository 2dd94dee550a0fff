// Package classify decides which nodes the interception layer cares about.
package classify

import (
	"strings"

	"github.com/microfront/hoist/internal/dom"
)

// executableTypes are the script type values the browser executes. An
// absent type attribute counts as executable; anything else is data.
var executableTypes = map[string]struct{}{
	"text/javascript":        {},
	"module":                 {},
	"application/javascript": {},
	"text/ecmascript":        {},
	"application/ecmascript": {},
}

// IsHijackableTag reports whether a tag names a resource node the
// interceptor reroutes: script, style, or link.
func IsHijackableTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "script", "style", "link":
		return true
	}
	return false
}

// IsHijackable reports whether the node itself is a reroutable resource.
func IsHijackable(node *dom.Element) bool {
	return node != nil && node.Type == dom.ElementNode && IsHijackableTag(node.TagName)
}

// IsExecutableScriptType reports whether a script node would be executed
// by the browser rather than treated as a data island.
func IsExecutableScriptType(node *dom.Element) bool {
	if !node.HasAttribute("type") {
		return true
	}
	_, ok := executableTypes[strings.ToLower(strings.TrimSpace(node.GetAttribute("type")))]
	return ok
}

// IsRuleOnlyStyle reports whether a style node's CSS exists only as live
// rule objects: empty text but a non-empty rule list, or rules previously
// preserved for it. preserved reports whether a snapshot exists; callers
// without a preserver pass nil.
func IsRuleOnlyStyle(node *dom.Element, preserved func(*dom.Element) bool) bool {
	if node == nil || node.TagName != "style" {
		return false
	}
	if strings.TrimSpace(node.TextContent()) != "" {
		return false
	}
	if sheet := node.Sheet(); sheet != nil && sheet.Len() > 0 {
		return true
	}
	return preserved != nil && preserved(node)
}
