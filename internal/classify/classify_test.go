package classify

import (
	"testing"

	"github.com/microfront/hoist/internal/dom"
)

func TestIsHijackableTag(t *testing.T) {
	tests := []struct {
		tag  string
		want bool
	}{
		{"script", true},
		{"style", true},
		{"link", true},
		{"SCRIPT", true},
		{"Style", true},
		{"div", false},
		{"meta", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			if got := IsHijackableTag(tt.tag); got != tt.want {
				t.Errorf("IsHijackableTag(%q) = %v, want %v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestIsExecutableScriptType(t *testing.T) {
	tests := []struct {
		name     string
		typeAttr *string
		want     bool
	}{
		{"no type attribute", nil, true},
		{"text/javascript", strPtr("text/javascript"), true},
		{"module", strPtr("module"), true},
		{"application/javascript", strPtr("application/javascript"), true},
		{"text/ecmascript", strPtr("text/ecmascript"), true},
		{"application/ecmascript", strPtr("application/ecmascript"), true},
		{"uppercase normalized", strPtr("TEXT/JAVASCRIPT"), true},
		{"json data island", strPtr("application/json"), false},
		{"template", strPtr("text/x-template"), false},
		{"empty declared type", strPtr(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := dom.NewElement("script")
			if tt.typeAttr != nil {
				node.SetAttribute("type", *tt.typeAttr)
			}
			if got := IsExecutableScriptType(node); got != tt.want {
				t.Errorf("IsExecutableScriptType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRuleOnlyStyle(t *testing.T) {
	doc := dom.NewDocument()

	textual := dom.NewElement("style")
	textual.SetTextContent(".a { color: red; }")
	doc.Head.Element.AppendChild(textual)
	if IsRuleOnlyStyle(textual, nil) {
		t.Error("style with text content should not be rule-only")
	}

	ruleOnly := dom.NewElement("style")
	doc.Head.Element.AppendChild(ruleOnly)
	if IsRuleOnlyStyle(ruleOnly, nil) {
		t.Error("empty style with no rules should not be rule-only")
	}
	ruleOnly.Sheet().AppendRule(".b { color: blue; }")
	if !IsRuleOnlyStyle(ruleOnly, nil) {
		t.Error("empty style with live rules should be rule-only")
	}

	// detached style with a previous snapshot still classifies
	detached := dom.NewElement("style")
	preserved := func(n *dom.Element) bool { return n == detached }
	if !IsRuleOnlyStyle(detached, preserved) {
		t.Error("style with preserved rules should be rule-only")
	}

	notStyle := dom.NewElement("link")
	if IsRuleOnlyStyle(notStyle, nil) {
		t.Error("link should never be rule-only")
	}
}

func strPtr(s string) *string { return &s }
