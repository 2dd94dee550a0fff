// Package style preserves programmatically injected stylesheet rules
// across an app's unmount/remount cycle.
//
// Browsers discard a style node's live rule list the moment the node
// leaves the document. Rules that were injected through the CSSOM rather
// than as text have no other representation, so the orchestrator captures
// them right before unmount and replays them after remount.
package style

import (
	"sync"

	"github.com/microfront/hoist/internal/classify"
	"github.com/microfront/hoist/internal/dom"
)

// Preserver keeps identity-keyed snapshots of rule-only style nodes. The
// table is advisory: it never owns the nodes and is cleared wholesale on
// full uninstall rather than entry by entry.
type Preserver struct {
	mu    sync.Mutex
	rules map[*dom.Element][]dom.CSSRule
}

// NewPreserver creates an empty preserver.
func NewPreserver() *Preserver {
	return &Preserver{rules: make(map[*dom.Element][]dom.CSSRule)}
}

// CaptureRules snapshots the live rule list of every rule-only style node
// in nodes. Re-capturing overwrites the previous snapshot.
func (p *Preserver) CaptureRules(nodes []*dom.Element) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, node := range nodes {
		if node == nil || !classify.IsRuleOnlyStyle(node, p.hasLocked) {
			continue
		}
		if sheet := node.Sheet(); sheet != nil && sheet.Len() > 0 {
			p.rules[node] = sheet.Rules()
		}
	}
}

// ReplayRules appends each preserved rule, in captured order, to the
// node's live rule list. Call only after the node has been reattached;
// appending rather than replacing keeps rules the reattachment itself
// already produced. No-op when nothing was preserved.
func (p *Preserver) ReplayRules(node *dom.Element) {
	p.mu.Lock()
	captured, ok := p.rules[node]
	p.mu.Unlock()
	if !ok {
		return
	}

	sheet := node.Sheet()
	if sheet == nil {
		return
	}
	if endsWith(sheet.Rules(), captured) {
		// already restored, through an earlier replay or another path
		return
	}
	for _, rule := range captured {
		sheet.AppendRule(rule.Text)
	}
}

func endsWith(live, captured []dom.CSSRule) bool {
	if len(captured) == 0 || len(live) < len(captured) {
		return false
	}
	offset := len(live) - len(captured)
	for i, rule := range captured {
		if live[offset+i].Text != rule.Text {
			return false
		}
	}
	return true
}

// Has reports whether a snapshot exists for the node. It satisfies the
// classifier's preserved-rules probe.
func (p *Preserver) Has(node *dom.Element) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasLocked(node)
}

func (p *Preserver) hasLocked(node *dom.Element) bool {
	_, ok := p.rules[node]
	return ok
}

// Clear drops every snapshot. Invoked on full uninstall.
func (p *Preserver) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = make(map[*dom.Element][]dom.CSSRule)
}
