package dom

// CSSRule is a single rule inside a live stylesheet. Only the serialized
// text is modeled; the interception layer never needs parsed selectors.
type CSSRule struct {
	Text string
}

// StyleSheet is the live rule list of a connected style element. Rules
// inserted here exist only as objects, not as element text, which is what
// makes them vulnerable to detach/reattach cycles.
type StyleSheet struct {
	owner *Element
	rules []CSSRule
}

// InsertRule inserts a rule at the given index, clamped into range, and
// returns the index it landed at.
func (s *StyleSheet) InsertRule(text string, index int) int {
	if index < 0 {
		index = 0
	}
	if index > len(s.rules) {
		index = len(s.rules)
	}
	s.rules = append(s.rules, CSSRule{})
	copy(s.rules[index+1:], s.rules[index:])
	s.rules[index] = CSSRule{Text: text}
	return index
}

// AppendRule appends a rule at the end.
func (s *StyleSheet) AppendRule(text string) int {
	return s.InsertRule(text, len(s.rules))
}

// DeleteRule removes the rule at index; out-of-range indexes are ignored.
func (s *StyleSheet) DeleteRule(index int) {
	if index < 0 || index >= len(s.rules) {
		return
	}
	s.rules = append(s.rules[:index], s.rules[index+1:]...)
}

// Rules returns a copy of the rule list.
func (s *StyleSheet) Rules() []CSSRule {
	return append([]CSSRule(nil), s.rules...)
}

// Len returns the number of rules.
func (s *StyleSheet) Len() int {
	return len(s.rules)
}
