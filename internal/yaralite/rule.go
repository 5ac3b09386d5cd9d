// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package yaralite implements a reduced rule grammar for the yara
// action: named rules carrying a strings block (literal or hex
// byte patterns) and a condition (any/all/N of them). It is not a
// YARA-compatible engine — only the subset of the language the
// collector's scan targets actually need, compiled to plain
// regexp/bytes matchers.
package yaralite

import (
	"fmt"
	"regexp"
)

// Pattern is one named string pattern from a rule's strings block.
type Pattern struct {
	Name string
	re   *regexp.Regexp // literal patterns are compiled to a quoted-literal regexp
	hex  []hexByte       // hex patterns match directly over the scanned bytes
}

// hexByte is one byte position in a hex pattern: either a fixed value
// or a wildcard (from a hex pattern's "??" placeholder).
type hexByte struct {
	value    byte
	wildcard bool
}

// Rule is one compiled rule: a name, its string patterns, and a
// condition over how many of them must match.
type Rule struct {
	Name      string
	Patterns  []Pattern
	Condition Condition
}

// ConditionKind selects how many patterns must match for a rule to fire.
type ConditionKind int

const (
	ConditionAny ConditionKind = iota // at least one pattern
	ConditionAll                      // every pattern
	ConditionN                        // at least N patterns
)

// Condition is a rule's compiled condition clause.
type Condition struct {
	Kind ConditionKind
	N    int // only meaningful when Kind == ConditionN
}

// Match reports whether data satisfies r's condition, and which pattern
// names matched.
func (r Rule) Match(data []byte) (matched bool, matchedNames []string) {
	for _, p := range r.Patterns {
		if p.matches(data) {
			matchedNames = append(matchedNames, p.Name)
		}
	}

	switch r.Condition.Kind {
	case ConditionAny:
		matched = len(matchedNames) >= 1
	case ConditionAll:
		matched = len(matchedNames) == len(r.Patterns)
	case ConditionN:
		matched = len(matchedNames) >= r.Condition.N
	}
	return matched, matchedNames
}

func (p Pattern) matches(data []byte) bool {
	if p.re != nil {
		return p.re.Match(data)
	}
	return matchHex(data, p.hex)
}

// matchHex reports whether pattern occurs anywhere in data, treating
// wildcard bytes as matching anything.
func matchHex(data []byte, pattern []hexByte) bool {
	if len(pattern) == 0 || len(pattern) > len(data) {
		return len(pattern) == 0
	}
	for start := 0; start+len(pattern) <= len(data); start++ {
		if hexMatchesAt(data[start:start+len(pattern)], pattern) {
			return true
		}
	}
	return false
}

func hexMatchesAt(window []byte, pattern []hexByte) bool {
	for i, hb := range pattern {
		if !hb.wildcard && window[i] != hb.value {
			return false
		}
	}
	return true
}

// RuleSet is a compiled collection of rules, scanned together against
// one file's contents.
type RuleSet struct {
	Rules []Rule
}

// Scan evaluates every rule in the set against data, returning the
// names of rules that matched.
func (rs *RuleSet) Scan(data []byte) []string {
	var hits []string
	for _, r := range rs.Rules {
		if matched, _ := r.Match(data); matched {
			hits = append(hits, r.Name)
		}
	}
	return hits
}

func (r Rule) String() string {
	return fmt.Sprintf("rule %s (%d patterns)", r.Name, len(r.Patterns))
}
