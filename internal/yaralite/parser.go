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

package yaralite

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	caseerrors "github.com/tombee/casefile/pkg/errors"
)

// Grammar (one rule per block):
//
//	rule <name> {
//	    strings:
//	        $<id> = "<literal>"
//	        $<id> = { <hex bytes, ?? as wildcard> }
//	    condition:
//	        any of them
//	        all of them
//	        <N> of them
//	}
//
// Comments start with "//" or "#" and run to end of line. Whitespace
// between tokens is insignificant.

var (
	ruleHeaderRe = regexp.MustCompile(`^rule\s+([A-Za-z_][A-Za-z0-9_]*)\s*\{$`)
	stringDeclRe = regexp.MustCompile(`^(\$[A-Za-z_][A-Za-z0-9_]*)\s*=\s*(.+)$`)
	nOfThemRe    = regexp.MustCompile(`^(\d+)\s+of\s+them$`)
)

// ParseFile compiles the rule blocks found in src (the contents of one
// rules file). A file may contain multiple rule blocks.
func ParseFile(src string) (*RuleSet, error) {
	lines := stripComments(src)

	rs := &RuleSet{}
	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}

		m := ruleHeaderRe.FindStringSubmatch(line)
		if m == nil {
			return nil, &caseerrors.ValidationError{
				Field:   "rules_paths",
				Message: fmt.Sprintf("expected a \"rule <name> {\" header, found %q", line),
			}
		}

		rule, next, err := parseRuleBody(m[1], lines, i+1)
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, rule)
		i = next
	}

	if len(rs.Rules) == 0 {
		return nil, &caseerrors.ValidationError{
			Field:   "rules_paths",
			Message: "rules file contains no rule blocks",
		}
	}
	return rs, nil
}

// stripComments splits src into lines and removes "//" and "#" comments
// from each; lines are not trimmed and blank lines are kept.
func stripComments(src string) []string {
	rawLines := strings.Split(src, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		if idx := strings.Index(l, "//"); idx >= 0 {
			l = l[:idx]
		}
		if idx := strings.Index(l, "#"); idx >= 0 {
			l = l[:idx]
		}
		lines = append(lines, l)
	}
	return lines
}

func parseRuleBody(name string, lines []string, start int) (Rule, int, error) {
	rule := Rule{Name: name}
	section := ""
	sawCondition := false
	i := start

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		i++

		if line == "" {
			continue
		}
		if line == "}" {
			if !sawCondition {
				return Rule{}, 0, &caseerrors.ValidationError{
					Field:   "rules_paths",
					Message: fmt.Sprintf("rule %q has no condition clause", name),
				}
			}
			return rule, i, nil
		}

		switch line {
		case "strings:":
			section = "strings"
			continue
		case "condition:":
			section = "condition"
			continue
		}

		switch section {
		case "strings":
			p, err := parsePatternLine(line)
			if err != nil {
				return Rule{}, 0, fmt.Errorf("rule %q: %w", name, err)
			}
			rule.Patterns = append(rule.Patterns, p)
		case "condition":
			cond, err := parseCondition(line)
			if err != nil {
				return Rule{}, 0, fmt.Errorf("rule %q: %w", name, err)
			}
			rule.Condition = cond
			sawCondition = true
		default:
			return Rule{}, 0, &caseerrors.ValidationError{
				Field:   "rules_paths",
				Message: fmt.Sprintf("rule %q: statement %q outside strings:/condition:", name, line),
			}
		}
	}

	return Rule{}, 0, &caseerrors.ValidationError{
		Field:   "rules_paths",
		Message: fmt.Sprintf("rule %q: missing closing \"}\"", name),
	}
}

func parsePatternLine(line string) (Pattern, error) {
	m := stringDeclRe.FindStringSubmatch(line)
	if m == nil {
		return Pattern{}, fmt.Errorf("malformed string declaration %q", line)
	}
	id, rhs := m[1], strings.TrimSpace(m[2])

	if strings.HasPrefix(rhs, "{") {
		hb, err := parseHexPattern(rhs)
		if err != nil {
			return Pattern{}, fmt.Errorf("%s: %w", id, err)
		}
		return Pattern{Name: id, hex: hb}, nil
	}

	if strings.HasPrefix(rhs, `"`) {
		literal, err := parseQuotedLiteral(rhs)
		if err != nil {
			return Pattern{}, fmt.Errorf("%s: %w", id, err)
		}
		return Pattern{Name: id, re: regexp.MustCompile(regexp.QuoteMeta(literal))}, nil
	}

	return Pattern{}, fmt.Errorf("%s: value must be a quoted literal or a hex byte block, got %q", id, rhs)
}

func parseQuotedLiteral(rhs string) (string, error) {
	if len(rhs) < 2 || rhs[len(rhs)-1] != '"' {
		return "", fmt.Errorf("unterminated string literal %q", rhs)
	}
	unquoted, err := strconv.Unquote(rhs)
	if err != nil {
		return "", fmt.Errorf("invalid string literal %q: %w", rhs, err)
	}
	return unquoted, nil
}

func parseHexPattern(rhs string) ([]hexByte, error) {
	if !strings.HasSuffix(rhs, "}") {
		return nil, fmt.Errorf("unterminated hex block %q", rhs)
	}
	body := strings.TrimSpace(rhs[1 : len(rhs)-1])
	tokens := strings.Fields(body)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty hex block")
	}

	bytes := make([]hexByte, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "??" {
			bytes = append(bytes, hexByte{wildcard: true})
			continue
		}
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", tok)
		}
		bytes = append(bytes, hexByte{value: byte(v)})
	}
	return bytes, nil
}

func parseCondition(line string) (Condition, error) {
	switch line {
	case "any of them":
		return Condition{Kind: ConditionAny}, nil
	case "all of them":
		return Condition{Kind: ConditionAll}, nil
	}

	if m := nOfThemRe.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Condition{}, fmt.Errorf("invalid condition count in %q", line)
		}
		return Condition{Kind: ConditionN, N: n}, nil
	}

	return Condition{}, fmt.Errorf("unrecognized condition %q (expected \"any of them\", \"all of them\", or \"N of them\")", line)
}
