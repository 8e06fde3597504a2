// Package dict rewrites recognized text using a phrase dictionary, fixing
// the spellings speech recognition reliably gets wrong ("chat gpt" for
// "ChatGPT" and friends).
package dict

import (
	"sort"
	"strings"
	"unicode"
)

// Rule maps a spoken phrase to its written replacement. Matching is
// case-insensitive; the replacement is emitted verbatim.
type Rule struct {
	Phrase      string
	Replacement string
}

// Dictionary applies an ordered rule set. Longer phrases always win over
// shorter overlapping ones; equal-length candidates resolve by phrase order,
// so application is deterministic.
type Dictionary struct {
	rules []rule
}

type rule struct {
	phrase      []rune // lowercased
	replacement string
}

// New builds a dictionary from phrase→replacement pairs.
func New(mappings map[string]string) *Dictionary {
	d := &Dictionary{}
	for phrase, replacement := range mappings {
		p := []rune(strings.TrimSpace(phrase))
		for i, r := range p {
			p[i] = unicode.ToLower(r)
		}
		if len(p) == 0 {
			continue
		}
		d.rules = append(d.rules, rule{phrase: p, replacement: replacement})
	}
	sort.Slice(d.rules, func(i, j int) bool {
		if len(d.rules[i].phrase) != len(d.rules[j].phrase) {
			return len(d.rules[i].phrase) > len(d.rules[j].phrase)
		}
		return string(d.rules[i].phrase) < string(d.rules[j].phrase)
	})
	return d
}

// Default returns the stock corrections shipped with the interpreter.
func Default() *Dictionary {
	return New(map[string]string{
		"chat gpt":    "ChatGPT",
		"you tube":    "YouTube",
		"mine craft":  "Minecraft",
		"open ai":     "OpenAI",
		"ram sathvik": "Ram Sathvik",
	})
}

// Merge returns a dictionary containing d's rules plus the extra mappings,
// with extras overriding same-phrase stock rules.
func (d *Dictionary) Merge(extra map[string]string) *Dictionary {
	merged := make(map[string]string, len(d.rules)+len(extra))
	for _, r := range d.rules {
		merged[string(r.phrase)] = r.replacement
	}
	for phrase, replacement := range extra {
		merged[strings.ToLower(strings.TrimSpace(phrase))] = replacement
	}
	return New(merged)
}

// Len reports the number of rules.
func (d *Dictionary) Len() int {
	return len(d.rules)
}

// Apply replaces every dictionary phrase occurring in text exactly once per
// occurrence. Matches must fall on word boundaries; "chat gpt" does not match
// inside "chitchat gpt-ish".
func (d *Dictionary) Apply(text string) string {
	if len(d.rules) == 0 || text == "" {
		return text
	}

	src := []rune(text)
	lower := make([]rune, len(src))
	for i, r := range src {
		lower[i] = unicode.ToLower(r)
	}
	var out strings.Builder
	out.Grow(len(text))

	for i := 0; i < len(src); {
		matched := false
		for _, r := range d.rules {
			if !matchesAt(lower, i, r.phrase) {
				continue
			}
			out.WriteString(r.replacement)
			i += len(r.phrase)
			matched = true
			break
		}
		if !matched {
			out.WriteRune(src[i])
			i++
		}
	}
	return out.String()
}

func matchesAt(lower []rune, at int, phrase []rune) bool {
	if at+len(phrase) > len(lower) {
		return false
	}
	for i, pr := range phrase {
		if lower[at+i] != pr {
			return false
		}
	}
	if at > 0 && isWordRune(lower[at-1]) && isWordRune(phrase[0]) {
		return false
	}
	end := at + len(phrase)
	if end < len(lower) && isWordRune(lower[end]) && isWordRune(phrase[len(phrase)-1]) {
		return false
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
