package links

import "strings"

// Rule triggers a site-filtered lookup when any keyword occurs in a prompt.
type Rule struct {
	Name     string
	Keywords []string
	Site     string
}

// Rules are evaluated in declared order; the first match wins.
type Rules []Rule

// DefaultRules checks shopping intent before video intent, so a prompt
// naming both amazon and youtube searches amazon.com.
func DefaultRules() Rules {
	return Rules{
		{Name: "amazon", Keywords: []string{"amazon", "buy", "shopping"}, Site: "amazon.com"},
		{Name: "youtube", Keywords: []string{"youtube", "video"}, Site: "youtube.com"},
	}
}

// Match returns the first rule with a keyword contained in prompt,
// compared case-insensitively.
func (rs Rules) Match(prompt string) (Rule, bool) {
	lower := strings.ToLower(prompt)
	for _, rule := range rs {
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(lower, kw) {
				return rule, true
			}
		}
	}
	return Rule{}, false
}
