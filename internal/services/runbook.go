package services

import (
	"strings"

	"github.com/gobwas/glob"

	"github.com/springdom/solace/internal/models"
)

// matchPattern does shell-style glob matching where * crosses any
// characters. Invalid patterns match nothing.
func matchPattern(pattern, value string) bool {
	g, err := glob.Compile(pattern)
	if err != nil {
		return false
	}
	return g.Match(value)
}

// ResolveRunbookURL finds the first rule matching the alert and renders its
// URL template. Rules are expected in priority order. Returns "" when no
// rule matches.
func ResolveRunbookURL(rules []models.RunbookRule, alert *models.Alert) string {
	service := ""
	if alert.Service != nil {
		service = *alert.Service
	}

	for _, rule := range rules {
		if !matchPattern(rule.ServicePattern, service) {
			continue
		}
		if rule.NamePattern != nil && *rule.NamePattern != "" {
			// A name pattern requires a name to match against.
			if alert.Name == "" {
				continue
			}
			if !matchPattern(*rule.NamePattern, alert.Name) {
				continue
			}
		}
		return renderRunbookTemplate(rule.RunbookURLTemplate, alert)
	}
	return ""
}

// renderRunbookTemplate substitutes {service}, {host}, {name}, and
// {environment}; unrecognized {placeholders} pass through untouched.
func renderRunbookTemplate(template string, alert *models.Alert) string {
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	return strings.NewReplacer(
		"{service}", deref(alert.Service),
		"{host}", deref(alert.Host),
		"{name}", alert.Name,
		"{environment}", deref(alert.Environment),
	).Replace(template)
}
