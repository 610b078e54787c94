package normalizer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/springdom/solace/internal/models"
)

var (
	subjectPrefixRe  = regexp.MustCompile(`(?i)^Splunk\s+Alert[\s:–\-]+(.+)`)
	subjectBracketRe = regexp.MustCompile(`(?i)^\[Splunk\]\s*(.+)`)
	logPathServiceRe = regexp.MustCompile(`/([^/]+)/logs?/`)
)

type emailPayload struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html"`
	BodyText string `json:"body_text"`
	From     string `json:"from"`
	To       string `json:"to"`
}

// EmailNormalizer turns Splunk alert emails into alerts. Emails carry the
// full result table, so a single email can produce many alerts, one per
// table row. Field extraction reuses the Splunk webhook heuristics.
type EmailNormalizer struct{}

func (n *EmailNormalizer) Validate(payload json.RawMessage) bool {
	var probe struct {
		Subject  *string `json:"subject"`
		BodyHTML *string `json:"body_html"`
		BodyText *string `json:"body_text"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	if probe.Subject == nil {
		return false
	}
	return probe.BodyHTML != nil || probe.BodyText != nil
}

func (n *EmailNormalizer) Normalize(payload json.RawMessage) ([]NormalizedAlert, error) {
	var p emailPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, err
	}

	searchName := extractSearchName(p.Subject)

	var rows []map[string]string
	if p.BodyHTML != "" {
		rows = largestHTMLTable(p.BodyHTML)
	}
	if len(rows) == 0 && p.BodyText != "" {
		rows = parsePlainTextTable(p.BodyText)
	}

	if len(rows) == 0 {
		description := p.BodyText
		if description == "" {
			description = p.Subject
		}
		if len(description) > 500 {
			description = description[:500]
		}
		return []NormalizedAlert{{
			Name:        searchName,
			Source:      "splunk",
			Severity:    models.SeverityWarning,
			Status:      models.AlertFiring,
			Description: description,
			Labels: map[string]string{
				"splunk_email_from":    p.From,
				"splunk_email_subject": p.Subject,
			},
			Annotations: map[string]string{},
			RawPayload:  payload,
		}}, nil
	}

	normalized := make([]NormalizedAlert, 0, len(rows))
	for _, row := range rows {
		description := firstResultField(row, splunkDescriptionKeys)

		// Short extractions like "ERROR" carry no context; prefer the
		// longer latest_error or raw event text.
		if description != "" && len(description) <= 10 {
			longer := row["latest_error"]
			if longer == "" {
				longer = row["_raw"]
				if len(longer) > 500 {
					longer = longer[:500]
				}
			}
			if len(longer) > len(description) {
				description = longer
			}
		}
		if description == "" {
			if raw := row["_raw"]; raw != "" {
				if len(raw) > 500 {
					raw = raw[:500]
				}
				description = raw
			}
		}

		extracted := splunkExtractedKeys(row,
			splunkSeverityKeys, splunkHostKeys, splunkServiceKeys,
			splunkEnvKeys, splunkDescriptionKeys)
		extracted["_raw"] = struct{}{}

		labels := splunkLabels(row, extracted)
		labels["splunk_email_from"] = p.From
		labels["splunk_search_name"] = searchName

		service := firstResultField(row, splunkServiceKeys)
		if service == "" {
			// Derive from log paths like /opt/app/APP_NAME/log/...
			if m := logPathServiceRe.FindStringSubmatch(row["source"]); m != nil {
				service = m[1]
			}
		}

		raw, _ := json.Marshal(row)
		normalized = append(normalized, NormalizedAlert{
			Name:        searchName,
			Source:      "splunk",
			Severity:    splunkSeverity(row),
			Status:      models.AlertFiring,
			Description: description,
			Service:     service,
			Environment: firstResultField(row, splunkEnvKeys),
			Host:        firstResultField(row, splunkHostKeys),
			Labels:      labels,
			Annotations: map[string]string{},
			RawPayload:  raw,
		})
	}
	return normalized, nil
}

// extractSearchName pulls the saved-search name out of an email subject.
// Accepts "Splunk Alert: X", "Splunk Alert - X", "[Splunk] X", or a
// custom subject used verbatim.
func extractSearchName(subject string) string {
	if m := subjectPrefixRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := subjectBracketRe.FindStringSubmatch(subject); m != nil {
		return strings.TrimSpace(m[1])
	}
	if s := strings.TrimSpace(subject); s != "" {
		return s
	}
	return "Splunk Email Alert"
}

// largestHTMLTable parses every <table> in the document and returns the
// rows of the one with the most data rows, which is most likely the
// results table.
func largestHTMLTable(html string) []map[string]string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var best []map[string]string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var headers []string
		var rows []map[string]string

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			// Skip rows belonging to nested tables.
			if tr.Closest("table").Get(0) != table.Get(0) {
				return
			}
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}
			if headers == nil {
				headers = cells
				return
			}
			row := map[string]string{}
			empty := true
			for i, header := range headers {
				if i >= len(cells) {
					break
				}
				row[header] = cells[i]
				if strings.TrimSpace(cells[i]) != "" {
					empty = false
				}
			}
			if !empty {
				rows = append(rows, row)
			}
		})

		if len(rows) > len(best) {
			best = rows
		}
	})
	return best
}

// parsePlainTextTable attempts tab-delimited and then pipe-delimited
// layouts used by Splunk plain-text emails.
func parsePlainTextTable(text string) []map[string]string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) < 2 {
		return nil
	}

	if headers := strings.Split(lines[0], "\t"); len(headers) > 1 {
		var rows []map[string]string
		for _, line := range lines[1:] {
			values := strings.Split(line, "\t")
			if len(values) < len(headers) {
				continue
			}
			row := map[string]string{}
			for i, header := range headers {
				row[header] = strings.TrimSpace(values[i])
			}
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			return rows
		}
	}

	headers := splitPipe(lines[0])
	if len(headers) > 1 {
		var rows []map[string]string
		for _, line := range lines[1:] {
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "=") {
				continue
			}
			values := splitPipe(line)
			if len(values) < len(headers) {
				continue
			}
			row := map[string]string{}
			for i, header := range headers {
				row[header] = values[i]
			}
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			return rows
		}
	}
	return nil
}

func splitPipe(line string) []string {
	var parts []string
	for _, part := range strings.Split(line, "|") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
