package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/springdom/solace/internal/models"
)

func TestEmailValidate(t *testing.T) {
	n := &EmailNormalizer{}

	if !n.Validate(json.RawMessage(`{"subject": "x", "body_text": "y"}`)) {
		t.Fatal("payload with subject and body_text rejected")
	}
	if !n.Validate(json.RawMessage(`{"subject": "x", "body_html": "<p>y</p>"}`)) {
		t.Fatal("payload with subject and body_html rejected")
	}
	if n.Validate(json.RawMessage(`{"subject": "x"}`)) {
		t.Fatal("payload without any body accepted")
	}
	if n.Validate(json.RawMessage(`{"body_text": "y"}`)) {
		t.Fatal("payload without subject accepted")
	}
}

func TestExtractSearchName(t *testing.T) {
	tests := []struct {
		subject string
		want    string
	}{
		{"Splunk Alert: Errors in checkout", "Errors in checkout"},
		{"Splunk Alert - Disk usage high", "Disk usage high"},
		{"[Splunk] Failed logins spike", "Failed logins spike"},
		{"Custom alert subject", "Custom alert subject"},
		{"", "Splunk Email Alert"},
	}
	for _, tt := range tests {
		if got := extractSearchName(tt.subject); got != tt.want {
			t.Errorf("extractSearchName(%q) = %q, want %q", tt.subject, got, tt.want)
		}
	}
}

func TestEmailNormalizeHTMLTable(t *testing.T) {
	payload := map[string]string{
		"subject": "Splunk Alert: Checkout errors",
		"from":    "splunk@example.com",
		"body_html": `<html><body>
			<table><tr><td>decorative</td></tr></table>
			<table>
				<tr><th>host</th><th>service</th><th>severity</th><th>message</th></tr>
				<tr><td>web-01</td><td>checkout</td><td>high</td><td>timeout calling payments</td></tr>
				<tr><td>web-02</td><td>checkout</td><td>critical</td><td>connection refused</td></tr>
			</table>
		</body></html>`,
	}
	raw, _ := json.Marshal(payload)

	n := &EmailNormalizer{}
	alerts, err := n.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected one alert per table row, got %d", len(alerts))
	}

	first := alerts[0]
	if first.Name != "Checkout errors" {
		t.Errorf("Name = %q", first.Name)
	}
	if first.Source != "splunk" {
		t.Errorf("Source = %q", first.Source)
	}
	if first.Host != "web-01" {
		t.Errorf("Host = %q", first.Host)
	}
	if first.Service != "checkout" {
		t.Errorf("Service = %q", first.Service)
	}
	if first.Severity != models.SeverityHigh {
		t.Errorf("Severity = %q", first.Severity)
	}
	if first.Description != "timeout calling payments" {
		t.Errorf("Description = %q", first.Description)
	}
	if first.Labels["splunk_email_from"] != "splunk@example.com" {
		t.Errorf("labels = %v", first.Labels)
	}

	if alerts[1].Severity != models.SeverityCritical {
		t.Errorf("second row Severity = %q", alerts[1].Severity)
	}
}

func TestEmailNormalizePlainTextTable(t *testing.T) {
	payload := map[string]string{
		"subject":   "Splunk Alert: Disk usage",
		"body_text": "host\tseverity\tmessage\ndb-01\twarning\tdisk 85% full\n",
	}
	raw, _ := json.Marshal(payload)

	n := &EmailNormalizer{}
	alerts, err := n.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Host != "db-01" {
		t.Errorf("Host = %q", alerts[0].Host)
	}
	if alerts[0].Description != "disk 85% full" {
		t.Errorf("Description = %q", alerts[0].Description)
	}
}

func TestEmailNormalizeNoTable(t *testing.T) {
	payload := map[string]string{
		"subject":   "Splunk Alert: Something odd",
		"body_text": "single line with no table",
	}
	raw, _ := json.Marshal(payload)

	n := &EmailNormalizer{}
	alerts, err := n.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected 1 fallback alert, got %d", len(alerts))
	}
	if alerts[0].Name != "Something odd" {
		t.Errorf("Name = %q", alerts[0].Name)
	}
	if alerts[0].Description != "single line with no table" {
		t.Errorf("Description = %q", alerts[0].Description)
	}
	if alerts[0].Severity != models.SeverityWarning {
		t.Errorf("Severity = %q", alerts[0].Severity)
	}
}

func TestParsePlainTextTablePipes(t *testing.T) {
	text := "host | severity | message\n----\nweb-01 | high | it broke\n"
	rows := parsePlainTextTable(text)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0]["host"] != "web-01" || rows[0]["severity"] != "high" {
		t.Fatalf("rows = %v", rows)
	}
}

func TestLargestHTMLTableSkipsNested(t *testing.T) {
	html := `<table>
		<tr><th>a</th><th>b</th></tr>
		<tr><td>1</td><td><table><tr><td>inner</td></tr></table>2</td></tr>
		<tr><td>3</td><td>4</td></tr>
	</table>`
	rows := largestHTMLTable(html)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %v", len(rows), rows)
	}
	if rows[1]["a"] != "3" {
		t.Fatalf("rows = %v", rows)
	}
}
