package services

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"time"

	"github.com/springdom/solace/internal/models"
)

const pagerdutyEventsURL = "https://events.pagerduty.com/v2/enqueue"

func errUnknownChannelType(t models.ChannelType) error {
	return fmt.Errorf("unknown channel type: %s", t)
}

func (n *Notifier) postJSON(ctx context.Context, url string, payload any, headers map[string]string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("POST %s returned %s", url, resp.Status)
	}
	return nil
}

func (n *Notifier) sendSlack(ctx context.Context, channel *models.NotificationChannel, incident *models.Incident, eventType string) error {
	if channel.Config.WebhookURL == "" {
		return fmt.Errorf("slack channel missing webhook_url in config")
	}
	return n.postJSON(ctx, channel.Config.WebhookURL, n.slackMessage(incident, eventType), nil)
}

// slackMessage builds a Block Kit message wrapped in a colored attachment.
func (n *Notifier) slackMessage(incident *models.Incident, eventType string) map[string]any {
	return map[string]any{
		"attachments": []map[string]any{{
			"color": severityColor(incident.Severity),
			"blocks": []map[string]any{
				{
					"type": "section",
					"text": map[string]any{
						"type": "mrkdwn",
						"text": fmt.Sprintf("*%s*\n*%s*", eventLabel(eventType), incident.Title),
					},
				},
				{
					"type": "section",
					"fields": []map[string]any{
						{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:* %s", strings.ToUpper(string(incident.Severity)))},
						{"type": "mrkdwn", "text": fmt.Sprintf("*Alerts:* %d", len(incident.Alerts))},
						{"type": "mrkdwn", "text": fmt.Sprintf("*Service:* %s", serviceText(incident))},
						{"type": "mrkdwn", "text": fmt.Sprintf("*Status:* %s", incident.Status)},
					},
				},
				{
					"type": "context",
					"elements": []map[string]any{
						{"type": "mrkdwn", "text": fmt.Sprintf("<%s|View in Solace>", n.cfg.DashboardURL)},
					},
				},
			},
		}},
	}
}

func (n *Notifier) sendTeams(ctx context.Context, channel *models.NotificationChannel, incident *models.Incident, eventType string) error {
	if channel.Config.WebhookURL == "" {
		return fmt.Errorf("teams channel missing webhook_url in config")
	}
	return n.postJSON(ctx, channel.Config.WebhookURL, n.teamsMessage(incident, eventType), nil)
}

// teamsMessage builds an Adaptive Card in the Teams Workflows webhook
// envelope.
func (n *Notifier) teamsMessage(incident *models.Incident, eventType string) map[string]any {
	return map[string]any{
		"type": "message",
		"attachments": []map[string]any{{
			"contentType": "application/vnd.microsoft.card.adaptive",
			"contentUrl":  nil,
			"content": map[string]any{
				"$schema": "http://adaptivecards.io/schemas/adaptive-card.json",
				"type":    "AdaptiveCard",
				"version": "1.4",
				"body": []map[string]any{
					{
						"type":  "Container",
						"style": "emphasis",
						"items": []map[string]any{
							{
								"type":   "TextBlock",
								"text":   fmt.Sprintf("🔔 %s", eventLabel(eventType)),
								"weight": "Bolder",
								"size":   "Medium",
							},
						},
					},
					{
						"type": "Container",
						"items": []map[string]any{
							{
								"type":   "TextBlock",
								"text":   incident.Title,
								"weight": "Bolder",
								"size":   "Large",
								"wrap":   true,
							},
							{
								"type": "FactSet",
								"facts": []map[string]any{
									{"title": "Severity", "value": strings.ToUpper(string(incident.Severity))},
									{"title": "Status", "value": strings.ToUpper(string(incident.Status))},
									{"title": "Alerts", "value": fmt.Sprintf("%d", len(incident.Alerts))},
									{"title": "Service", "value": serviceText(incident)},
								},
							},
						},
					},
				},
				"actions": []map[string]any{
					{
						"type":  "Action.OpenUrl",
						"title": "View in Solace",
						"url":   n.cfg.DashboardURL,
					},
				},
			},
		}},
	}
}

func (n *Notifier) sendWebhook(ctx context.Context, channel *models.NotificationChannel, incident *models.Incident, eventType string) error {
	if channel.Config.WebhookURL == "" {
		return fmt.Errorf("webhook channel missing webhook_url in config")
	}

	headers := map[string]string{"User-Agent": "Solace/1.0"}
	for k, v := range channel.Config.Headers {
		headers[k] = v
	}
	if channel.Config.Secret != "" {
		headers["X-Solace-Secret"] = channel.Config.Secret
	}

	return n.postJSON(ctx, channel.Config.WebhookURL, n.webhookPayload(incident, eventType), headers)
}

func (n *Notifier) webhookPayload(incident *models.Incident, eventType string) map[string]any {
	alerts := incident.Alerts
	if len(alerts) > 20 {
		alerts = alerts[:20]
	}
	alertsData := make([]map[string]any, 0, len(alerts))
	for _, a := range alerts {
		alertsData = append(alertsData, map[string]any{
			"id":              a.ID.String(),
			"name":            a.Name,
			"status":          a.Status,
			"severity":        a.Severity,
			"service":         a.Service,
			"host":            a.Host,
			"description":     a.Description,
			"duplicate_count": a.DuplicateCount,
			"starts_at":       isoTime(&a.StartsAt),
		})
	}

	return map[string]any{
		"event_type":    eventType,
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
		"source":        "solace",
		"dashboard_url": n.cfg.DashboardURL,
		"incident": map[string]any{
			"id":              incident.ID.String(),
			"title":           incident.Title,
			"status":          incident.Status,
			"severity":        incident.Severity,
			"started_at":      isoTime(&incident.StartedAt),
			"acknowledged_at": isoTime(incident.AcknowledgedAt),
			"resolved_at":     isoTime(incident.ResolvedAt),
			"alert_count":     len(incident.Alerts),
			"services":        incidentServices(incident),
			"alerts":          alertsData,
		},
	}
}

func isoTime(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func (n *Notifier) sendPagerDuty(ctx context.Context, channel *models.NotificationChannel, incident *models.Incident, eventType string) error {
	if channel.Config.RoutingKey == "" {
		return fmt.Errorf("pagerduty channel missing routing_key in config")
	}
	payload := n.pagerdutyEvent(incident, eventType, channel.Config.RoutingKey)
	return n.postJSON(ctx, pagerdutyEventsURL, payload, nil)
}

// pagerdutyEvent builds an Events API v2 payload. Resolved incidents send
// a resolve action against the same dedup key; everything else triggers.
func (n *Notifier) pagerdutyEvent(incident *models.Incident, eventType, routingKey string) map[string]any {
	action := "trigger"
	if eventType == "incident_resolved" {
		action = "resolve"
	}

	payload := map[string]any{
		"routing_key":  routingKey,
		"event_action": action,
		"dedup_key":    fmt.Sprintf("solace-incident-%s", incident.ID),
	}
	if action != "trigger" {
		return payload
	}

	services := serviceText(incident)
	payload["payload"] = map[string]any{
		"summary": fmt.Sprintf("[%s] %s (%d alerts)",
			strings.ToUpper(string(incident.Severity)), incident.Title, len(incident.Alerts)),
		"source":    services,
		"severity":  pagerdutySeverities[incident.Severity],
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"component": services,
		"group":     services,
		"class":     eventType,
		"custom_details": map[string]any{
			"incident_id":   incident.ID.String(),
			"status":        incident.Status,
			"alert_count":   len(incident.Alerts),
			"services":      incidentServices(incident),
			"dashboard_url": n.cfg.DashboardURL,
		},
	}
	payload["links"] = []map[string]any{
		{"href": n.cfg.DashboardURL, "text": "View in Solace"},
	}
	return payload
}

func (n *Notifier) sendEmail(channel *models.NotificationChannel, incident *models.Incident, eventType string) error {
	if n.cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP not configured (SMTP_HOST not set)")
	}
	if len(channel.Config.Recipients) == 0 {
		return fmt.Errorf("email channel missing recipients in config")
	}

	from := channel.Config.FromAddress
	if from == "" {
		from = n.cfg.SMTPFromAddress
	}

	subject, html := n.emailHTML(incident, eventType)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(channel.Config.Recipients, ", "))
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(html)

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	client, err := smtp.Dial(addr)
	if err != nil {
		return err
	}
	defer client.Quit()

	if n.cfg.SMTPUseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.SMTPHost}); err != nil {
			return err
		}
	}
	if n.cfg.SMTPUser != "" && n.cfg.SMTPPassword != "" {
		auth := smtp.PlainAuth("", n.cfg.SMTPUser, n.cfg.SMTPPassword, n.cfg.SMTPHost)
		if err := client.Auth(auth); err != nil {
			return err
		}
	}

	if err := client.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range channel.Config.Recipients {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(msg.String())); err != nil {
		return err
	}
	return w.Close()
}

// emailHTML renders the notification email. Returns (subject, body).
func (n *Notifier) emailHTML(incident *models.Incident, eventType string) (string, string) {
	severity := strings.ToUpper(string(incident.Severity))
	label := eventLabel(eventType)
	subject := fmt.Sprintf("[Solace] [%s] %s: %s", severity, label, incident.Title)

	const td = "padding:6px 12px;border-bottom:1px solid #1e2736"
	var alertRows strings.Builder
	alerts := incident.Alerts
	if len(alerts) > 10 {
		alerts = alerts[:10]
	}
	for _, a := range alerts {
		svc := "-"
		if a.Service != nil && *a.Service != "" {
			svc = *a.Service
		}
		fmt.Fprintf(&alertRows,
			`<tr><td style="%s">%s</td><td style="%s">%s</td><td style="%s">%s</td><td style="%s">%s</td></tr>`,
			td, a.Name, td, a.Severity, td, a.Status, td, svc)
	}

	alertTable := ""
	if alertRows.Len() > 0 {
		alertTable = fmt.Sprintf(`<h3 style="color:#e8ecf1;margin-top:24px;">Correlated Alerts</h3>
		<table style="width:100%%;border-collapse:collapse;font-size:13px;">
			<tr style="background:#111720;">
				<th style="padding:8px 12px;text-align:left;color:#3d4f65;">Name</th>
				<th style="padding:8px 12px;text-align:left;color:#3d4f65;">Severity</th>
				<th style="padding:8px 12px;text-align:left;color:#3d4f65;">Status</th>
				<th style="padding:8px 12px;text-align:left;color:#3d4f65;">Service</th>
			</tr>
			%s
		</table>`, alertRows.String())
	}

	html := fmt.Sprintf(`
	<div style="font-family:sans-serif;max-width:600px;margin:0 auto;background:#0a0e14;color:#c5cdd8;padding:24px;border-radius:8px">
		<h2 style="color:#e8ecf1;margin-top:0;">%s</h2>
		<table style="width:100%%;border-collapse:collapse;margin-bottom:16px;">
			<tr>
				<td style="padding:8px 0;color:#3d4f65;">Incident</td>
				<td style="padding:8px 0;color:#e8ecf1;font-weight:600;">%s</td>
			</tr>
			<tr>
				<td style="padding:8px 0;color:#3d4f65;">Severity</td>
				<td style="padding:8px 0;color:#e8ecf1;font-weight:600;">%s</td>
			</tr>
			<tr>
				<td style="padding:8px 0;color:#3d4f65;">Alert Count</td>
				<td style="padding:8px 0;color:#e8ecf1;">%d</td>
			</tr>
			<tr>
				<td style="padding:8px 0;color:#3d4f65;">Status</td>
				<td style="padding:8px 0;color:#e8ecf1;">%s</td>
			</tr>
		</table>

		%s

		<p style="margin-top:24px;">
			<a href="%s" style="color:#10b981;">View in Solace</a>
		</p>
	</div>`,
		label, incident.Title, severity, len(incident.Alerts), incident.Status,
		alertTable, n.cfg.DashboardURL)

	return subject, html
}
