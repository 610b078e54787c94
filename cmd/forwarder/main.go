package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/http"
	"net/mail"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/spf13/viper"
)

// The forwarder polls an IMAP mailbox for alert emails (Splunk scheduled
// searches and the like) and forwards each one to the email webhook, where
// the normal ingest pipeline takes over.

type forwarderConfig struct {
	IMAPHost       string
	IMAPPort       int
	IMAPUser       string
	IMAPPassword   string
	UseSSL         bool
	Folder         string
	SubjectPattern string
	SolaceURL      string
	APIKey         string
	PollInterval   time.Duration
	MarkAsRead     bool
	MoveToFolder   string
	MaxPerPoll     int
}

func loadConfig() forwarderConfig {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("imap_port", 993)
	v.SetDefault("imap_use_ssl", true)
	v.SetDefault("imap_folder", "INBOX")
	v.SetDefault("subject_pattern", "Splunk Alert")
	v.SetDefault("solace_url", "http://localhost:8000")
	v.SetDefault("poll_interval", 60)
	v.SetDefault("mark_as_read", true)
	v.SetDefault("max_emails_per_poll", 50)

	cfg := forwarderConfig{
		IMAPHost:       v.GetString("imap_host"),
		IMAPPort:       v.GetInt("imap_port"),
		IMAPUser:       v.GetString("imap_user"),
		IMAPPassword:   v.GetString("imap_password"),
		UseSSL:         v.GetBool("imap_use_ssl"),
		Folder:         v.GetString("imap_folder"),
		SubjectPattern: v.GetString("subject_pattern"),
		SolaceURL:      v.GetString("solace_url"),
		APIKey:         v.GetString("solace_api_key"),
		PollInterval:   time.Duration(v.GetInt("poll_interval")) * time.Second,
		MarkAsRead:     v.GetBool("mark_as_read"),
		MoveToFolder:   v.GetString("move_to_folder"),
		MaxPerPoll:     v.GetInt("max_emails_per_poll"),
	}
	return cfg
}

func main() {
	cfg := loadConfig()

	once := flag.Bool("once", false, "run a single poll and exit")
	flag.StringVar(&cfg.IMAPHost, "host", cfg.IMAPHost, "IMAP server hostname")
	flag.IntVar(&cfg.IMAPPort, "port", cfg.IMAPPort, "IMAP server port")
	flag.StringVar(&cfg.IMAPUser, "user", cfg.IMAPUser, "IMAP username")
	flag.StringVar(&cfg.Folder, "folder", cfg.Folder, "IMAP folder to watch")
	flag.StringVar(&cfg.SubjectPattern, "pattern", cfg.SubjectPattern, "subject pattern to match (regex, empty matches all)")
	flag.StringVar(&cfg.SolaceURL, "url", cfg.SolaceURL, "base URL of the Solace API")
	flag.DurationVar(&cfg.PollInterval, "interval", cfg.PollInterval, "poll interval")
	flag.Parse()

	if cfg.IMAPHost == "" || cfg.IMAPUser == "" || cfg.IMAPPassword == "" {
		log.Fatal("IMAP_HOST, IMAP_USER, and IMAP_PASSWORD are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fw := newForwarder(cfg)

	if *once {
		if err := fw.poll(ctx); err != nil {
			log.Printf("poll failed: %v", err)
			os.Exit(1)
		}
		return
	}

	log.Printf("Watching %s on %s every %s (pattern %q)",
		cfg.Folder, cfg.IMAPHost, cfg.PollInterval, cfg.SubjectPattern)
	for {
		if err := fw.poll(ctx); err != nil {
			log.Printf("poll failed: %v", err)
		}
		select {
		case <-ctx.Done():
			log.Println("Forwarder exited")
			return
		case <-time.After(cfg.PollInterval):
		}
	}
}

type forwarder struct {
	cfg     forwarderConfig
	http    *http.Client
	subject *regexp.Regexp
}

func newForwarder(cfg forwarderConfig) *forwarder {
	fw := &forwarder{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
	if cfg.SubjectPattern != "" {
		re, err := regexp.Compile("(?i)" + cfg.SubjectPattern)
		if err != nil {
			// Fall back to case-insensitive substring matching.
			log.Printf("invalid subject pattern %q, using substring match: %v", cfg.SubjectPattern, err)
		} else {
			fw.subject = re
		}
	}
	return fw
}

func (f *forwarder) matches(subject string) bool {
	if f.cfg.SubjectPattern == "" {
		return true
	}
	if f.subject != nil {
		return f.subject.MatchString(subject)
	}
	return strings.Contains(strings.ToLower(subject), strings.ToLower(f.cfg.SubjectPattern))
}

// poll runs one fetch-and-forward cycle against the mailbox.
func (f *forwarder) poll(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", f.cfg.IMAPHost, f.cfg.IMAPPort)
	var (
		c   *client.Client
		err error
	)
	if f.cfg.UseSSL {
		c, err = client.DialTLS(addr, nil)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer c.Logout()

	if err := c.Login(f.cfg.IMAPUser, f.cfg.IMAPPassword); err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if _, err := c.Select(f.cfg.Folder, false); err != nil {
		return fmt.Errorf("selecting %s: %w", f.cfg.Folder, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return fmt.Errorf("searching unseen: %w", err)
	}
	if len(uids) == 0 {
		return nil
	}
	if len(uids) > f.cfg.MaxPerPoll {
		log.Printf("found %d unseen emails, processing first %d", len(uids), f.cfg.MaxPerPoll)
		uids = uids[:f.cfg.MaxPerPoll]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchUid}
	messages := make(chan *imap.Message, 10)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, messages)
	}()

	var forwarded []uint32
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		email, err := parseEmail(body)
		if err != nil {
			log.Printf("parsing uid %d: %v", msg.Uid, err)
			continue
		}
		if !f.matches(email.Subject) {
			continue
		}
		if err := f.forward(ctx, email); err != nil {
			log.Printf("forwarding %q: %v", email.Subject, err)
			continue
		}
		forwarded = append(forwarded, msg.Uid)
	}
	if err := <-done; err != nil {
		return fmt.Errorf("fetching: %w", err)
	}

	if len(forwarded) == 0 {
		return nil
	}
	return f.finalize(c, forwarded)
}

// finalize marks forwarded emails as seen and optionally moves them to the
// archive folder. Emails that failed stay unseen and retry next poll.
func (f *forwarder) finalize(c *client.Client, uids []uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	if f.cfg.MarkAsRead {
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
			return fmt.Errorf("marking seen: %w", err)
		}
	}
	if f.cfg.MoveToFolder != "" {
		// Create is a no-op failure when the folder already exists.
		c.Create(f.cfg.MoveToFolder)
		if err := c.UidCopy(seqset, f.cfg.MoveToFolder); err != nil {
			return fmt.Errorf("copying to %s: %w", f.cfg.MoveToFolder, err)
		}
		item := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.UidStore(seqset, item, []interface{}{imap.DeletedFlag}, nil); err != nil {
			return fmt.Errorf("flagging deleted: %w", err)
		}
		if err := c.Expunge(nil); err != nil {
			return fmt.Errorf("expunging: %w", err)
		}
	}
	return nil
}

type parsedEmail struct {
	Subject  string `json:"subject"`
	BodyHTML string `json:"body_html,omitempty"`
	BodyText string `json:"body_text,omitempty"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func parseEmail(r io.Reader) (*parsedEmail, error) {
	msg, err := mail.ReadMessage(r)
	if err != nil {
		return nil, err
	}

	dec := new(mime.WordDecoder)
	subject := msg.Header.Get("Subject")
	if decoded, err := dec.DecodeHeader(subject); err == nil {
		subject = decoded
	}

	email := &parsedEmail{
		Subject: subject,
		From:    msg.Header.Get("From"),
		To:      msg.Header.Get("To"),
	}
	if err := extractBodies(email, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body); err != nil {
		return nil, err
	}
	return email, nil
}

// extractBodies walks a MIME tree collecting the first text/html and
// text/plain parts.
func extractBodies(email *parsedEmail, contentType, encoding string, body io.Reader) error {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := multipart.NewReader(body, params["boundary"])
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			if err := extractBodies(email, part.Header.Get("Content-Type"),
				part.Header.Get("Content-Transfer-Encoding"), part); err != nil {
				return err
			}
		}
	}

	data, err := decodeBody(body, encoding)
	if err != nil {
		return err
	}
	switch {
	case mediaType == "text/html" && email.BodyHTML == "":
		email.BodyHTML = string(data)
	case mediaType == "text/plain" && email.BodyText == "":
		email.BodyText = string(data)
	}
	return nil
}

func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		r = quotedprintable.NewReader(r)
	case "base64":
		r = base64.NewDecoder(base64.StdEncoding, r)
	}
	return io.ReadAll(r)
}

type webhookResponse struct {
	AlertID     string `json:"alert_id"`
	Fingerprint string `json:"fingerprint"`
	IsDuplicate bool   `json:"is_duplicate"`
}

// forward posts the parsed email to the email webhook. Success means the
// API accepted the alert with a 202.
func (f *forwarder) forward(ctx context.Context, email *parsedEmail) error {
	payload, err := json.Marshal(email)
	if err != nil {
		return err
	}

	url := strings.TrimRight(f.cfg.SolaceURL, "/") + "/api/v1/webhooks/email"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", f.cfg.APIKey)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, body)
	}

	var wr webhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&wr); err == nil {
		log.Printf("forwarded %q (alert=%s fingerprint=%s duplicate=%v)",
			email.Subject, wr.AlertID, wr.Fingerprint, wr.IsDuplicate)
	}
	return nil
}
