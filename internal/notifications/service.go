package notifications

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/websapdev/ai-visibility/internal/config"
	"github.com/websapdev/ai-visibility/internal/models"
	"gopkg.in/gomail.v2"
)

// Service sends visibility digests to Teams and/or email
type Service struct {
	config *config.Config
	client *resty.Client
	dialer mailDialer
}

// Ensure Service implements NotificationInterface
var _ NotificationInterface = (*Service)(nil)

type mailDialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// TeamsMessage represents a Microsoft Teams message card
type TeamsMessage struct {
	Type     string         `json:"@type"`
	Context  string         `json:"@context"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Sections []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewService creates a new notification service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
		client: resty.New().SetTimeout(30 * time.Second),
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
	}
}

// SendReport delivers the digest to every configured channel and joins their errors
func (s *Service) SendReport(ctx context.Context, report *models.Report) error {
	var errors []string

	if s.config.TeamsWebhookURL != "" {
		if err := s.sendToTeams(ctx, report); err != nil {
			logrus.Errorf("Failed to send Teams notification: %v", err)
			errors = append(errors, fmt.Sprintf("Teams: %v", err))
		} else {
			logrus.Info("Successfully sent digest to Teams")
		}
	}

	if s.config.NotificationEmail != "" {
		if err := s.sendEmail(report); err != nil {
			logrus.Errorf("Failed to send email notification: %v", err)
			errors = append(errors, fmt.Sprintf("Email: %v", err))
		} else {
			logrus.Info("Successfully sent digest via email")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (s *Service) sendToTeams(ctx context.Context, report *models.Report) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(buildTeamsMessage(report)).
		Post(s.config.TeamsWebhookURL)
	if err != nil {
		return fmt.Errorf("failed to send Teams message: %w", err)
	}

	if resp.StatusCode() != 200 {
		return fmt.Errorf("Teams webhook returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}
	return nil
}

func buildTeamsMessage(report *models.Report) *TeamsMessage {
	message := &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   fmt.Sprintf("AI Visibility Digest - %s", report.Period),
		Text:    fmt.Sprintf("Polled %d brands on %s", len(report.Brands), report.GeneratedAt.Format("2006-01-02 15:04 MST")),
	}

	for _, b := range report.Brands {
		section := TeamsSection{
			ActivityTitle: b.BrandName,
			Markdown:      true,
		}
		if b.Error != "" {
			section.ActivitySubtitle = "Poll failed"
			section.ActivityText = b.Error
		} else {
			section.Facts = []TeamsFact{
				{Name: "Share of Voice", Value: fmt.Sprintf("%d%%", b.Headline.OverallSov)},
				{Name: "New Answers", Value: fmt.Sprintf("%d", b.NewAnswers)},
				{Name: "Answers (window)", Value: fmt.Sprintf("%d", b.Headline.TotalAnswers)},
				{Name: "Competitors Tracked", Value: fmt.Sprintf("%d", b.Headline.CompetitorsTracked)},
			}
			for _, e := range b.EngineSov {
				section.Facts = append(section.Facts, TeamsFact{Name: e.Name, Value: fmt.Sprintf("%.1f%%", e.Sov)})
			}
		}
		message.Sections = append(message.Sections, section)
	}

	return message
}

func (s *Service) sendEmail(report *models.Report) error {
	subject := fmt.Sprintf("AI Visibility Digest - %s (%d brands)", report.Period, len(report.Brands))

	htmlBody, err := buildEmailHTML(report)
	if err != nil {
		return fmt.Errorf("failed to build email HTML: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.config.SMTPUsername)
	m.SetHeader("To", s.config.NotificationEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", buildEmailText(report))
	m.AddAlternative("text/html", htmlBody)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

const emailTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>AI Visibility Digest</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #4f46e5; color: white; padding: 20px; border-radius: 5px; }
        .brand { border-left: 4px solid #4f46e5; padding: 10px; margin: 10px 0; background-color: #fafafa; }
        .failed { border-left-color: #d13438; }
        .meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>AI Visibility Digest</h1>
        <p>{{.Period}} digest generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM MST"}}</p>
    </div>

    {{range .Brands}}
    <div class="brand{{if .Error}} failed{{end}}">
        <h2>{{.BrandName}}</h2>
        {{if .Error}}
            <p>Poll failed: {{.Error}}</p>
        {{else}}
            <p><strong>Share of Voice:</strong> {{.Headline.OverallSov}}%</p>
            <p class="meta">{{.NewAnswers}} new answers | {{.Headline.TotalAnswers}} answers in window | {{.Headline.CompetitorsTracked}} competitors tracked</p>
            {{range .EngineSov}}
                <p>{{.Name}}: {{percent .Sov}}</p>
            {{end}}
        {{end}}
    </div>
    {{end}}

    <hr>
    <p><small>This digest was generated automatically by the AI visibility poller.</small></p>
</body>
</html>
`

func buildEmailHTML(report *models.Report) (string, error) {
	t, err := template.New("email").Funcs(template.FuncMap{
		"percent": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	}).Parse(emailTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, report); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func buildEmailText(report *models.Report) string {
	var text strings.Builder

	text.WriteString(fmt.Sprintf("AI Visibility Digest - %s\n", report.Period))
	text.WriteString(fmt.Sprintf("Generated: %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))

	for _, b := range report.Brands {
		text.WriteString(fmt.Sprintf("\n%s\n", b.BrandName))
		text.WriteString(strings.Repeat("=", len(b.BrandName)) + "\n")
		if b.Error != "" {
			text.WriteString(fmt.Sprintf("Poll failed: %s\n", b.Error))
			continue
		}
		text.WriteString(fmt.Sprintf("Share of Voice: %d%%\n", b.Headline.OverallSov))
		text.WriteString(fmt.Sprintf("New Answers: %d | Answers in window: %d | Competitors: %d\n",
			b.NewAnswers, b.Headline.TotalAnswers, b.Headline.CompetitorsTracked))
		for _, e := range b.EngineSov {
			text.WriteString(fmt.Sprintf("   %-12s %.1f%%\n", e.Name+":", e.Sov))
		}
	}

	text.WriteString("\n---\nThis digest was generated automatically by the AI visibility poller.\n")
	return text.String()
}
