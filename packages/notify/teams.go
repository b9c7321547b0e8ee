package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// TeamsNotifier sends notifications to Microsoft Teams via webhook
type TeamsNotifier struct {
	webhookURL string
	client     *http.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// WithTeamsClient replaces the HTTP client
func WithTeamsClient(c *http.Client) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client = c
	}
}

// NewTeamsNotifier creates a new Teams notifier
func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

// teamsMessage wraps one Adaptive Card
type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string        `json:"type"`
	Size      string        `json:"size,omitempty"`
	Weight    string        `json:"weight,omitempty"`
	Text      string        `json:"text,omitempty"`
	Color     string        `json:"color,omitempty"`
	Wrap      bool          `json:"wrap,omitempty"`
	Columns   []teamsColumn `json:"columns,omitempty"`
	Items     []teamsBlock  `json:"items,omitempty"`
	Spacing   string        `json:"spacing,omitempty"`
	Separator bool          `json:"separator,omitempty"`
}

type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

func column(title, value, color string) teamsColumn {
	return teamsColumn{
		Type:  "Column",
		Width: "stretch",
		Items: []teamsBlock{
			{Type: "TextBlock", Text: "**" + title + "**", Wrap: true},
			{Type: "TextBlock", Text: value, Color: color, Wrap: true},
		},
	}
}

func text(s string) teamsBlock {
	return teamsBlock{Type: "TextBlock", Text: s, Wrap: true}
}

func (t *TeamsNotifier) message(summary *RunSummary) teamsMessage {
	color := "good"
	if summary.FailedTests > 0 || !summary.Passed() {
		color = "attention"
	}

	body := []teamsBlock{
		{Type: "TextBlock", Size: "Large", Weight: "Bolder", Text: summary.Title(), Color: color},
		{
			Type:      "ColumnSet",
			Separator: true,
			Spacing:   "Medium",
			Columns: []teamsColumn{
				column("Total Tests", fmt.Sprint(summary.TotalTests), ""),
				column("Passed", fmt.Sprint(summary.PassedTests), "good"),
				column("Failed", fmt.Sprint(summary.FailedTests), "attention"),
				column("Skipped", fmt.Sprint(summary.SkippedTests), "warning"),
				column("Duration", summary.Duration.Round(time.Millisecond).String(), ""),
			},
		},
	}

	if len(summary.FailedResults) > 0 {
		body = append(body, teamsBlock{Type: "TextBlock", Text: "**Failed Tests:**", Separator: true, Spacing: "Medium"})
		for _, ft := range summary.FailedResults {
			body = append(body, text(fmt.Sprintf("- `%s`", ft.Name)))
			for _, err := range ft.Errors {
				body = append(body, text("  - "+err))
			}
		}
		if summary.Truncated > 0 {
			body = append(body, text(fmt.Sprintf("_and %d more_", summary.Truncated)))
		}
	}
	for _, fi := range summary.FailedImports {
		body = append(body, text("**Failed import:** "+fi))
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_end2 run %s - %s_", summary.RunID, time.Now().Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	return teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}
}

// Notify sends a notification to Microsoft Teams
func (t *TeamsNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	return postJSON(ctx, t.client, t.webhookURL, t.message(summary), http.StatusOK, http.StatusAccepted)
}
