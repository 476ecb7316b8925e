package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// EventDraft is an event extracted from free text. Empty fields were not
// mentioned by the user.
type EventDraft struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	EndTime     string `json:"end_time"`
	RawResponse string `json:"-"`
}

const systemPromptTemplate = `You turn a short note into a single calendar event.

Current time (UTC): %s

Rules:
1. title is a short summary of the event. Leave it empty if the note does not describe an event.
2. date is the calendar date in YYYY-MM-DD. Resolve relative dates such as "tomorrow" or "next Monday" against the current time.
3. time and end_time are 24-hour HH:MM. Leave them empty when the note gives no time.
4. If only a duration is given ("for 30 minutes"), compute end_time from time.
5. location and description are optional; copy them from the note, do not invent them.
6. All times are UTC. Do not convert between timezones.`

func systemPrompt(now time.Time) string {
	return fmt.Sprintf(systemPromptTemplate, now.UTC().Format("2006-01-02 15:04 (Monday)"))
}

// JSON Schema for structured output
var eventSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"title": {
			"type": "string",
			"description": "Short event title"
		},
		"description": {
			"type": "string",
			"description": "Optional longer description"
		},
		"location": {
			"type": "string",
			"description": "Optional location"
		},
		"date": {
			"type": "string",
			"description": "Event date as YYYY-MM-DD"
		},
		"time": {
			"type": "string",
			"description": "Start time as HH:MM, empty if not given"
		},
		"end_time": {
			"type": "string",
			"description": "End time as HH:MM, empty if not given"
		}
	},
	"required": ["title", "description", "location", "date", "time", "end_time"],
	"additionalProperties": false
}`)

// ParseEvent asks the model to extract one event from text, resolving
// relative dates against now.
func (c *Client) ParseEvent(ctx context.Context, text string, now time.Time) (*EventDraft, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt(now),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: text,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "event",
				Schema: eventSchema,
				Strict: true,
			},
		},
		Temperature: 0.1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from AI")
	}

	content := resp.Choices[0].Message.Content
	draft := &EventDraft{RawResponse: content}

	if err := json.Unmarshal([]byte(content), draft); err != nil {
		return nil, fmt.Errorf("failed to parse AI response: %w", err)
	}

	draft.Title = strings.TrimSpace(draft.Title)
	draft.Date = strings.TrimSpace(draft.Date)
	return draft, nil
}
