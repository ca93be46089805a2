package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const sendGridURL = "https://api.sendgrid.com/v3/mail/send"

// SendGridNotifier delivers workflow emails through the SendGrid REST API.
type SendGridNotifier struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
}

// NewSendGridNotifier creates a new SendGrid notifier
func NewSendGridNotifier(apiKey, fromEmail, fromName string) *SendGridNotifier {
	return &SendGridNotifier{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

type mailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailPersonalization struct {
	To []mailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailRequest struct {
	Personalizations []mailPersonalization `json:"personalizations"`
	From             mailAddress           `json:"from"`
	Subject          string                `json:"subject"`
	Content          []mailContent         `json:"content"`
}

// SendDishSelection sends the suggestion email with one selection link per dish.
func (n *SendGridNotifier) SendDishSelection(ctx context.Context, email DishSelectionEmail) error {
	html, err := renderSelection(email)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Dish Suggestions: %d Dishes For You - AI Chef", len(email.Options))
	return n.send(ctx, email.To, subject, html)
}

// SendRecipe sends the recipe email for the selected dish.
func (n *SendGridNotifier) SendRecipe(ctx context.Context, email RecipeEmail) error {
	html, err := renderRecipe(email)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("How To Cook: %s - AI Chef", email.DishName)
	return n.send(ctx, email.To, subject, html)
}

func (n *SendGridNotifier) send(ctx context.Context, to, subject, html string) error {
	if n.apiKey == "" {
		return fmt.Errorf("sendgrid api key not configured")
	}

	req := mailRequest{
		Personalizations: []mailPersonalization{
			{To: []mailAddress{{Email: to}}},
		},
		From:    mailAddress{Email: n.fromEmail, Name: n.fromName},
		Subject: subject,
		Content: []mailContent{{Type: "text/html", Value: html}},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", sendGridURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+n.apiKey)

	resp, err := n.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid returned status %d", resp.StatusCode)
	}

	log.Info().Str("to", to).Str("subject", subject).Msg("email dispatched")
	return nil
}
