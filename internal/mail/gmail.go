// Package mail sends transactional email through the Gmail API. The only
// message the app sends today is the temporary password from a reset.
package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

type GmailMailer struct {
	svc  *gmail.Service
	from string
}

// Config locates the OAuth client and token. JSON fields win over file paths
// so containerized deployments can inject credentials without a volume.
type Config struct {
	From       string
	ClientJSON string
	ClientFile string
	TokenJSON  string
	TokenFile  string
}

// NewGmail builds a mailer from an OAuth client and a previously authorized
// token (see the oauth-init command).
func NewGmail(ctx context.Context, cfg Config) (*GmailMailer, error) {
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("missing sender address")
	}

	clientJSON, err := loadCredential(cfg.ClientJSON, cfg.ClientFile, "OAuth client")
	if err != nil {
		return nil, err
	}
	tokenJSON, err := loadCredential(cfg.TokenJSON, cfg.TokenFile, "OAuth token")
	if err != nil {
		return nil, err
	}

	oauthCfg, err := google.ConfigFromJSON(clientJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("parse OAuth client: %w", err)
	}
	var token oauth2.Token
	if err := json.Unmarshal(tokenJSON, &token); err != nil {
		return nil, fmt.Errorf("parse OAuth token: %w", err)
	}

	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}

	slog.InfoContext(ctx, "Gmail mailer ready", "from", cfg.From)
	return &GmailMailer{svc: svc, from: cfg.From}, nil
}

// SendTempPassword emails the temporary password produced by a reset.
func (m *GmailMailer) SendTempPassword(ctx context.Context, to, username, tempPassword string) error {
	subject := "Sua senha temporária"
	body := fmt.Sprintf(
		"Olá %s,\n\nSua senha foi redefinida. Use a senha temporária abaixo para entrar e troque-a em seguida:\n\n%s\n\nSe você não pediu esta redefinição, ignore este email.\n",
		username, tempPassword)

	raw := buildMessage(m.from, to, subject, body)
	_, err := m.svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}

	slog.InfoContext(ctx, "Temp password mail sent", "to", to)
	return nil
}

func buildMessage(from, to, subject, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mimeEncodeHeader(subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// mimeEncodeHeader wraps a header value in RFC 2047 encoding when it carries
// non-ASCII characters.
func mimeEncodeHeader(s string) string {
	for _, r := range s {
		if r > 127 {
			return "=?UTF-8?B?" + base64.StdEncoding.EncodeToString([]byte(s)) + "?="
		}
	}
	return s
}

func loadCredential(inline, file, what string) ([]byte, error) {
	if strings.TrimSpace(inline) != "" {
		return []byte(inline), nil
	}
	if strings.TrimSpace(file) != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("missing %s credentials", what)
}
