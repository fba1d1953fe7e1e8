package mail

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestBuildMessage(t *testing.T) {
	raw := buildMessage("app@example.com", "maria@example.com", "Hello", "corpo da mensagem")

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw message is not url-safe base64: %v", err)
	}
	msg := string(decoded)

	for _, want := range []string{
		"From: app@example.com\r\n",
		"To: maria@example.com\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n",
		"\r\n\r\ncorpo da mensagem",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestMimeEncodeHeader(t *testing.T) {
	if got := mimeEncodeHeader("plain subject"); got != "plain subject" {
		t.Errorf("ascii subject should pass through, got %q", got)
	}

	got := mimeEncodeHeader("Sua senha temporária")
	if !strings.HasPrefix(got, "=?UTF-8?B?") || !strings.HasSuffix(got, "?=") {
		t.Fatalf("non-ascii subject should be RFC 2047 encoded, got %q", got)
	}
	payload := strings.TrimSuffix(strings.TrimPrefix(got, "=?UTF-8?B?"), "?=")
	decoded, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatalf("decode encoded word: %v", err)
	}
	if string(decoded) != "Sua senha temporária" {
		t.Errorf("decoded %q", decoded)
	}
}

func TestLoadCredentialPrecedence(t *testing.T) {
	data, err := loadCredential(`{"a":1}`, "/nonexistent", "OAuth client")
	if err != nil {
		t.Fatalf("inline JSON should win: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("got %q", data)
	}

	if _, err := loadCredential("", "", "OAuth token"); err == nil {
		t.Error("expected error when both sources are empty")
	}
}
