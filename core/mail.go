package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"strings"
)

// emailLayout wraps plain text broadcast bodies for HTML capable clients.
var emailLayout = htmltmpl.Must(htmltmpl.New("email").Parse(
	`<html><body><h3>{{.School}}</h3>{{range .Paragraphs}}<p>{{.}}</p>{{end}}</body></html>`,
))

type (
	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain content

		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// Render fills in the text & HTML contents from BodyStr.
func (m *EmailMessage) Render(school string) error {
	if m.BodyStr == "" {
		return nil
	}
	m.TextContent = m.BodyStr

	var buff bytes.Buffer
	data := struct {
		School     string
		Paragraphs []string
	}{School: school, Paragraphs: strings.Split(m.BodyStr, "\n")}
	if err := emailLayout.Execute(&buff, data); err != nil {
		return err
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
