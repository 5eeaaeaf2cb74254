package template

import (
	"bytes"
	"encoding/base64"
	"fmt"
	htmpl "html/template"

	"github.com/skip2/go-qrcode"

	tickets "workshop-tickets/internal/tickets/service"
)

const mailBody = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin:0;padding:0;background-color:#f4f4f7;font-family:Arial,Helvetica,sans-serif;">
  <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
    <tr><td align="center" style="padding:24px;">
      <table role="presentation" width="550" cellpadding="0" cellspacing="0" style="background-color:#ffffff;border-radius:8px;">
        <tr><td style="background-color:#1f2a56;color:#ffffff;padding:20px 32px;border-radius:8px 8px 0 0;">
          <h2 style="margin:0;">Workshop Ticket</h2>
        </td></tr>
        <tr><td style="padding:24px 32px;color:#333333;">
          <p>Hi <strong>{{.Name}}</strong>,</p>
          <p>Your registration is confirmed. Present this ticket at the door:</p>
          {{if .Number}}
          <p style="font-size:32px;letter-spacing:6px;text-align:center;margin:24px 0;"><strong>{{.Number}}</strong></p>
          {{else}}
          <p style="text-align:center;margin:24px 0;">
            Ticket ID: <strong>{{.TicketID}}</strong><br>
            Secret: <strong>{{.TicketSecret}}</strong>
          </p>
          {{end}}
          <p style="text-align:center;">
            <img src="data:image/png;base64,{{.QRCode}}" width="180" height="180" alt="ticket QR">
          </p>
          <p>See you there!</p>
        </td></tr>
        <tr><td style="padding:16px 32px;color:#999999;font-size:12px;border-top:1px solid #eeeeee;">
          This ticket admits one person and is void once checked in.
        </td></tr>
      </table>
    </td></tr>
  </table>
</body>
</html>`

type mailData struct {
	Name         string
	Number       string
	TicketID     string
	TicketSecret string
	QRCode       string
}

// MailGenerator renders the ticket email sent to attendees. The QR
// image encodes the ticket reference and is inlined as a data URI so
// the message has no remote assets.
type MailGenerator struct {
	tmpl *htmpl.Template
}

func NewMailGenerator() *MailGenerator {
	return &MailGenerator{tmpl: htmpl.Must(htmpl.New("ticket-mail").Parse(mailBody))}
}

func (g *MailGenerator) Render(name string, cred tickets.IssuedCredential) (string, error) {
	png, err := qrcode.Encode(cred.Reference(), qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("encode ticket QR: %w", err)
	}

	var buf bytes.Buffer
	err = g.tmpl.Execute(&buf, mailData{
		Name:         name,
		Number:       cred.Number,
		TicketID:     cred.TicketID,
		TicketSecret: cred.TicketSecret,
		QRCode:       base64.StdEncoding.EncodeToString(png),
	})
	if err != nil {
		return "", fmt.Errorf("render ticket mail: %w", err)
	}
	return buf.String(), nil
}
