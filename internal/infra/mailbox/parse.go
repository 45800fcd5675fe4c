package mailbox

import (
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const maxBodyBytes = 256 << 10

var (
	htmlTags       = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>|<[^>]+>`)
	blankLineRuns  = regexp.MustCompile(`\n{3,}`)
	horizontalRuns = regexp.MustCompile(`[ \t]+`)
)

// ParseMessage reads sender, subject and the text body of a raw RFC 5322
// message. text/plain parts win over text/html.
func ParseMessage(r io.Reader, uid uint32) (entity.EmailMessage, error) {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return entity.EmailMessage{}, eris.Wrap(err, "mailbox: read message")
	}
	defer mr.Close()

	msg := entity.EmailMessage{UID: uid}

	if from, err := mr.Header.AddressList("From"); err == nil && len(from) > 0 {
		msg.FromName = from[0].Name
		msg.FromAddress = strings.ToLower(from[0].Address)
	}
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(subject)
	}
	if id, err := mr.Header.MessageID(); err == nil && id != "" {
		msg.MessageID = id
	} else {
		msg.MessageID = fmt.Sprintf("uid-%d", uid)
	}
	if date, err := mr.Header.Date(); err == nil {
		msg.Date = date
	}

	var plain, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			// A broken trailing part still leaves a usable message.
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := inline.ContentType()
		body, err := io.ReadAll(io.LimitReader(part.Body, maxBodyBytes))
		if err != nil {
			continue
		}

		switch {
		case contentType == "text/plain" && plain == "":
			plain = string(body)
		case contentType == "text/html" && htmlBody == "":
			htmlBody = string(body)
		}
	}

	if strings.TrimSpace(plain) != "" {
		msg.Body = cleanText(plain)
	} else {
		msg.Body = HTMLToText(htmlBody)
	}

	return msg, nil
}

// HTMLToText strips markup down to readable text.
func HTMLToText(s string) string {
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p>", "\n\n", "</div>", "\n").Replace(s)
	s = htmlTags.ReplaceAllString(s, "")
	return cleanText(html.UnescapeString(s))
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalRuns.ReplaceAllString(line, " "))
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLineRuns.ReplaceAllString(s, "\n\n"))
}
