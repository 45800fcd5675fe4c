// Package mailbox reads unread messages from an IMAP inbox.
package mailbox

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/leadcapture/internal/entity"
)

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Mailbox  string
	Timeout  time.Duration
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Port == 0 {
		cfg.Port = 993
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{cfg: cfg}
}

// Session is one authenticated connection with the mailbox selected.
type Session struct {
	c   *client.Client
	log *zap.Logger
}

// Open connects, logs in and selects the mailbox. Every IMAP command is
// bounded by the configured timeout.
func (m *Client) Open(ctx context.Context) (*Session, error) {
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}

	c, err := client.DialWithDialerTLS(dialer, addr, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "mailbox: dial %s", addr)
	}
	c.Timeout = m.cfg.Timeout

	if err := ctx.Err(); err != nil {
		_ = c.Logout()
		return nil, err
	}

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		_ = c.Logout()
		return nil, eris.Wrap(err, "mailbox: login")
	}
	if _, err := c.Select(m.cfg.Mailbox, false); err != nil {
		_ = c.Logout()
		return nil, eris.Wrapf(err, "mailbox: select %s", m.cfg.Mailbox)
	}

	return &Session{c: c, log: zap.L().With(zap.String("mailbox", m.cfg.Mailbox))}, nil
}

// FetchUnread returns unseen messages received since the given time. Bodies
// are fetched with PEEK so nothing is marked read here.
func (s *Session) FetchUnread(ctx context.Context, since time.Time) ([]entity.EmailMessage, error) {
	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	criteria.Since = since

	uids, err := s.c.UidSearch(criteria)
	if err != nil {
		return nil, eris.Wrap(err, "mailbox: search unread")
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- s.c.UidFetch(seqset, items, messages)
	}()

	var out []entity.EmailMessage
	for msg := range messages {
		if ctx.Err() != nil {
			continue
		}
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		parsed, err := ParseMessage(body, msg.Uid)
		if err != nil {
			s.log.Warn("skipping unparsable message", zap.Uint32("uid", msg.Uid), zap.Error(err))
			continue
		}
		out = append(out, parsed)
	}

	if err := <-done; err != nil {
		return nil, eris.Wrap(err, "mailbox: fetch messages")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// MarkRead adds the \Seen flag to one message.
func (s *Session) MarkRead(_ context.Context, uid uint32) error {
	seqset := new(imap.SeqSet)
	seqset.AddNum(uid)

	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := s.c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return eris.Wrapf(err, "mailbox: mark %d read", uid)
	}
	return nil
}

func (s *Session) Close() error {
	return s.c.Logout()
}
