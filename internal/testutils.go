package internal

import (
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-imap/backend/memory"
	"github.com/emersion/go-imap/server"
	"github.com/emersion/go-message"
	"github.com/stretchr/testify/assert"
)

func BuildTestIMAPServer(t *testing.T) (*server.Server, string, *memory.Mailbox) {
	be := memory.New()
	user, err := be.Login(nil, "username", "password")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mb, err := user.GetMailbox("INBOX")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	mailbox := mb.(*memory.Mailbox)
	mailbox.Messages = nil

	s := server.New(be)
	t.Cleanup(func() { _ = s.Close() })

	s.AllowInsecureAuth = true

	l, err := net.Listen("tcp", "localhost:0")
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	go func() { _ = s.Serve(l) }()

	return s, l.Addr().String(), mailbox
}

// MakeTestMessage renders a single-part RFC822 message.
func MakeTestMessage(t *testing.T, from, subject, contentType, body string) []byte {
	hdr := message.Header{}
	hdr.Add("From", from)
	hdr.Add("To", "intake@agency.example")
	hdr.Add("Subject", subject)
	hdr.Add("Date", "Wed, 11 May 2022 14:31:59 +0000")
	hdr.Add("Content-Type", contentType)

	msg, err := message.New(hdr, strings.NewReader(body))
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	bb := new(bytes.Buffer)
	err = msg.WriteTo(bb)
	assert.NoError(t, err)
	if err != nil {
		t.FailNow()
	}

	return bb.Bytes()
}

// SeedMessage drops a message straight into the in-memory mailbox with
// a chosen UID, bypassing APPEND.
func SeedMessage(mbox *memory.Mailbox, uid uint32, date time.Time, body []byte) {
	mbox.Messages = append(mbox.Messages, &memory.Message{
		Uid:   uid,
		Date:  date,
		Size:  uint32(len(body)),
		Flags: []string{},
		Body:  body,
	})
}
