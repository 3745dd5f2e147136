package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scoutbase/mailintake/backoff"
	imap2 "github.com/scoutbase/mailintake/imap"
	"github.com/scoutbase/mailintake/imap/client"
	"github.com/scoutbase/mailintake/internal"
)

func newTestSession(addr string) *Session {
	return NewSession(&Config{
		HostPort: addr,
		Auth:     imap2.NewNormalAuthenticator("username", "password"),
		Mailbox:  "INBOX",
		Factory:  &client.Factory{},
	})
}

func TestConnectAndFetchWindow(t *testing.T) {
	_, addr, mbox := internal.BuildTestIMAPServer(t)

	internal.SeedMessage(mbox, 501, time.Date(2022, 5, 11, 14, 0, 0, 0, time.UTC),
		internal.MakeTestMessage(t, "jane@x.com", "Hi", "text/plain", "Hello there"))
	internal.SeedMessage(mbox, 502, time.Date(2022, 5, 11, 15, 0, 0, 0, time.UTC),
		internal.MakeTestMessage(t, "mark@y.com", "Portfolio", "text/html", "<p>Some <b>pictures</b></p>"))

	s := newTestSession(addr)
	t.Cleanup(s.Close)

	err := s.Connect()
	if !assert.NoError(t, err) {
		t.FailNow()
	}
	assert.Equal(t, StateConnected, s.State())

	msgs, err := s.FetchWindow(20)
	assert.NoError(t, err)
	if !assert.Len(t, msgs, 2) {
		t.FailNow()
	}

	assert.Equal(t, uint32(501), msgs[0].UID)
	assert.Equal(t, "jane@x.com", msgs[0].From)
	assert.Equal(t, "Hi", msgs[0].Subject)
	assert.Equal(t, "Hello there", msgs[0].Text)
	assert.Equal(t, time.Date(2022, 5, 11, 14, 0, 0, 0, time.UTC), msgs[0].ReceivedAt.UTC())

	assert.Equal(t, uint32(502), msgs[1].UID)
	assert.Equal(t, "", msgs[1].Text)
	assert.Equal(t, "<p>Some <b>pictures</b></p>", msgs[1].HTML)
}

func TestFetchWindowIsBounded(t *testing.T) {
	_, addr, mbox := internal.BuildTestIMAPServer(t)

	for uid := uint32(1); uid <= 5; uid++ {
		internal.SeedMessage(mbox, uid, time.Now(),
			internal.MakeTestMessage(t, "jane@x.com", "Hi", "text/plain", "Hello"))
	}

	s := newTestSession(addr)
	t.Cleanup(s.Close)

	err := s.Connect()
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	msgs, err := s.FetchWindow(2)
	assert.NoError(t, err)
	if !assert.Len(t, msgs, 2) {
		t.FailNow()
	}

	// Newest two, oldest first within the window.
	assert.Equal(t, uint32(4), msgs[0].UID)
	assert.Equal(t, uint32(5), msgs[1].UID)
}

func TestFetchWindowEmptyMailbox(t *testing.T) {
	_, addr, _ := internal.BuildTestIMAPServer(t)

	s := newTestSession(addr)
	t.Cleanup(s.Close)

	err := s.Connect()
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	msgs, err := s.FetchWindow(20)
	assert.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestConnectAuthFailureClassified(t *testing.T) {
	_, addr, _ := internal.BuildTestIMAPServer(t)

	s := NewSession(&Config{
		HostPort: addr,
		Auth:     imap2.NewNormalAuthenticator("username", "wrong"),
		Mailbox:  "INBOX",
		Factory:  &client.Factory{},
	})
	t.Cleanup(s.Close)

	err := s.Connect()
	if !assert.Error(t, err) {
		t.FailNow()
	}

	assert.Equal(t, backoff.ClassAuthentication, Classify(err))
	assert.Equal(t, StateDisconnected, s.State())
}

func TestIdleWaitTimeout(t *testing.T) {
	_, addr, _ := internal.BuildTestIMAPServer(t)

	s := newTestSession(addr)
	t.Cleanup(s.Close)

	err := s.Connect()
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	start := time.Now()
	signalled, err := s.IdleWait(nil, 250*time.Millisecond)
	assert.NoError(t, err)
	assert.False(t, signalled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestIdleWaitSignal(t *testing.T) {
	_, addr, _ := internal.BuildTestIMAPServer(t)

	s := newTestSession(addr)
	t.Cleanup(s.Close)

	err := s.Connect()
	if !assert.NoError(t, err) {
		t.FailNow()
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		s.newMail <- struct{}{}
	}()

	signalled, err := s.IdleWait(nil, 10*time.Second)
	assert.NoError(t, err)
	assert.True(t, signalled)
}

func TestOperationsWhenDisconnected(t *testing.T) {
	s := newTestSession("0.0.0.0:0")

	_, err := s.FetchWindow(20)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = s.IdleWait(nil, time.Second)
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, s.Probe(), ErrNotConnected)

	// Close on a never-connected session is a no-op.
	s.Close()
}
