/*
 * MailIntake - Copyright (C) 2024 Scoutbase.
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU General Public License version 2, and only
 * version 2 as published by the Free Software Foundation.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program; if not, write to the Free Software
 * Foundation, Inc., 59 Temple Place, Suite 330, Boston, MA  02111-1307  USA
 */

// Package session owns the single authenticated connection to the
// remote mailbox. It has no business logic; the engine drives it.
//
// A Session is exclusively owned by its engine and is not safe for
// concurrent use.
package session

import (
	"net/url"
	"sort"
	"sync/atomic"
	"time"

	"github.com/emersion/go-imap"
	goImapClient "github.com/emersion/go-imap/client"
	log "github.com/sirupsen/logrus"

	imap2 "github.com/scoutbase/mailintake/imap"
)

type Session struct {
	cfg     Config
	client  imap2.Client
	state   int32
	section *imap.BodySectionName

	// newMail carries a coalesced "something arrived" signal out of the
	// server's unilateral updates.
	newMail chan struct{}

	logURL string
}

func NewSession(cfg *Config) *Session {
	section, err := imap.ParseBodySectionName(imap.FetchRFC822)
	if err != nil {
		panic(err)
	}

	u := url.URL{
		Host: cfg.HostPort,
		Path: cfg.Mailbox,
	}

	if cfg.TLS {
		u.Scheme = "imaps"
	} else {
		u.Scheme = "imap"
	}

	return &Session{
		cfg:     *cfg,
		section: section,
		newMail: make(chan struct{}, 1),
		logURL:  u.String(),
	}
}

func (s *Session) log() *log.Entry {
	return log.WithField("url", s.logURL)
}

func (s *Session) State() State {
	return State(atomic.LoadInt32(&s.state))
}

func (s *Session) setState(state State) {
	old := State(atomic.SwapInt32(&s.state, int32(state)))
	if old != state {
		s.log().WithFields(log.Fields{
			"old": old,
			"new": state,
		}).Trace("session_state_change")
	}
}

// Connect dials, authenticates and opens the target folder. On failure
// the session stays disconnected; the caller classifies the error and
// decides what happens next.
func (s *Session) Connect() error {
	if s.client != nil {
		return nil
	}

	s.setState(StateConnecting)

	updates := make(chan goImapClient.Update, 10)
	c, err := s.cfg.Factory.NewClient(&imap2.ClientConfig{
		HostPort:  s.cfg.HostPort,
		Auth:      s.cfg.Auth,
		TLS:       s.cfg.TLS,
		TLSConfig: s.cfg.TLSConfig,
		Debug:     s.cfg.Debug,
		Updates:   updates,
	})

	if err != nil {
		s.setState(StateDisconnected)
		return err
	}

	if _, err := c.Select(s.cfg.Mailbox, false); err != nil {
		_ = c.Logout()
		s.setState(StateDisconnected)
		return err
	}

	s.client = c
	go s.forwardUpdates(updates, c.LoggedOut())

	s.setState(StateConnected)
	s.log().WithField("mailbox", s.cfg.Mailbox).Info("session_connected")
	return nil
}

// FetchWindow returns the newest min(maxCount, total) messages in the
// folder, oldest first. Bounding the window keeps a large mailbox from
// being re-downloaded on every scan.
func (s *Session) FetchWindow(maxCount uint) ([]*RemoteMessage, error) {
	if s.client == nil {
		return nil, ErrNotConnected
	}

	status := s.client.Mailbox()
	if status == nil {
		return nil, ErrNotConnected
	}

	s.log().WithFields(log.Fields{
		"name":         status.Name,
		"num_messages": status.Messages,
		"recent":       status.Recent,
		"unseen":       status.Unseen,
	}).Trace("session_mailbox_status")

	total := status.Messages
	if total == 0 {
		return nil, nil
	}

	from := uint32(1)
	if maxCount > 0 && total > uint32(maxCount) {
		from = total - uint32(maxCount) + 1
	}

	seqset := new(imap.SeqSet)
	seqset.AddRange(from, total)

	ch := make(chan *imap.Message)
	done := make(chan error, 1)
	go func() {
		done <- s.client.Fetch(seqset, []imap.FetchItem{
			imap.FetchEnvelope,
			imap.FetchUid,
			imap.FetchInternalDate,
			imap.FetchRFC822,
		}, ch)
	}()

	var msgs []*RemoteMessage
	for msg := range ch {
		msgs = append(msgs, s.parseMessage(msg))
	}

	if err := <-done; err != nil {
		return nil, err
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].SeqNum < msgs[j].SeqNum })

	s.log().WithField("count", len(msgs)).Trace("session_fetch_window")
	return msgs, nil
}

// IdleWait blocks until the server signals new mail, the timeout
// elapses, stop is closed, or the connection drops. It reports whether
// a new-mail signal was the cause; the caller decides whether to scan.
func (s *Session) IdleWait(stop <-chan struct{}, timeout time.Duration) (bool, error) {
	if s.client == nil {
		return false, ErrNotConnected
	}

	idleStop := make(chan struct{})
	idleDone := make(chan error, 1)
	go func() {
		idleDone <- s.client.Idle(idleStop, &goImapClient.IdleOptions{
			// Most providers drop idle connections after ~5 minutes.
			LogoutTimeout: 250 * time.Second,
		})
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	signalled := false
	idleEnded := false
	var err error

	select {
	case <-s.newMail:
		signalled = true
	case <-timer.C:
	case <-stop:
	case err = <-idleDone:
		idleEnded = true
	}

	if !idleEnded {
		close(idleStop)
		err = <-idleDone
	}

	// A signal may have raced with the idle teardown.
	if !signalled {
		select {
		case <-s.newMail:
			signalled = true
		default:
		}
	}

	return signalled, err
}

// Probe issues a lightweight NOOP so a dead connection is noticed even
// when the mailbox is quiet.
func (s *Session) Probe() error {
	if s.client == nil {
		return ErrNotConnected
	}

	return s.client.Noop()
}

// Close tears the connection down. Safe to call when not connected; a
// reconnect must go through here first so two sessions never run
// against the same mailbox.
func (s *Session) Close() {
	if s.client != nil {
		_ = s.client.Logout()
		s.client = nil
		s.log().Info("session_closed")
	}

	s.setState(StateDisconnected)
}

func (s *Session) forwardUpdates(updates <-chan goImapClient.Update, loggedOut <-chan struct{}) {
	for {
		select {
		case upd := <-updates:
			switch vv := upd.(type) {
			case *goImapClient.StatusUpdate:
				// Often contains useful info to have in the logs
				s.log().WithFields(log.Fields{
					"tag":  vv.Status.Tag,
					"type": vv.Status.Type,
					"code": vv.Status.Code,
					"info": vv.Status.Info,
				}).Info("session_got_status_update")
			case *goImapClient.MailboxUpdate:
				s.log().WithFields(log.Fields{
					"name":     vv.Mailbox.Name,
					"messages": vv.Mailbox.Messages,
				}).Trace("session_got_mailbox_update")

				select {
				case s.newMail <- struct{}{}:
				default:
				}
			case *goImapClient.ExpungeUpdate:
				s.log().WithField("seq", vv.SeqNum).Trace("session_got_expunge_update")
			}
		case <-loggedOut:
			return
		}
	}
}
