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

package session

import (
	"crypto/tls"
	"time"

	imap2 "github.com/scoutbase/mailintake/imap"
)

type Config struct {
	HostPort  string
	Auth      imap2.Authenticator
	Mailbox   string
	TLS       bool
	TLSConfig *tls.Config
	Debug     bool

	// Factory produces the underlying protocol client. Swapped out in
	// tests.
	Factory imap2.ClientFactory
}

// State is the connection-level state of the session. The engine layers
// its own lifecycle states (scanning, idling, reconnect pending, failed)
// on top of these.
type State int32

const (
	StateDisconnected State = 0
	StateConnecting   State = 1
	StateConnected    State = 2
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		panic("invalid_state")
	}
}

// RemoteMessage is the transient view of one mailbox message. It lives
// for the duration of a single scan pass and is never persisted as-is.
type RemoteMessage struct {
	UID        uint32
	SeqNum     uint32
	From       string
	To         string
	Subject    string
	ReceivedAt time.Time

	// Text and HTML are the decoded textual parts; either may be empty.
	Text string
	HTML string
}
