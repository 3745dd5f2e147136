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
	"errors"
	"strings"

	"github.com/scoutbase/mailintake/backoff"
)

var ErrNotConnected = errors.New("session not connected")

// Substrings seen in provider responses for connection caps and bad
// credentials. IMAP servers don't agree on response codes here, so this
// is a best-effort match; anything unrecognised is treated as transient,
// which only costs a shorter retry delay.
var (
	tooManyConnectionsMarkers = []string{
		"too many simultaneous connections",
		"too many connections",
		"maximum number of connections",
		"connection limit",
	}

	authenticationMarkers = []string{
		"authenticationfailed",
		"authentication failed",
		"authenticate",
		"invalid credentials",
		"bad username or password",
		"login failed",
		"username and password not accepted",
	}
)

// Classify maps a session error onto the reconnect policy's taxonomy.
func Classify(err error) backoff.ErrorClass {
	if err == nil {
		return backoff.ClassTransient
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range tooManyConnectionsMarkers {
		if strings.Contains(msg, marker) {
			return backoff.ClassTooManyConnections
		}
	}

	for _, marker := range authenticationMarkers {
		if strings.Contains(msg, marker) {
			return backoff.ClassAuthentication
		}
	}

	return backoff.ClassTransient
}
