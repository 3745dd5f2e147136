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

// Package backoff decides whether and when a failed mailbox session
// should be re-established. It is purely computational; the engine owns
// the attempt counter and the timers.
package backoff

import "time"

// ErrorClass is the classification of a session failure. It is the only
// signal the policy needs.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota
	ClassTooManyConnections
	ClassAuthentication
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassTooManyConnections:
		return "too_many_connections"
	case ClassAuthentication:
		return "authentication"
	default:
		return "unknown"
	}
}

const (
	// DefaultMaxAttempts is the attempt count at which the policy gives
	// up and the engine goes terminal.
	DefaultMaxAttempts = 10

	authenticationDelay     = 5 * time.Minute
	tooManyConnectionsDelay = 2 * time.Minute
	transientBaseDelay      = 5 * time.Second
	transientMaxDelay       = time.Minute
)

type Decision struct {
	Retry bool
	Delay time.Duration
}

type Policy struct {
	// MaxAttempts overrides DefaultMaxAttempts when non-zero.
	MaxAttempts uint
}

// Decide returns the reconnect decision for the given failure class and
// 1-based attempt count.
//
// Credentials don't self-heal quickly, so authentication failures wait a
// flat five minutes rather than burning a connection slot. Provider
// connection caps get a flat two minutes. Everything else doubles from
// five seconds up to one minute.
func (p Policy) Decide(class ErrorClass, attempts uint) Decision {
	maxAttempts := p.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = DefaultMaxAttempts
	}

	if attempts >= maxAttempts {
		return Decision{Retry: false}
	}

	switch class {
	case ClassAuthentication:
		return Decision{Retry: true, Delay: authenticationDelay}
	case ClassTooManyConnections:
		return Decision{Retry: true, Delay: tooManyConnectionsDelay}
	default:
		delay := transientBaseDelay
		for i := uint(1); i < attempts; i++ {
			delay *= 2
			if delay >= transientMaxDelay {
				delay = transientMaxDelay
				break
			}
		}
		return Decision{Retry: true, Delay: delay}
	}
}
