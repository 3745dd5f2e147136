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

package engine

import (
	"context"
	"time"

	"github.com/scoutbase/mailintake/backoff"
	"github.com/scoutbase/mailintake/models"
	"github.com/scoutbase/mailintake/session"
)

// MailboxSession is what the engine needs from the session layer.
type MailboxSession interface {
	Connect() error
	FetchWindow(maxCount uint) ([]*session.RemoteMessage, error)
	IdleWait(stop <-chan struct{}, timeout time.Duration) (bool, error)
	Probe() error
	Close()
}

// ContactDirectory resolves sender addresses. Implementations must
// return directory.ErrNotFound for unknown senders so the engine can
// tell "no such lead" apart from a failed query.
type ContactDirectory interface {
	FindByEmail(ctx context.Context, address string) (*models.Contact, error)
}

type MessageStore interface {
	ExistsBySourceAndContact(ctx context.Context, sourceUID, contactID string) (bool, error)
	InsertMessage(ctx context.Context, msg *models.Message) (string, error)
	AppendHistory(ctx context.Context, contactID string, entry *models.HistoryEntry) error
}

type Notifier interface {
	MessageIngested(ctx context.Context, contact *models.Contact, msg *models.Message) error
}

type ReconnectPolicy interface {
	Decide(class backoff.ErrorClass, attempts uint) backoff.Decision
}

type Config struct {
	Session   MailboxSession
	Directory ContactDirectory
	Store     MessageStore
	Events    Notifier

	// Policy defaults to backoff.Policy{}.
	Policy ReconnectPolicy

	FetchWindow        uint
	BackupScanInterval time.Duration
	HeartbeatInterval  time.Duration
	IdleTimeout        time.Duration
	ProcessTimeout     time.Duration
}

// State is the engine lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateBackupScanning
	StateIdling
	StateReconnectScheduled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateBackupScanning:
		return "backup_scanning"
	case StateIdling:
		return "idling"
	case StateReconnectScheduled:
		return "reconnect_scheduled"
	case StateFailed:
		return "failed"
	default:
		panic("invalid_state")
	}
}

// Stats are the engine's running counters. Skipped counts expected
// outcomes (unknown sender, already imported); Faulted counts messages
// dropped by a failing collaborator.
type Stats struct {
	Ingested uint64
	Skipped  uint64
	Faulted  uint64
}
