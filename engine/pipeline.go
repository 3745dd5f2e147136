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
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/scoutbase/mailintake/directory"
	"github.com/scoutbase/mailintake/extract"
	"github.com/scoutbase/mailintake/models"
	"github.com/scoutbase/mailintake/session"
	"github.com/scoutbase/mailintake/store"
)

const summaryLength = 120

// scan fetches the window and runs every message through the pipeline.
// A fetch failure aborts the pass (the connection is suspect);
// per-message failures only skip that message.
func (e *Engine) scan() error {
	e.setState(StateBackupScanning)
	defer e.setState(StateConnected)

	msgs, err := e.cfg.Session.FetchWindow(e.cfg.FetchWindow)
	if err != nil {
		return fmt.Errorf("fetch window: %w", err)
	}

	log.WithField("count", len(msgs)).Trace("engine_scan_start")

	for _, msg := range msgs {
		e.processMessage(msg)
	}

	log.WithFields(log.Fields{
		"count":    len(msgs),
		"ingested": atomic.LoadUint64(&e.ingested),
		"skipped":  atomic.LoadUint64(&e.skipped),
		"faulted":  atomic.LoadUint64(&e.faulted),
	}).Trace("engine_scan_finish")

	return nil
}

func (e *Engine) skip(entry *log.Entry, event string) {
	atomic.AddUint64(&e.skipped, 1)
	entry.Trace(event)
}

func (e *Engine) fault(entry *log.Entry, err error, event string) {
	atomic.AddUint64(&e.faulted, 1)
	entry.WithError(err).Warn(event)
}

func (e *Engine) processMessage(msg *session.RemoteMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.ProcessTimeout)
	defer cancel()

	sourceUID := strconv.FormatUint(uint64(msg.UID), 10)
	from := strings.ToLower(strings.TrimSpace(msg.From))

	entry := log.WithFields(log.Fields{
		"uid":  msg.UID,
		"from": from,
	})

	if from == "" {
		e.skip(entry, "engine_message_no_sender")
		return
	}

	contact, err := e.cfg.Directory.FindByEmail(ctx, from)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			e.skip(entry, "engine_message_unknown_sender")
		} else {
			e.fault(entry, err, "engine_directory_lookup_failed")
		}
		return
	}

	entry = entry.WithField("contact", contact.ID)

	exists, err := e.cfg.Store.ExistsBySourceAndContact(ctx, sourceUID, contact.ID)
	if err != nil {
		e.fault(entry, err, "engine_duplicate_check_failed")
		return
	}

	if exists {
		e.skip(entry, "engine_message_already_imported")
		return
	}

	body := extract.Body(msg.Subject, msg.Text, msg.HTML)

	m := &models.Message{
		ContactID:  contact.ID,
		Channel:    models.ChannelEmail,
		Subject:    msg.Subject,
		Body:       body,
		SourceUID:  sourceUID,
		ReceivedAt: msg.ReceivedAt,
	}

	id, err := e.cfg.Store.InsertMessage(ctx, m)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			// Lost the race against another insert; the unique index
			// did its job.
			e.skip(entry, "engine_message_already_imported")
		} else {
			e.fault(entry, err, "engine_message_insert_failed")
		}
		return
	}
	m.ID = id

	// The message is persisted at this point. History and notification
	// failures are logged but never undo the import.
	hist := &models.HistoryEntry{
		ContactID:      contact.ID,
		Action:         models.ActionEmailReceived,
		Timestamp:      m.ReceivedAt,
		SubjectSummary: store.Summarize(msg.Subject, summaryLength),
		BodySummary:    store.Summarize(body, summaryLength),
	}

	if err := e.cfg.Store.AppendHistory(ctx, contact.ID, hist); err != nil {
		entry.WithError(err).Warn("engine_history_append_failed")
	}

	if err := e.cfg.Events.MessageIngested(ctx, contact, m); err != nil {
		entry.WithError(err).Warn("engine_notify_failed")
	}

	atomic.AddUint64(&e.ingested, 1)
	entry.WithField("message", m.ID).Info("engine_message_ingested")
}
