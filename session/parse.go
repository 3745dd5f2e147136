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
	"io"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-message"
	log "github.com/sirupsen/logrus"
)

func (s *Session) parseMessage(msg *imap.Message) *RemoteMessage {
	rm := &RemoteMessage{
		UID:    msg.Uid,
		SeqNum: msg.SeqNum,
	}

	if env := msg.Envelope; env != nil {
		rm.Subject = env.Subject
		if len(env.From) > 0 {
			rm.From = env.From[0].Address()
		}
		if len(env.To) > 0 {
			rm.To = env.To[0].Address()
		}
	}

	// The server-reported internal date is authoritative; the envelope
	// date comes off the (sender-controlled) Date header. Both may be
	// missing on broken messages.
	rm.ReceivedAt = msg.InternalDate
	if rm.ReceivedAt.IsZero() && msg.Envelope != nil {
		rm.ReceivedAt = msg.Envelope.Date
	}
	if rm.ReceivedAt.IsZero() {
		rm.ReceivedAt = time.Now()
	}

	if body := msg.GetBody(s.section); body != nil {
		entity, err := message.Read(body)
		if err != nil && entity == nil {
			s.log().WithError(err).WithField("uid", msg.Uid).Warn("session_mime_parse_failed")
		} else {
			rm.Text, rm.HTML = collectTextParts(entity)
		}
	}

	return rm
}

// collectTextParts walks the MIME tree and returns the first text/plain
// and text/html parts. Attachments are skipped; their extraction is out
// of scope for this daemon.
func collectTextParts(entity *message.Entity) (text, html string) {
	mediaType, _, _ := entity.Header.ContentType()

	if strings.HasPrefix(mediaType, "multipart/") {
		mr := entity.MultipartReader()
		if mr == nil {
			return
		}

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				log.WithError(err).Trace("session_mime_part_skipped")
				break
			}

			t, h := collectTextParts(part)
			if text == "" {
				text = t
			}
			if html == "" {
				html = h
			}
		}

		return
	}

	if disposition, _, _ := entity.Header.ContentDisposition(); disposition == "attachment" {
		return
	}

	b, err := io.ReadAll(entity.Body)
	if err != nil {
		return
	}

	switch mediaType {
	case "text/plain", "":
		text = string(b)
	case "text/html":
		html = string(b)
	}

	return
}
