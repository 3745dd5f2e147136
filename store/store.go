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

// Package store persists ingested messages and contact history. The
// messages table carries a unique index on (source_uid, contact_id), so
// even if a second importer ever runs against the same mailbox the
// database itself refuses a double import.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/scoutbase/mailintake/models"
)

// ErrDuplicate is returned when an insert trips the (source_uid,
// contact_id) uniqueness constraint.
var ErrDuplicate = errors.New("message already imported")

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ExistsBySourceAndContact(ctx context.Context, sourceUID, contactID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("source_uid = ? AND contact_id = ?", sourceUID, contactID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("duplicate check: %w", err)
	}

	return count > 0, nil
}

func (s *Store) InsertMessage(ctx context.Context, msg *models.Message) (string, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.ImportedAt.IsZero() {
		msg.ImportedAt = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(msg).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return "", ErrDuplicate
		}
		return "", fmt.Errorf("insert message: %w", err)
	}

	return msg.ID, nil
}

func (s *Store) AppendHistory(ctx context.Context, contactID string, entry *models.HistoryEntry) error {
	entry.ContactID = contactID
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	return nil
}

// Summarize trims s to at most max runes for history log entries.
func Summarize(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	return string(runes[:max-1]) + "…"
}
