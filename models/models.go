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

package models

import "time"

// ChannelEmail is the channel value stamped on every message this
// daemon creates. The wider lead app also stores "sms" messages in
// the same table.
const ChannelEmail = "email"

// ActionEmailReceived is the history action recorded against a
// contact whenever one of their emails is imported.
const ActionEmailReceived = "EMAIL_RECEIVED"

// Contact is a lead/customer record. Owned by the lead app's CRUD
// layer; this daemon only ever reads it.
type Contact struct {
	ID           string  `gorm:"column:id;primaryKey"`
	Name         string  `gorm:"column:name"`
	EmailAddress string  `gorm:"column:email_address"`
	OwnerID      *string `gorm:"column:owner_id"`
	CreatedAt    time.Time
}

func (Contact) TableName() string {
	return "contacts"
}

// Message is one imported inbound message. The (source_uid, contact_id)
// pair is unique; a message is created exactly once and never touched
// again by this daemon.
type Message struct {
	ID         string    `gorm:"column:id;primaryKey"`
	ContactID  string    `gorm:"column:contact_id;uniqueIndex:idx_messages_source_contact"`
	Channel    string    `gorm:"column:channel"`
	Subject    string    `gorm:"column:subject"`
	Body       string    `gorm:"column:body"`
	SourceUID  string    `gorm:"column:source_uid;uniqueIndex:idx_messages_source_contact"`
	ReceivedAt time.Time `gorm:"column:received_at"`
	ImportedAt time.Time `gorm:"column:imported_at"`
	Read       bool      `gorm:"column:read"`
}

func (Message) TableName() string {
	return "messages"
}

// HistoryEntry is one line in a contact's interaction log. Append-only.
type HistoryEntry struct {
	ID             string    `gorm:"column:id;primaryKey"`
	ContactID      string    `gorm:"column:contact_id;index"`
	Action         string    `gorm:"column:action"`
	Timestamp      time.Time `gorm:"column:timestamp"`
	SubjectSummary string    `gorm:"column:subject_summary"`
	BodySummary    string    `gorm:"column:body_summary"`
}

func (HistoryEntry) TableName() string {
	return "contact_history"
}
