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

// Package events fans successful ingestions out to the lead app's
// real-time layer over Redis pub/sub. The web tier bridges these
// channels to connected browsers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/scoutbase/mailintake/models"
)

const (
	// ChannelAdmins is the broadcast channel every administrative
	// session subscribes to.
	ChannelAdmins = "admins"

	EventEmailReceived   = "email:received"
	EventMessageReceived = "message:received"
	EventContactUpdated  = "contact:updated"

	DirectionInbound = "inbound"
)

// OwnerChannel is the per-salesperson channel for a contact's assigned
// owner.
func OwnerChannel(ownerID string) string {
	return "owner:" + ownerID
}

// MessagePayload is the wire shape of a message event. Field names
// follow the web app's JSON conventions.
type MessagePayload struct {
	MessageID   string    `json:"messageId"`
	ContactID   string    `json:"contactId"`
	ContactName string    `json:"contactName"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Timestamp   time.Time `json:"timestamp"`
	Direction   string    `json:"direction"`
}

type ContactPayload struct {
	ContactID   string `json:"contactId"`
	ContactName string `json:"contactName"`
}

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

type Publisher struct {
	rdb *redis.Client

	// publishFn is the transport seam; tests substitute a recorder.
	publishFn func(ctx context.Context, channel, event string, payload interface{}) error
}

func NewPublisher(rdb *redis.Client) *Publisher {
	p := &Publisher{rdb: rdb}
	p.publishFn = p.publishRedis
	return p
}

func (p *Publisher) publishRedis(ctx context.Context, channel, event string, payload interface{}) error {
	b, err := json.Marshal(envelope{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.rdb.Publish(ctx, channel, b).Err(); err != nil {
		return fmt.Errorf("redis PUBLISH: %w", err)
	}

	log.WithFields(log.Fields{
		"channel": channel,
		"event":   event,
	}).Trace("events_published")
	return nil
}

// MessageIngested announces one newly imported message: on the owner's
// channel (when the contact has one) and on the admin broadcast
// channel, each getting the email-specific event and the generic
// message event, followed by a single contact-updated notification so
// open contact views refresh.
func (p *Publisher) MessageIngested(ctx context.Context, contact *models.Contact, msg *models.Message) error {
	payload := MessagePayload{
		MessageID:   msg.ID,
		ContactID:   contact.ID,
		ContactName: contact.Name,
		Subject:     msg.Subject,
		Body:        msg.Body,
		Timestamp:   msg.ReceivedAt,
		Direction:   DirectionInbound,
	}

	var channels []string
	if contact.OwnerID != nil && *contact.OwnerID != "" {
		channels = append(channels, OwnerChannel(*contact.OwnerID))
	}
	channels = append(channels, ChannelAdmins)

	var firstErr error
	for _, channel := range channels {
		for _, event := range []string{EventEmailReceived, EventMessageReceived} {
			if err := p.publishFn(ctx, channel, event, payload); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	err := p.publishFn(ctx, ChannelAdmins, EventContactUpdated, ContactPayload{
		ContactID:   contact.ID,
		ContactName: contact.Name,
	})
	if err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
