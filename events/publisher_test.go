package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/scoutbase/mailintake/models"
)

type published struct {
	channel string
	event   string
}

func newRecordingPublisher() (*Publisher, *[]published) {
	var record []published
	p := &Publisher{}
	p.publishFn = func(_ context.Context, channel, event string, _ interface{}) error {
		record = append(record, published{channel: channel, event: event})
		return nil
	}
	return p, &record
}

func TestMessageIngestedWithOwner(t *testing.T) {
	p, record := newRecordingPublisher()

	owner := "u42"
	contact := &models.Contact{ID: "c1", Name: "Jane Doe", OwnerID: &owner}
	msg := &models.Message{ID: "m1", ContactID: "c1", Subject: "Hi", Body: "Hello", ReceivedAt: time.Now()}

	err := p.MessageIngested(context.Background(), contact, msg)
	assert.NoError(t, err)

	assert.Equal(t, []published{
		{"owner:u42", EventEmailReceived},
		{"owner:u42", EventMessageReceived},
		{"admins", EventEmailReceived},
		{"admins", EventMessageReceived},
		{"admins", EventContactUpdated},
	}, *record)
}

func TestMessageIngestedWithoutOwner(t *testing.T) {
	p, record := newRecordingPublisher()

	contact := &models.Contact{ID: "c1", Name: "Jane Doe"}
	msg := &models.Message{ID: "m1", ContactID: "c1"}

	err := p.MessageIngested(context.Background(), contact, msg)
	assert.NoError(t, err)

	assert.Equal(t, []published{
		{"admins", EventEmailReceived},
		{"admins", EventMessageReceived},
		{"admins", EventContactUpdated},
	}, *record)
}

func TestMessageIngestedReportsFirstError(t *testing.T) {
	p := &Publisher{}
	errBoom := errors.New("boom")
	calls := 0
	p.publishFn = func(context.Context, string, string, interface{}) error {
		calls++
		if calls == 1 {
			return errBoom
		}
		return nil
	}

	contact := &models.Contact{ID: "c1"}
	err := p.MessageIngested(context.Background(), contact, &models.Message{ID: "m1"})

	assert.ErrorIs(t, err, errBoom)
	// Remaining channels are still attempted.
	assert.Equal(t, 3, calls)
}
