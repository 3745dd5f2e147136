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

// Package directory resolves sender addresses to contact records in the
// lead app's database. Read-only.
package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/scoutbase/mailintake/models"
)

// ErrNotFound means no contact has the given address. Callers must
// treat this differently from an I/O failure: an unknown sender is
// normal traffic, a failed query is not.
var ErrNotFound = errors.New("contact not found")

type Directory struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

// FindByEmail looks up a contact by exact, case-insensitive address
// match. If several contacts share the address the most recently
// created one wins; the data upstream shouldn't allow this, so it's
// logged when seen.
func (d *Directory) FindByEmail(ctx context.Context, address string) (*models.Contact, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, ErrNotFound
	}

	var contacts []models.Contact
	err := d.db.WithContext(ctx).
		Where("LOWER(email_address) = ?", address).
		Order("created_at DESC").
		Limit(2).
		Find(&contacts).Error
	if err != nil {
		return nil, fmt.Errorf("contact lookup: %w", err)
	}

	if len(contacts) == 0 {
		return nil, ErrNotFound
	}

	if len(contacts) > 1 {
		log.WithFields(log.Fields{
			"address": address,
			"contact": contacts[0].ID,
		}).Warn("directory_ambiguous_address")
	}

	return &contacts[0], nil
}
