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

package config

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

type OAuth2Config struct {
	Provider     string
	ClientID     string
	ClientSecret string

	Config oauth2.Config
}

func (cfg *OAuth2Config) Parameters() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "oauth2 provider (google, microsoft)",
			EnvVars:     []string{"MAILINTAKE_OAUTH_PROVIDER"},
			Destination: &cfg.Provider,
			Value:       "google",
		},
		&cli.StringFlag{
			Name:        "client-id",
			Usage:       "oauth2 client id",
			EnvVars:     []string{"MAILINTAKE_OAUTH_CLIENT_ID"},
			Destination: &cfg.ClientID,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "client-secret",
			Usage:       "oauth2 client secret",
			EnvVars:     []string{"MAILINTAKE_OAUTH_CLIENT_SECRET"},
			Destination: &cfg.ClientSecret,
			Required:    true,
		},
	}
}

func (cfg *OAuth2Config) Resolve() error {
	switch strings.ToLower(cfg.Provider) {
	case "google":
		cfg.Config = oauth2.Config{
			Endpoint: endpoints.Google,
			Scopes:   []string{"https://mail.google.com/"},
		}
	case "microsoft":
		cfg.Config = oauth2.Config{
			Endpoint: endpoints.Microsoft,
			Scopes:   []string{"https://outlook.office.com/IMAP.AccessAsUser.All", "offline_access"},
		}
	default:
		return fmt.Errorf("unsupported oauth2 provider: %v", cfg.Provider)
	}

	cfg.Config.ClientID = cfg.ClientID
	cfg.Config.ClientSecret = cfg.ClientSecret
	return nil
}
