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
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"github.com/emersion/go-sasl"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"github.com/scoutbase/mailintake/imap"
	"github.com/scoutbase/mailintake/imap/client"
	"github.com/scoutbase/mailintake/session"
)

func DefaultIMAPConfig() IMAPConfig {
	return IMAPConfig{
		AuthMethod:    "normal",
		TLSSkipVerify: false,
		Debug:         false,
	}
}

func (cfg *IMAPConfig) makeIMAPParameters() []cli.Flag {
	def := DefaultIMAPConfig()

	return []cli.Flag{
		&cli.StringFlag{
			Name:        "imap-url",
			Usage:       "imap url of the watched mailbox, e.g. imaps://imap.example.com/INBOX",
			EnvVars:     []string{"MAILINTAKE_IMAP_URL"},
			Destination: &cfg.URL,
			Required:    true,
			Value:       def.URL,
		},
		&cli.StringFlag{
			Name:        "imap-auth-method",
			Usage:       "imap auth method (normal, PLAIN, OAUTHBEARER)",
			EnvVars:     []string{"MAILINTAKE_IMAP_AUTH_METHOD"},
			Destination: &cfg.AuthMethod,
			Required:    false,
			Value:       def.AuthMethod,
		},
		&cli.StringFlag{
			Name:        "imap-username",
			Usage:       "imap username",
			EnvVars:     []string{"MAILINTAKE_IMAP_USERNAME"},
			Destination: &cfg.Username,
			Required:    true,
			Value:       def.Username,
		},
		&cli.StringFlag{
			Name:        "imap-password",
			Usage:       "imap password, or access token for OAUTHBEARER",
			EnvVars:     []string{"MAILINTAKE_IMAP_PASSWORD"},
			Destination: &cfg.Password,
			Required:    false,
			Value:       def.Password,
		},
		&cli.StringFlag{
			Name:        "imap-password-file",
			Usage:       "imap password file",
			EnvVars:     []string{"MAILINTAKE_IMAP_PASSWORD_FILE"},
			Destination: &cfg.PasswordFile,
			Required:    false,
			Value:       def.PasswordFile,
		},
		&cli.BoolFlag{
			Name:        "imap-tls-skip-verify",
			Usage:       "skip imap tls verification",
			EnvVars:     []string{"MAILINTAKE_IMAP_TLS_SKIP_VERIFY"},
			Destination: &cfg.TLSSkipVerify,
			Value:       def.TLSSkipVerify,
		},
		&cli.BoolFlag{
			Name:        "imap-debug",
			Usage:       "display imap protocol debug info",
			EnvVars:     []string{"MAILINTAKE_IMAP_DEBUG"},
			Destination: &cfg.Debug,
			Value:       def.Debug,
		},
	}
}

func extractUrl(u *url.URL) (string, string, bool, error) {
	var defaultPort string
	var useTLS bool
	switch strings.ToLower(u.Scheme) {
	case "imap":
		defaultPort = "143"
		useTLS = false
	case "imaps":
		defaultPort = "993"
		useTLS = true
	default:
		return "", "", false, errInvalidScheme
	}

	host := u.Hostname()
	port := u.Port()

	if port == "" {
		port = defaultPort
	}

	mailbox := strings.TrimPrefix(u.Path, "/")
	if mailbox == "" {
		mailbox = "INBOX"
	}

	return net.JoinHostPort(host, port), mailbox, useTLS, nil
}

func (cfg *IMAPConfig) resolvePassword() (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}

	if cfg.PasswordFile != "" {
		pass, err := os.ReadFile(cfg.PasswordFile)
		if err != nil {
			return "", err
		}

		return strings.TrimSpace(string(pass)), nil
	}

	return "", fmt.Errorf("at least one of the \"imap-password\" or \"imap-password-file\" flags is required")
}

// Resolve turns the raw flag values into a mailbox session config.
func (cfg *IMAPConfig) Resolve() (session.Config, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return session.Config{}, err
	}

	hostPort, mailbox, wantTLS, err := extractUrl(u)
	if err != nil {
		return session.Config{}, err
	}

	if cfg.Username == "" {
		return session.Config{}, fmt.Errorf("\"imap-username\" is required")
	}

	password, err := cfg.resolvePassword()
	if err != nil {
		return session.Config{}, err
	}

	var auth imap.Authenticator
	switch strings.ToUpper(cfg.AuthMethod) {
	case "NORMAL":
		auth = imap.NewNormalAuthenticator(cfg.Username, password)
	case sasl.Plain:
		auth = imap.NewSASLAuthenticator(sasl.NewPlainClient("", cfg.Username, password))
	case sasl.OAuthBearer:
		auth = imap.NewOAuthBearerAuthenticator(
			cfg.Username,
			oauth2.StaticTokenSource(&oauth2.Token{AccessToken: password}),
		)
	default:
		return session.Config{}, fmt.Errorf("unsupported auth method: %v", cfg.AuthMethod)
	}

	var tlsConfig *tls.Config
	if cfg.TLSSkipVerify {
		// #nosec G402
		tlsConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return session.Config{
		HostPort:  hostPort,
		Auth:      auth,
		Mailbox:   mailbox,
		TLS:       wantTLS,
		TLSConfig: tlsConfig,
		Debug:     cfg.Debug,
		Factory:   &client.Factory{},
	}, nil
}
