package config

import (
	"crypto/tls"
	"net/url"
	"testing"

	"github.com/emersion/go-sasl"
	"github.com/stretchr/testify/assert"

	"github.com/scoutbase/mailintake/imap"
	"github.com/scoutbase/mailintake/imap/client"
	"github.com/scoutbase/mailintake/session"
)

func getTestIMAPConfig() IMAPConfig {
	cfg := DefaultIMAPConfig()
	cfg.URL = "imaps://imap.hostname.com:1234/INBOX"
	cfg.Username = "username"
	cfg.Password = "password"

	return cfg
}

func TestIMAPConfig_Resolve(t *testing.T) {
	t.Run("passwords", func(t *testing.T) {
		t.Run("password", func(t *testing.T) {
			cfg := getTestIMAPConfig()

			sessConfig, err := cfg.Resolve()
			assert.NoError(t, err)
			assert.Equal(t, session.Config{
				HostPort:  "imap.hostname.com:1234",
				Auth:      imap.NewNormalAuthenticator("username", "password"),
				Mailbox:   "INBOX",
				TLS:       true,
				TLSConfig: nil,
				Debug:     false,
				Factory:   &client.Factory{},
			}, sessConfig)
		})

		t.Run("password_file", func(t *testing.T) {
			cfg := getTestIMAPConfig()
			cfg.Password = ""
			cfg.PasswordFile = "testdata/testpass.txt"

			sessConfig, err := cfg.Resolve()
			assert.NoError(t, err)
			assert.Equal(t, imap.NewNormalAuthenticator("username", "password"), sessConfig.Auth)
		})

		t.Run("missing", func(t *testing.T) {
			cfg := getTestIMAPConfig()
			cfg.Password = ""

			_, err := cfg.Resolve()
			assert.Error(t, err)
		})
	})

	t.Run("auth_methods", func(t *testing.T) {
		t.Run("plain", func(t *testing.T) {
			cfg := getTestIMAPConfig()
			cfg.AuthMethod = sasl.Plain

			sessConfig, err := cfg.Resolve()
			assert.NoError(t, err)
			assert.Equal(t, imap.NewSASLAuthenticator(sasl.NewPlainClient("", "username", "password")), sessConfig.Auth)
		})

		t.Run("unknown", func(t *testing.T) {
			cfg := getTestIMAPConfig()
			cfg.AuthMethod = "KERBEROS"

			_, err := cfg.Resolve()
			assert.Error(t, err)
		})
	})

	t.Run("tls_skip_verify", func(t *testing.T) {
		cfg := getTestIMAPConfig()
		cfg.TLSSkipVerify = true

		sessConfig, err := cfg.Resolve()
		assert.NoError(t, err)
		assert.Equal(t, &tls.Config{InsecureSkipVerify: true}, sessConfig.TLSConfig)
	})
}

func TestExtractUrl(t *testing.T) {
	tests := []struct {
		url      string
		hostPort string
		mailbox  string
		tls      bool
		wantErr  bool
	}{
		{url: "imap://imap.example.com", hostPort: "imap.example.com:143", mailbox: "INBOX"},
		{url: "imaps://imap.example.com", hostPort: "imap.example.com:993", mailbox: "INBOX", tls: true},
		{url: "imaps://imap.example.com:2993/Leads", hostPort: "imap.example.com:2993", mailbox: "Leads", tls: true},
		{url: "https://example.com", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.url, func(t *testing.T) {
			u, err := url.Parse(tc.url)
			assert.NoError(t, err)

			hostPort, mailbox, useTLS, err := extractUrl(u)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.hostPort, hostPort)
			assert.Equal(t, tc.mailbox, mailbox)
			assert.Equal(t, tc.tls, useTLS)
		})
	}
}

func TestDefaults(t *testing.T) {
	def := DefaultConfig()
	assert.Equal(t, uint(20), def.FetchWindow)
	assert.Equal(t, "info", def.LogLevel)
	assert.Equal(t, "normal", def.IMAP.AuthMethod)
	assert.Equal(t, uint(10), def.MaxReconnectAttempts)
}
