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
	"time"

	"github.com/urfave/cli/v2"
)

func DefaultConfig() CliConfig {
	return CliConfig{
		IMAP:                 DefaultIMAPConfig(),
		LogLevel:             "info",
		LogFormat:            "text",
		FetchWindow:          20,
		BackupScanInterval:   30 * time.Minute,
		HeartbeatInterval:    60 * time.Second,
		IdleTimeout:          5 * time.Minute,
		ProcessTimeout:       30 * time.Second,
		MaxReconnectAttempts: 10,
	}
}

func (cfg *CliConfig) Parameters() []cli.Flag {
	def := DefaultConfig()

	var flags []cli.Flag
	flags = append(flags, cfg.IMAP.makeIMAPParameters()...)
	flags = append(flags, []cli.Flag{
		&cli.StringFlag{
			Name:        "postgres-dsn",
			Usage:       "lead database dsn",
			EnvVars:     []string{"MAILINTAKE_POSTGRES_DSN"},
			Destination: &cfg.PostgresDSN,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "redis-url",
			Usage:       "redis url for client notifications",
			EnvVars:     []string{"MAILINTAKE_REDIS_URL"},
			Destination: &cfg.RedisURL,
			Required:    true,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "logging level",
			EnvVars:     []string{"MAILINTAKE_LOG_LEVEL"},
			Destination: &cfg.LogLevel,
			Value:       def.LogLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "logging format (text/json)",
			EnvVars:     []string{"MAILINTAKE_LOG_FORMAT"},
			Destination: &cfg.LogFormat,
			Value:       def.LogFormat,
		},
		&cli.UintFlag{
			Name:        "fetch-window",
			Usage:       "number of most recent messages scanned per pass",
			EnvVars:     []string{"MAILINTAKE_FETCH_WINDOW"},
			Destination: &cfg.FetchWindow,
			Value:       def.FetchWindow,
		},
		&cli.DurationFlag{
			Name:        "backup-scan-interval",
			Usage:       "interval between full scans regardless of IDLE activity",
			EnvVars:     []string{"MAILINTAKE_BACKUP_SCAN_INTERVAL"},
			Destination: &cfg.BackupScanInterval,
			Value:       def.BackupScanInterval,
		},
		&cli.DurationFlag{
			Name:        "heartbeat-interval",
			Usage:       "interval between connection liveness probes",
			EnvVars:     []string{"MAILINTAKE_HEARTBEAT_INTERVAL"},
			Destination: &cfg.HeartbeatInterval,
			Value:       def.HeartbeatInterval,
		},
		&cli.DurationFlag{
			Name:        "idle-timeout",
			Usage:       "maximum time to sit in IDLE before rescanning",
			EnvVars:     []string{"MAILINTAKE_IDLE_TIMEOUT"},
			Destination: &cfg.IdleTimeout,
			Value:       def.IdleTimeout,
		},
		&cli.DurationFlag{
			Name:        "process-timeout",
			Usage:       "per-message processing deadline",
			EnvVars:     []string{"MAILINTAKE_PROCESS_TIMEOUT"},
			Destination: &cfg.ProcessTimeout,
			Value:       def.ProcessTimeout,
		},
		&cli.UintFlag{
			Name:        "max-reconnect-attempts",
			Usage:       "consecutive reconnect failures before giving up",
			EnvVars:     []string{"MAILINTAKE_MAX_RECONNECT_ATTEMPTS"},
			Destination: &cfg.MaxReconnectAttempts,
			Value:       def.MaxReconnectAttempts,
		},
	}...)

	return flags
}
