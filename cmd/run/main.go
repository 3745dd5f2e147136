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

package run

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/scoutbase/mailintake/backoff"
	"github.com/scoutbase/mailintake/cmd/config"
	"github.com/scoutbase/mailintake/directory"
	"github.com/scoutbase/mailintake/engine"
	"github.com/scoutbase/mailintake/events"
	"github.com/scoutbase/mailintake/session"
	"github.com/scoutbase/mailintake/store"
)

func RegisterCommand(app *cli.App) *cli.App {
	cfg := &config.CliConfig{}
	app.Commands = append(app.Commands, &cli.Command{
		Name:   "run",
		Usage:  "Run the intake daemon",
		Flags:  cfg.Parameters(),
		Action: func(context *cli.Context) error { return run(context, cfg) },
	})
	return app
}

func run(_ *cli.Context, cfg *config.CliConfig) error {
	logLevel, err := log.ParseLevel(cfg.LogLevel)
	if err == nil {
		log.SetLevel(logLevel)
	}

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	log.WithFields(log.Fields{
		"imap_url":               cfg.IMAP.URL,
		"imap_auth_method":       cfg.IMAP.AuthMethod,
		"imap_username":          cfg.IMAP.Username,
		"imap_password_file":     cfg.IMAP.PasswordFile,
		"imap_tls_skip_verify":   cfg.IMAP.TLSSkipVerify,
		"imap_debug":             cfg.IMAP.Debug,
		"redis_url":              cfg.RedisURL,
		"log_level":              cfg.LogLevel,
		"log_format":             cfg.LogFormat,
		"fetch_window":           cfg.FetchWindow,
		"backup_scan_interval":   cfg.BackupScanInterval,
		"heartbeat_interval":     cfg.HeartbeatInterval,
		"idle_timeout":           cfg.IdleTimeout,
		"process_timeout":        cfg.ProcessTimeout,
		"max_reconnect_attempts": cfg.MaxReconnectAttempts,
	}).Info("starting")

	sessConfig, err := cfg.IMAP.Resolve()
	if err != nil {
		return err
	}

	// TranslateError is required so duplicate-key violations surface
	// as gorm.ErrDuplicatedKey.
	db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer func() { _ = sqlDB.Close() }()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return err
	}

	rdb := redis.NewClient(redisOpts)
	defer func() { _ = rdb.Close() }()

	eng, err := engine.New(&engine.Config{
		Session:            session.NewSession(&sessConfig),
		Directory:          directory.New(db),
		Store:              store.New(db),
		Events:             events.NewPublisher(rdb),
		Policy:             backoff.Policy{MaxAttempts: cfg.MaxReconnectAttempts},
		FetchWindow:        cfg.FetchWindow,
		BackupScanInterval: cfg.BackupScanInterval,
		HeartbeatInterval:  cfg.HeartbeatInterval,
		IdleTimeout:        cfg.IdleTimeout,
		ProcessTimeout:     cfg.ProcessTimeout,
	})
	if err != nil {
		return err
	}

	eng.Start()

	sigchan := make(chan os.Signal, 10)
	signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})

	sigcount := 0
	for {
		select {
		case sig := <-sigchan:
			log.WithFields(log.Fields{"signal": sig, "count": sigcount}).Trace("caught_signal")

			sigcount += 1
			if sigcount > 1 {
				log.WithFields(log.Fields{"signal": sig}).Warn("received_interrupt_force_exit")
				os.Exit(1)
			}
			log.WithFields(log.Fields{"signal": sig}).Info("received_interrupt")

			go func() {
				eng.Close()
				close(stopped)
			}()
		case <-stopped:
			stats := eng.Stats()
			log.WithFields(log.Fields{
				"ingested": stats.Ingested,
				"skipped":  stats.Skipped,
				"faulted":  stats.Faulted,
			}).Info("intake_terminated")
			return nil
		}
	}
}
