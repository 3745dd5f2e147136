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

// Package engine drives the ingestion lifecycle: connect, scan the
// fetch window, sit in IDLE, and recover from connection loss with
// classified backoff. All mailbox and database activity is funnelled
// through a single goroutine; only the state and counters are read
// from outside.
package engine

import (
	"errors"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/scoutbase/mailintake/backoff"
	"github.com/scoutbase/mailintake/session"
)

type Engine struct {
	cfg Config

	state    int32
	ingested uint64
	skipped  uint64
	faulted  uint64

	hasQuit  chan struct{}
	wantQuit chan struct{}
}

type idleResult struct {
	Signalled bool
	Err       error
}

func New(cfg *Config) (*Engine, error) {
	if cfg.Session == nil {
		return nil, errors.New("no session provided")
	}

	if cfg.Directory == nil {
		return nil, errors.New("no directory provided")
	}

	if cfg.Store == nil {
		return nil, errors.New("no store provided")
	}

	if cfg.Events == nil {
		return nil, errors.New("no notifier provided")
	}

	c := *cfg

	if c.Policy == nil {
		c.Policy = backoff.Policy{}
	}

	if c.FetchWindow == 0 {
		c.FetchWindow = 20
	}

	if c.BackupScanInterval == 0 {
		c.BackupScanInterval = 30 * time.Minute
	}

	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 60 * time.Second
	}

	if c.IdleTimeout == 0 {
		c.IdleTimeout = 5 * time.Minute
	}

	if c.ProcessTimeout == 0 {
		c.ProcessTimeout = 30 * time.Second
	}

	return &Engine{
		cfg:      c,
		state:    int32(StateDisconnected),
		hasQuit:  make(chan struct{}, 1),
		wantQuit: make(chan struct{}, 1),
	}, nil
}

// Start launches the ingestion loop. Call Close to stop it.
func (e *Engine) Start() {
	go e.run()
}

func (e *Engine) State() State {
	return State(atomic.LoadInt32(&e.state))
}

func (e *Engine) Stats() Stats {
	return Stats{
		Ingested: atomic.LoadUint64(&e.ingested),
		Skipped:  atomic.LoadUint64(&e.skipped),
		Faulted:  atomic.LoadUint64(&e.faulted),
	}
}

func (e *Engine) setState(s State) {
	old := e.State()
	if old == s {
		return
	}

	log.WithFields(log.Fields{
		"old": old,
		"new": s,
	}).Trace("engine_state_change")
	atomic.StoreInt32(&e.state, int32(s))
}

func (e *Engine) run() {
	log.Trace("engine_loop_enter")

	backupTicker := time.NewTicker(e.cfg.BackupScanInterval)
	defer backupTicker.Stop()

	heartbeatTicker := time.NewTicker(e.cfg.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	idleDone := make(chan idleResult, 1)

	var (
		attempts    uint
		stopIdle    chan struct{}
		reconnectCh <-chan time.Time
	)

	wantQuit := FlagCounter{}
	wantScan := FlagCounter{}
	probePending := false

	startIdle := func() {
		stopIdle = make(chan struct{})
		e.setState(StateIdling)
		go func(stop <-chan struct{}) {
			log.Trace("engine_idle_go_start")
			signalled, err := e.cfg.Session.IdleWait(stop, e.cfg.IdleTimeout)
			idleDone <- idleResult{Signalled: signalled, Err: err}
			log.Trace("engine_idle_go_end")
		}(stopIdle)
	}

	interruptIdle := func() {
		if stopIdle != nil {
			close(stopIdle)
			stopIdle = nil
		}
	}

	scheduleReconnect := func(cause error) {
		e.cfg.Session.Close()

		attempts++
		class := session.Classify(cause)
		d := e.cfg.Policy.Decide(class, attempts)

		entry := log.WithError(cause).WithFields(log.Fields{
			"class":    class,
			"attempts": attempts,
		})

		if !d.Retry {
			entry.Error("engine_reconnect_exhausted")
			e.setState(StateFailed)
			reconnectCh = nil
			return
		}

		entry.WithField("delay", d.Delay).Warn("engine_reconnect_scheduled")
		e.setState(StateReconnectScheduled)
		reconnectCh = time.After(d.Delay)
	}

	connect := func() {
		e.setState(StateConnecting)
		if err := e.cfg.Session.Connect(); err != nil {
			scheduleReconnect(err)
			return
		}

		attempts = 0
		reconnectCh = nil
		e.setState(StateConnected)

		if err := e.scan(); err != nil {
			scheduleReconnect(err)
			return
		}

		startIdle()
	}

	connect()

	for {
		log.WithFields(log.Fields{
			"state":         e.State(),
			"want_quit":     wantQuit.IsFlagged(),
			"want_scan":     wantScan.IsFlagged(),
			"probe_pending": probePending,
		}).Trace("engine_loop_start")

		select {
		case <-e.wantQuit:
			wantQuit.Flag()
			if stopIdle == nil {
				// No idle goroutine in flight, safe to leave now.
				goto done
			}
			interruptIdle()

		case r := <-idleDone:
			stopIdle = nil

			if wantQuit.IsFlagged() {
				goto done
			}

			if r.Err != nil {
				probePending = false
				wantScan.Reset()
				scheduleReconnect(r.Err)
				break
			}

			if probePending {
				probePending = false
				// New mail can race the idle teardown; the signal must
				// survive the probe.
				wantScan.FlagIf(r.Signalled)
				if err := e.cfg.Session.Probe(); err != nil {
					wantScan.Reset()
					scheduleReconnect(err)
					break
				}
				log.Trace("engine_heartbeat_ok")
			} else {
				if r.Signalled {
					log.Trace("engine_idle_new_mail")
				} else {
					log.Trace("engine_idle_expired")
				}
				wantScan.Flag()
			}

			if wantScan.IsFlagged() {
				wantScan.Reset()
				e.setState(StateConnected)
				if err := e.scan(); err != nil {
					scheduleReconnect(err)
					break
				}
			}

			startIdle()

		case <-backupTicker.C:
			if stopIdle == nil {
				break
			}
			log.Trace("engine_backup_scan_due")
			wantScan.Flag()
			interruptIdle()

		case <-heartbeatTicker.C:
			if stopIdle == nil {
				break
			}
			log.Trace("engine_heartbeat_due")
			probePending = true
			interruptIdle()

		case <-reconnectCh:
			reconnectCh = nil
			connect()
		}
	}

done:
	log.WithField("state", e.State()).Trace("engine_loop_exit")
	e.cfg.Session.Close()
	e.setState(StateDisconnected)
	e.hasQuit <- struct{}{}
}

// Close stops the loop and disconnects. Blocks until the loop has
// fully exited.
func (e *Engine) Close() {
	log.Trace("engine_close_invoked")
	e.wantQuit <- struct{}{}
	<-e.hasQuit
	log.Trace("engine_close_have_quit")
}
