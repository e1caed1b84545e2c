// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"os/signal"
	"sync"
)

// signals defines the signals that are handled to do a clean shutdown.
// Conditional compilation is used to also include SIGTERM on Unix.
var signals = []os.Signal{os.Interrupt}

// shutdown coordinates the clean termination of the daemon.  Handlers run
// once, in LIFO order, on the first interrupt signal or shutdown request.
type shutdown struct {
	mtx      sync.Mutex
	handlers []func()
	once     sync.Once
	done     chan struct{}
	requests chan struct{}
}

var daemonShutdown = newShutdown()

func newShutdown() *shutdown {
	return &shutdown{
		done:     make(chan struct{}),
		requests: make(chan struct{}, 1),
	}
}

// listen waits for an interrupt signal or a shutdown request and then runs
// the registered handlers.  It must be run as a goroutine.
func (s *shutdown) listen(interrupts <-chan os.Signal) {
	select {
	case sig := <-interrupts:
		log.Infof("Received signal (%s).  Shutting down...", sig)
	case <-s.requests:
		log.Info("Received shutdown request.  Shutting down...")
	}
	s.run()
}

func (s *shutdown) run() {
	s.once.Do(func() {
		s.mtx.Lock()
		handlers := s.handlers
		s.handlers = nil
		s.mtx.Unlock()

		for i := len(handlers) - 1; i >= 0; i-- {
			handlers[i]()
		}
		close(s.done)
	})
}

// add registers a handler to call on shutdown.
func (s *shutdown) add(handler func()) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.handlers = append(s.handlers, handler)
}

// request asks for a shutdown as if an interrupt had been received.
func (s *shutdown) request() {
	select {
	case s.requests <- struct{}{}:
	default:
	}
}

// startInterruptHandler starts listening for the interrupt signals of the
// daemon.
func startInterruptHandler() {
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, signals...)
	go daemonShutdown.listen(interrupts)
}

// addInterruptHandler adds a handler to call when a SIGINT (Ctrl+C) is
// received.
func addInterruptHandler(handler func()) {
	daemonShutdown.add(handler)
}

// simulateInterrupt requests invoking the clean termination process by an
// internal component instead of a SIGINT.
func simulateInterrupt() {
	daemonShutdown.request()
}
