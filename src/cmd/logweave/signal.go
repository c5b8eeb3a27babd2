// FILE: logweave/src/cmd/logweave/signal.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalHandler turns termination signals into a shutdown request
type SignalHandler struct {
	sigChan chan os.Signal
}

func NewSignalHandler() *SignalHandler {
	sh := &SignalHandler{sigChan: make(chan os.Signal, 1)}
	signal.Notify(sh.sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sh
}

// Wait returns the received signal, or nil once ctx is done
func (sh *SignalHandler) Wait(ctx context.Context) os.Signal {
	select {
	case sig := <-sh.sigChan:
		return sig
	case <-ctx.Done():
		return nil
	}
}

func (sh *SignalHandler) Stop() {
	signal.Stop(sh.sigChan)
}
