// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 svchook Contributors

// Package main implements a demonstration plugin for svchook.
// It records every hook it sees into the dispatcher's environment and
// clears its own pending marker, showing both sides of the mutation
// protocol.
//
// Build and install:
//
//	go build -o $XDG_DATA_HOME/svchook/plugins/50-envdemo ./plugins/envdemo
package main

import (
	"fmt"
	"os"

	"github.com/svchook/svchook/pkg/hookenv"
)

func main() {
	if !hookenv.InWorker() {
		fmt.Fprintln(os.Stderr, "envdemo: must be started by the svchook dispatcher")
		os.Exit(2)
	}

	conn, err := hookenv.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "envdemo: open channel: %v\n", err)
		os.Exit(1)
	}

	if err := run(conn); err != nil {
		fmt.Fprintf(os.Stderr, "envdemo: %v\n", err)
		os.Exit(1)
	}

	if err := conn.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "envdemo: close channel: %v\n", err)
		os.Exit(1)
	}
}

func run(conn *hookenv.Conn) error {
	if err := conn.Setenv("ENVDEMO_LAST_HOOK", hookenv.Hook()); err != nil {
		return err
	}
	if value := hookenv.Value(); value != "" {
		if err := conn.Setenv("ENVDEMO_LAST_VALUE", value); err != nil {
			return err
		}
	}
	return conn.Unsetenv("ENVDEMO_PENDING")
}
