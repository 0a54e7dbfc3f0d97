// Package gopmfsession is a CLI utility that scans a directory of GoPro
// recordings and prints the sessions it finds.
package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopmf/config"
	"gopmf/pkg/cache"
	"gopmf/pkg/gopro"
	"gopmf/pkg/log"
)

const usage = `group GoPro recordings into sessions
example: gopmfsession ./sdcard/DCIM [config.yaml]`

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	args := os.Args
	if len(args) < 2 {
		fmt.Println(usage)
		return nil
	}
	root := args[1]

	opts := gopro.BuildOptions{ContinueOnError: true}

	var wg sync.WaitGroup
	logger := log.NewLogger(&wg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger.Start(ctx)
	go logger.LogToStdout(ctx)

	if len(args) >= 3 {
		cfg, err := config.Load(args[2])
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		opts.Debug = cfg.Debug
		opts.Workers = cfg.Workers
		opts.StatusLog = logger
		if cfg.CachePath != "" {
			fpCache, err := cache.Open(cfg.CachePath)
			if err != nil {
				return fmt.Errorf("open cache: %w", err)
			}
			defer fpCache.Close()
			opts.Cache = fpCache
		}
	}

	sessions, err := gopro.BuildSessions(root, opts)
	if err != nil {
		return fmt.Errorf("build sessions: %w", err)
	}

	fmt.Printf("Found %v sessions.\n", len(sessions))
	for i, s := range sessions {
		serial, err := s.Serial()
		if err != nil {
			serial = "?"
		}
		fmt.Printf("[%v] device=%v serial=%v clips=%v start=%v duration=%v\n",
			i+1, s.Device, serial, len(s.Clips), s.Start(), s.Duration())
		for _, c := range s.Clips {
			fmt.Printf("    %v (%v)\n", c.HighResPath, c.LowResPath)
		}
	}
	return nil
}
