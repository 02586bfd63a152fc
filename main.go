// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"audiobars/cmd"
	"audiobars/internal/build"
	"audiobars/internal/config"
	"audiobars/internal/engine"
	"audiobars/internal/fetcher"
	"audiobars/internal/log"
	"audiobars/internal/transport"
	"audiobars/internal/tui"

	"gopkg.in/yaml.v3"
)

// main is the entry point for audiobars.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase:
//   - Initialize build information
//   - Configure runtime settings
//   - Parse command line arguments and load the configuration
//   - Execute one-off commands if requested
//
// 2. Frame Loop:
//   - Build the engine (fetcher, processors, transports)
//   - Run it on its own goroutine, with the live view in the foreground
//
// 3. Shutdown Phase:
//   - Handle termination signals or the user quitting the live view
//   - Close transports and the audio source
func main() {
	// ==================== STARTUP PHASE ====================

	if err := build.Initialize(); err != nil {
		log.Fatal(err)
	}

	// One thread for the frame loop, one for the terminal and transports.
	runtime.GOMAXPROCS(2)

	opts, err := cmd.ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if opts.Command == "" {
		return // --help or --version
	}
	log.SetLevel(opts.Config.Level())

	if opts.Command == cmd.CommandList {
		if err := listDevices(opts.Interactive); err != nil {
			log.Fatal(err)
		}
		return
	}

	// ==================== FRAME LOOP ====================

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var live *tui.Live
	var extra []transport.Transport
	if !opts.Headless {
		// The live view owns the terminal.
		out, closeLog, err := logOutput(opts.LogFile)
		if err != nil {
			log.Fatal(err)
		}
		defer closeLog()
		log.SetOutput(out)

		live = tui.NewLive()
		extra = append(extra, live)
	}

	eng, err := engine.New(opts.Config, extra...)
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("starting engine: %v", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- eng.Run(ctx)
		cancel()
	}()

	if live != nil {
		if err := live.Run(ctx, eng); err != nil {
			log.Errorf("live view: %v", err)
		}
		cancel()
	}

	// ==================== SHUTDOWN PHASE ====================

	runErr := <-done
	if err := eng.Close(); err != nil {
		log.Errorf("closing engine: %v", err)
	}
	if runErr != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("engine: %v", runErr)
	}
}

// listDevices prints the input devices, or opens the device browser and
// prints the source section for the chosen device.
func listDevices(interactive bool) error {
	if err := fetcher.Initialize(); err != nil {
		return err
	}
	defer fetcher.Terminate()

	if !interactive {
		return fetcher.ListDevices(os.Stdout)
	}

	sel, err := tui.StartDeviceListUI(fetcher.HostDevices)
	if err != nil {
		return err
	}
	if sel == nil {
		return nil
	}

	source := config.Default().Source
	source.Type = config.SourceCapture
	source.DeviceID = sel.Device.ID
	source.SampleRate = int(sel.SampleRate)
	source.Channels = min(source.Channels, sel.Device.MaxInputChannels)

	out, err := yaml.Marshal(map[string]config.SourceConfig{"source": source})
	if err != nil {
		return err
	}
	fmt.Printf("# %s (%s)\n%s", sel.Device.Name, sel.Device.HostAPI, out)
	return nil
}

// logOutput opens path for appending, or discards logs when path is empty.
func logOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, func() { f.Close() }, nil
}
