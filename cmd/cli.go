// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"audiobars/internal/build"
	"audiobars/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Commands main can be asked to run.
const (
	CommandRun  = "run"
	CommandList = "list"
)

// Options is the parsed command line.
type Options struct {
	Command     string
	Config      *config.Config
	Headless    bool   // run without the live view
	Interactive bool   // list: open the device browser
	LogFile     string // log destination while the live view owns the terminal
}

// flagValues are the raw flag targets. Only flags the user set are copied
// into the configuration.
type flagValues struct {
	configPath      string
	source          string
	file            string
	loop            bool
	deviceID        int
	channels        int
	sampleRate      int
	framesPerBuffer int
	lowLatency      bool
	record          string
	gate            float32
	bars            uint16
	interpolation   string
	distribution    string
	frameRate       float64
	window          string
	websocket       string
	udp             string
	bpmFile         string
	noBPM           bool
	verbose         bool
}

// ParseArgs parses args (without the program name), loads the configuration
// and applies the flags on top of it.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.Get()
	opts := &Options{}
	var fv flagValues

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(fv.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd.Flags(), &fv, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandRun
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available capture devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Command = CommandList
			return nil
		},
	}
	listCmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"Browse the devices and print a source configuration for the selected one")
	rootCmd.AddCommand(listCmd)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&fv.configPath, "config", "C", "",
		"Path to a YAML config file (default: ./config.yaml if present)")
	pf.BoolVarP(&fv.verbose, "verbose", "v", false, "Log at debug level")

	// Source
	f := rootCmd.Flags()
	f.StringVarP(&fv.source, "source", "S", config.DefaultSource,
		"Sample source: capture, file or synthetic")
	f.StringVarP(&fv.file, "file", "f", "", "Play an audio file (wav, mp3, ogg); implies --source file")
	f.BoolVar(&fv.loop, "loop", false, "Restart the file at its end")
	f.IntVarP(&fv.deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	f.IntVarP(&fv.channels, "channels", "c", config.DefaultChannels,
		"Number of channels to capture (1=mono, 2=stereo)")
	f.IntVarP(&fv.sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	f.IntVarP(&fv.framesPerBuffer, "frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"The number of frames per capture callback (affects latency)")
	f.BoolVarP(&fv.lowLatency, "low-latency", "l", false,
		"Use low latency mode for real-time processing")
	f.StringVarP(&fv.record, "record", "r", "", "Record the captured input to this WAV file")
	f.Float32Var(&fv.gate, "gate", config.DefaultGateThreshold, "Noise gate threshold in [0, 1], 0 disables the gate")

	// Processing
	f.Uint16VarP(&fv.bars, "bars", "n", 30, "Number of bars per channel")
	f.StringVar(&fv.interpolation, "interpolation", "cubic", "Bar interpolation: none, linear or cubic")
	f.StringVar(&fv.distribution, "distribution", "uniform", "Supporting point distribution: uniform or natural")
	f.Float64Var(&fv.frameRate, "frame-rate", config.DefaultFrameRate, "Frames per second")
	f.StringVar(&fv.window, "window", config.DefaultWindow, "FFT window function")
	f.BoolVar(&fv.noBPM, "no-bpm", false, "Disable tempo detection")

	// Output
	f.StringVar(&fv.websocket, "websocket", "", "Serve frames over a websocket on this address")
	f.StringVar(&fv.udp, "udp", "", "Send frames as UDP packets to this host:port")
	f.StringVar(&fv.bpmFile, "bpm-file", "", "Keep the rounded BPM in this file")
	f.BoolVar(&opts.Headless, "headless", false, "Do not show the live view")
	f.StringVar(&opts.LogFile, "log-file", "", "Write logs to this file while the live view is shown")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	// --help and --version set no command.
	if opts.Command == "" {
		return opts, nil
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("no configuration loaded")
	}
	return opts, nil
}

func applyFlags(flags *pflag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if set("verbose") {
		cfg.Debug = fv.verbose
	}

	s := &cfg.Source
	if set("source") {
		s.Type = fv.source
	}
	if set("file") {
		s.Type = config.SourceFile
		s.Path = fv.file
	}
	if set("loop") {
		s.Loop = fv.loop
	}
	if set("device") {
		s.DeviceID = fv.deviceID
	}
	if set("channels") {
		s.Channels = fv.channels
	}
	if set("sample-rate") {
		s.SampleRate = fv.sampleRate
	}
	if set("frames-per-buffer") {
		s.FramesPerBuffer = fv.framesPerBuffer
	}
	if set("low-latency") {
		s.LowLatency = fv.lowLatency
	}
	if set("record") {
		s.RecordPath = fv.record
	}
	if set("gate") {
		s.GateThreshold = fv.gate
		s.GateEnabled = fv.gate > 0
	}

	if set("bars") {
		cfg.Bars.Amount = fv.bars
	}
	if set("interpolation") {
		cfg.Bars.Interpolation = fv.interpolation
	}
	if set("distribution") {
		cfg.Bars.Distribution = fv.distribution
	}
	if set("frame-rate") {
		cfg.Engine.FrameRate = fv.frameRate
	}
	if set("window") {
		cfg.Engine.Window = fv.window
	}
	if set("no-bpm") {
		cfg.BPM.Enabled = !fv.noBPM
	}

	if set("websocket") {
		cfg.Transport.WebSocketEnabled = true
		cfg.Transport.WebSocketAddress = fv.websocket
	}
	if set("udp") {
		cfg.Transport.UDPEnabled = true
		cfg.Transport.UDPTargetAddress = fv.udp
	}
	if set("bpm-file") {
		cfg.Transport.BPMFile = fv.bpmFile
	}
}
