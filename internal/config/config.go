// SPDX-License-Identifier: MIT
package config

// Defaults and limits of the configuration. Bar and tempo defaults live
// with their processors.
const (
	DefaultLogLevel = "info"

	DefaultSource          = SourceCapture
	DefaultChannels        = 2
	DefaultDeviceID        = MinDeviceID // system default input
	DefaultFramesPerBuffer = 512
	DefaultSampleRate      = 44100
	DefaultGateThreshold   = 0.001
	DefaultSyntheticBPM    = 120

	DefaultFrameRate = 60.0
	DefaultWindow    = "hann"

	DefaultWebSocketAddress = "127.0.0.1:8080"
	DefaultUDPTargetAddress = "127.0.0.1:9090"
	DefaultLogEvery         = 60

	// Hardware and processing limits
	MinDeviceID     = -1 // -1 represents the system default device
	MinSampleRate   = 8000
	MaxSampleRate   = 192000
	MaxBufferFrames = 8192 // power of two
	MaxChannels     = 255  // fits the UDP packet header
	MaxFrameRate    = 1000.0
)

// Sources the engine can read samples from.
const (
	SourceCapture   = "capture"
	SourceFile      = "file"
	SourceSynthetic = "synthetic"
)
