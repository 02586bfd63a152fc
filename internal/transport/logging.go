// SPDX-License-Identifier: MIT
package transport

import applog "audiobars/internal/log"

// LoggingTransport writes a short summary of every Nth frame at debug
// level.
type LoggingTransport struct {
	every  uint64
	logger *applog.Logger
}

// NewLoggingTransport logs one frame out of every. Values below one log
// every frame.
func NewLoggingTransport(every uint64) *LoggingTransport {
	logger.Infof("logging every %d frame(s) at debug level", max(every, 1))
	return &LoggingTransport{every: max(every, 1), logger: applog.Named("frames")}
}

func (lt *LoggingTransport) Send(frame *Frame) error {
	if frame.Sequence%lt.every != 0 || !lt.logger.Enabled(applog.LevelDebug) {
		return nil
	}
	peak, bars := 0.0, 0
	for _, ch := range frame.Bars {
		bars = len(ch)
		for _, v := range ch {
			peak = max(peak, v)
		}
	}
	lt.logger.Debugf("#%d %.1f BPM, %.0f Hz, %dx%d bars, peak %.3f", frame.Sequence, frame.BPM, frame.Peak, len(frame.Bars), bars, peak)
	return nil
}

func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
