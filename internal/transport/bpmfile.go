// SPDX-License-Identifier: MIT
package transport

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultBPMFile is read by status bar widgets.
const DefaultBPMFile = "/tmp/audiobars-bpm"

// BPMFileTransport keeps the rounded BPM in a small text file. The file is
// only rewritten when the rounded value changes.
type BPMFileTransport struct {
	path string
	last int
}

func NewBPMFileTransport(path string) (*BPMFileTransport, error) {
	if path == "" {
		path = DefaultBPMFile
	}
	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("bpm file directory: %w", err)
		}
	}
	logger.Infof("writing BPM to %s", path)
	return &BPMFileTransport{path: path, last: -1}, nil
}

func (bt *BPMFileTransport) Send(frame *Frame) error {
	bpm := int(math.Round(frame.BPM))
	if bpm == bt.last {
		return nil
	}
	// Readers must never observe a partial write.
	tmp := bt.path + ".tmp"
	if err := os.WriteFile(tmp, fmt.Appendf(nil, "%d\n", bpm), 0o644); err != nil {
		return fmt.Errorf("write bpm file: %w", err)
	}
	if err := os.Rename(tmp, bt.path); err != nil {
		return fmt.Errorf("replace bpm file: %w", err)
	}
	bt.last = bpm
	return nil
}

func (bt *BPMFileTransport) Close() error {
	return nil
}

var _ Transport = (*BPMFileTransport)(nil)
