// Package clipboard hands transcripts to the system clipboard and, when
// asked, pastes them into the focused application.
package clipboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
)

// Config holds clipboard manager configuration
type Config struct {
	SplitSize     int           // Maximum characters per paste operation (default: 500)
	SplitInterval time.Duration // Interval between split pastes (default: 50ms)
	SettleDelay   time.Duration // Wait after writing before sending the paste keystroke (default: 10ms)
}

// DefaultConfig returns the default clipboard configuration
func DefaultConfig() Config {
	return Config{
		SplitSize:     500,
		SplitInterval: 50 * time.Millisecond,
		SettleDelay:   10 * time.Millisecond,
	}
}

// system is the part of robotgo the manager depends on
type system struct {
	read  func() (string, error)
	write func(string) error
	paste func() error
}

func robotgoSystem() system {
	return system{
		read:  robotgo.ReadAll,
		write: robotgo.WriteAll,
		paste: func() error {
			return robotgo.KeyTap("v", "cmd")
		},
	}
}

// Manager copies and pastes transcripts
type Manager struct {
	config Config
	sys    system
}

// NewManager creates a new clipboard manager
func NewManager(config Config) *Manager {
	if config.SplitSize <= 0 {
		config.SplitSize = DefaultConfig().SplitSize
	}
	return &Manager{config: config, sys: robotgoSystem()}
}

// Copy replaces the clipboard content with text
func (m *Manager) Copy(text string) error {
	if err := m.sys.write(text); err != nil {
		return fmt.Errorf("failed to write clipboard: %w", err)
	}
	return nil
}

// Content returns the current clipboard content
func (m *Manager) Content() (string, error) {
	content, err := m.sys.read()
	if err != nil {
		return "", fmt.Errorf("failed to read clipboard: %w", err)
	}
	return content, nil
}

// Paste types text into the focused application chunk by chunk and restores
// the previous clipboard content afterwards. The transcript is left on the
// clipboard if the previous content cannot be read.
func (m *Manager) Paste(text string) error {
	previous, readErr := m.sys.read()

	chunks := Split(text, m.config.SplitSize)
	for i, chunk := range chunks {
		if err := m.sys.write(chunk); err != nil {
			return fmt.Errorf("failed to write chunk %d: %w", i, err)
		}
		time.Sleep(m.config.SettleDelay)

		if err := m.sys.paste(); err != nil {
			return fmt.Errorf("failed to paste chunk %d: %w", i, err)
		}

		if i < len(chunks)-1 {
			time.Sleep(m.config.SplitInterval)
		}
	}

	if readErr != nil {
		return m.sys.write(text)
	}
	return m.sys.write(previous)
}

// Split breaks text into chunks of at most size runes, preferring to cut
// after punctuation or a newline within the last 50 runes of a chunk.
func Split(text string, size int) []string {
	runes := []rune(text)
	if size <= 0 || len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		floor := end - 50
		if floor < start {
			floor = start
		}
		for i := end - 1; i >= floor; i-- {
			if isBreak(runes[i]) {
				end = i + 1
				break
			}
		}

		chunks = append(chunks, string(runes[start:end]))
		start = end
	}

	return chunks
}

func isBreak(r rune) bool {
	return strings.ContainsRune("。、.,!?！？\n", r)
}
