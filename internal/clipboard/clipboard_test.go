package clipboard

import (
	"errors"
	"strings"
	"testing"
	"time"
)

type fakeSystem struct {
	content string
	readErr error
	writes  []string
	pastes  []string
}

func newTestManager(f *fakeSystem, splitSize int) *Manager {
	m := NewManager(Config{SplitSize: splitSize})
	m.sys = system{
		read: func() (string, error) {
			return f.content, f.readErr
		},
		write: func(s string) error {
			f.content = s
			f.writes = append(f.writes, s)
			return nil
		},
		paste: func() error {
			f.pastes = append(f.pastes, f.content)
			return nil
		},
	}
	return m
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.SplitSize != 500 {
		t.Errorf("Expected SplitSize 500, got %d", config.SplitSize)
	}

	if config.SplitInterval != 50*time.Millisecond {
		t.Errorf("Expected SplitInterval 50ms, got %v", config.SplitInterval)
	}
}

func TestNewManager_DefaultsSplitSize(t *testing.T) {
	m := NewManager(Config{})
	if m.config.SplitSize != 500 {
		t.Errorf("Expected splitSize 500, got %d", m.config.SplitSize)
	}
}

func TestCopy(t *testing.T) {
	f := &fakeSystem{}
	m := newTestManager(f, 500)

	if err := m.Copy("hello"); err != nil {
		t.Fatalf("Copy failed: %v", err)
	}

	got, err := m.Content()
	if err != nil {
		t.Fatalf("Content failed: %v", err)
	}
	if got != "hello" {
		t.Errorf("Expected clipboard %q, got %q", "hello", got)
	}
}

func TestCopy_WriteError(t *testing.T) {
	m := NewManager(DefaultConfig())
	m.sys.write = func(string) error { return errors.New("no pasteboard") }

	if err := m.Copy("x"); err == nil {
		t.Error("Expected error when clipboard write fails")
	}
}

func TestPaste_RestoresPrevious(t *testing.T) {
	f := &fakeSystem{content: "previous"}
	m := newTestManager(f, 5)

	if err := m.Paste("abcdefghij"); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}

	if len(f.pastes) != 2 || f.pastes[0] != "abcde" || f.pastes[1] != "fghij" {
		t.Errorf("Unexpected pastes: %q", f.pastes)
	}
	if f.content != "previous" {
		t.Errorf("Expected clipboard restored to %q, got %q", "previous", f.content)
	}
}

func TestPaste_KeepsTextWhenPreviousUnreadable(t *testing.T) {
	f := &fakeSystem{readErr: errors.New("locked")}
	m := newTestManager(f, 500)

	if err := m.Paste("hello"); err != nil {
		t.Fatalf("Paste failed: %v", err)
	}
	if f.content != "hello" {
		t.Errorf("Expected clipboard to hold transcript, got %q", f.content)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		size     int
		expected []string
	}{
		{"short", "hello", 10, []string{"hello"}},
		{"exact", "hello", 5, []string{"hello"}},
		{"hard cut", "abcdefgh", 3, []string{"abc", "def", "gh"}},
		{"sentence boundary", "Hi. there", 6, []string{"Hi.", " there"}},
		{"japanese", "こんにちは。世界", 7, []string{"こんにちは。", "世界"}},
		{"no size", "anything", 0, []string{"anything"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.text, tt.size)
			if len(got) != len(tt.expected) {
				t.Fatalf("Expected %d chunks, got %d: %q", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("chunk %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
			if strings.Join(got, "") != tt.text {
				t.Errorf("Chunks do not reassemble to the original text")
			}
		})
	}
}
