// Package archive keeps finished recordings on disk as <uuid>.wav with an
// optional <uuid>.txt transcript next to each one.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/google/uuid"

	"github.com/yok-tottii/EzRec/internal/logger"
	ezwav "github.com/yok-tottii/EzRec/internal/wav"
)

const (
	wavExt  = ".wav"
	textExt = ".txt"
)

var (
	// ErrNotFound is returned for an ID with no stored recording
	ErrNotFound = errors.New("recording not found")
	// ErrInvalidID is returned for IDs that are not UUIDs
	ErrInvalidID = errors.New("invalid recording id")
	// ErrUnsupportedFormat is returned for WAV data that is not 16-bit mono PCM
	ErrUnsupportedFormat = errors.New("unsupported wav format")
)

// Recording describes one stored file
type Recording struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Size       int64     `json:"size"`
	SampleRate int       `json:"sample_rate"`
	Samples    int       `json:"samples"`
	Duration   float64   `json:"duration"` // seconds
	Text       string    `json:"text,omitempty"`
}

// Archive stores recordings in a single directory
type Archive struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
}

// New creates the directory if needed and returns an archive rooted there
func New(dir string, log *logger.Logger) (*Archive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create recordings directory: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Archive{dir: dir, log: log}, nil
}

// Dir returns the archive directory
func (a *Archive) Dir() string {
	return a.dir
}

// Save validates data as a canonical WAV file and stores it under a new ID
func (a *Archive) Save(data []byte) (Recording, error) {
	h, err := ezwav.ParseHeader(data)
	if err != nil {
		return Recording{}, fmt.Errorf("refusing to store recording: %w", err)
	}
	if h.AudioFormat != 1 || h.NumChannels != 1 || h.BitsPerSample != 16 {
		return Recording{}, fmt.Errorf("%w: format=%d channels=%d bits=%d",
			ErrUnsupportedFormat, h.AudioFormat, h.NumChannels, h.BitsPerSample)
	}

	id := uuid.NewString()

	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.wavPath(id)
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return Recording{}, fmt.Errorf("failed to write recording: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return Recording{}, fmt.Errorf("failed to store recording: %w", err)
	}

	a.log.Info("Stored recording %s (%d bytes)", id, len(data))
	return a.load(id)
}

// SaveText stores the transcript for an existing recording
func (a *Archive) SaveText(id, text string) error {
	if err := validateID(id); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, err := os.Stat(a.wavPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}

	if err := os.WriteFile(a.textPath(id), []byte(text), 0644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}

// Get returns metadata for one recording
func (a *Archive) Get(id string) (Recording, error) {
	if err := validateID(id); err != nil {
		return Recording{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(id)
}

// Path returns the file path of a stored recording
func (a *Archive) Path(id string) (string, error) {
	if err := validateID(id); err != nil {
		return "", err
	}

	path := a.wavPath(id)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return path, nil
}

// List returns all readable recordings, newest first
func (a *Archive) List() ([]Recording, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recordings directory: %w", err)
	}

	recordings := make([]Recording, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, wavExt) {
			continue
		}

		id := strings.TrimSuffix(name, wavExt)
		if validateID(id) != nil {
			continue
		}

		rec, err := a.load(id)
		if err != nil {
			a.log.Warn("Skipping unreadable recording %s: %v", name, err)
			continue
		}
		recordings = append(recordings, rec)
	}

	sort.Slice(recordings, func(i, j int) bool {
		return recordings[i].CreatedAt.After(recordings[j].CreatedAt)
	})

	return recordings, nil
}

// Delete removes a recording and its transcript
func (a *Archive) Delete(id string) error {
	if err := validateID(id); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.Remove(a.wavPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete recording: %w", err)
	}
	if err := os.Remove(a.textPath(id)); err != nil && !os.IsNotExist(err) {
		a.log.Warn("Failed to delete transcript for %s: %v", id, err)
	}

	a.log.Info("Deleted recording %s", id)
	return nil
}

// Export decodes a stored recording and writes it to dest
func (a *Archive) Export(id, dest string) error {
	if err := validateID(id); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	in, err := os.Open(a.wavPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	defer in.Close()

	dec := wav.NewDecoder(in)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fmt.Errorf("failed to decode recording: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, buf.Format.SampleRate, int(dec.BitDepth), buf.Format.NumChannels, 1)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to finalize export: %w", err)
	}

	a.log.Info("Exported recording %s to %s", id, dest)
	return nil
}

// load reads metadata through the go-audio decoder. Caller holds mu.
func (a *Archive) load(id string) (Recording, error) {
	path := a.wavPath(id)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Recording{}, ErrNotFound
		}
		return Recording{}, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Recording{}, err
	}

	dec := wav.NewDecoder(f)
	if err := dec.FwdToPCM(); err != nil {
		return Recording{}, fmt.Errorf("invalid wav file: %w", err)
	}

	frameSize := int(dec.BitDepth) / 8 * int(dec.NumChans)
	samples := 0
	if frameSize > 0 {
		samples = int(dec.PCMLen()) / frameSize
	}

	rec := Recording{
		ID:         id,
		CreatedAt:  info.ModTime(),
		Size:       info.Size(),
		SampleRate: int(dec.SampleRate),
		Samples:    samples,
		Duration:   ezwav.Duration(samples, int(dec.SampleRate)),
	}

	if text, err := os.ReadFile(a.textPath(id)); err == nil {
		rec.Text = string(text)
	}

	return rec, nil
}

func (a *Archive) wavPath(id string) string {
	return filepath.Join(a.dir, id+wavExt)
}

func (a *Archive) textPath(id string) string {
	return filepath.Join(a.dir, id+textExt)
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	return nil
}
