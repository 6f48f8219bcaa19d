// Package pipeline processes finished recordings off the capture path:
// archive, transcribe, publish the text.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yok-tottii/EzRec/internal/archive"
	"github.com/yok-tottii/EzRec/internal/logger"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/transcription"
)

// ErrQueueFull is reported when recordings arrive faster than they are processed
var ErrQueueFull = errors.New("processing queue full, recording dropped")

// Store persists recordings and their transcripts
type Store interface {
	Save(data []byte) (archive.Recording, error)
	SaveText(id, text string) error
}

// StatusSink receives results for the observable status. Results for a
// session that has been superseded are refused.
type StatusSink interface {
	SetSessionText(sessionID, text string) bool
	SetSessionError(sessionID, message string) bool
}

// Clipboard receives the transcript
type Clipboard interface {
	Copy(text string) error
}

// Notifier tells the user how processing went
type Notifier interface {
	RecordingSaved(duration string) error
	TranscriptionComplete(text string) error
	TranscriptionFailed(reason string) error
}

// Config holds pipeline configuration
type Config struct {
	QueueSize int
	Timeout   time.Duration // per transcription request
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		QueueSize: 4,
		Timeout:   90 * time.Second,
	}
}

// Pipeline runs a single worker over a bounded queue
type Pipeline struct {
	config      Config
	store       Store
	transcriber transcription.Transcriber
	sink        StatusSink
	clipboard   Clipboard
	notifier    Notifier
	log         *logger.Logger

	jobs   chan job
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type job struct {
	sessionID string
	audio     recording.EncodedAudio
}

// Option configures optional collaborators
type Option func(*Pipeline)

// WithTranscriber enables transcription
func WithTranscriber(t transcription.Transcriber) Option {
	return func(p *Pipeline) { p.transcriber = t }
}

// WithClipboard copies every transcript to the clipboard
func WithClipboard(c Clipboard) Option {
	return func(p *Pipeline) { p.clipboard = c }
}

// WithNotifier sends desktop notifications
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// New creates a pipeline and starts its worker
func New(config Config, store Store, sink StatusSink, log *logger.Logger, opts ...Option) *Pipeline {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if log == nil {
		log = logger.Nop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		config: config,
		store:  store,
		sink:   sink,
		log:    log,
		jobs:   make(chan job, config.QueueSize),
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.run(ctx)

	return p
}

// Submit queues audio without blocking. It is suitable as the controller's
// completion callback.
func (p *Pipeline) Submit(audio recording.EncodedAudio) {
	p.SubmitSession("", audio)
}

// SubmitSession queues audio recorded in the given session. The transcript
// only reaches the status while that session is still the latest one.
func (p *Pipeline) SubmitSession(sessionID string, audio recording.EncodedAudio) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.log.Warn("Pipeline closed, dropping %d bytes", len(audio))
		return
	}

	select {
	case p.jobs <- job{sessionID: sessionID, audio: audio}:
	default:
		p.fail(sessionID, "queue", ErrQueueFull)
	}
}

// Close stops accepting work, finishes queued jobs and waits for the worker.
// Jobs still running when ctx expires are cancelled.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func (p *Pipeline) run(ctx context.Context) {
	defer p.wg.Done()

	for j := range p.jobs {
		p.process(ctx, j)
	}
}

func (p *Pipeline) process(ctx context.Context, j job) {
	audio := j.audio
	rec, err := p.store.Save(audio)
	if err != nil {
		p.fail(j.sessionID, "save", err)
	} else {
		p.log.Info("Recording %s saved (%s)", rec.ID, recording.FormatDuration(int(rec.Duration)))
		if p.notifier != nil && p.transcriber == nil {
			p.notify(p.notifier.RecordingSaved(recording.FormatDuration(int(rec.Duration))))
		}
	}

	if p.transcriber == nil {
		return
	}

	tctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	text, err := p.transcriber.Transcribe(tctx, audio)
	cancel()
	if err != nil {
		p.fail(j.sessionID, "transcribe", err)
		return
	}

	if !p.sink.SetSessionText(j.sessionID, text) {
		p.log.Info("Session %s was superseded, transcript not shown in status", j.sessionID)
	}

	if rec.ID != "" {
		if err := p.store.SaveText(rec.ID, text); err != nil {
			p.log.Warn("Failed to store transcript for %s: %v", rec.ID, err)
		}
	}

	if p.clipboard != nil && text != "" {
		if err := p.clipboard.Copy(text); err != nil {
			p.log.Warn("Failed to copy transcript: %v", err)
		}
	}

	if p.notifier != nil {
		p.notify(p.notifier.TranscriptionComplete(text))
	}
}

func (p *Pipeline) fail(sessionID, stage string, err error) {
	message := fmt.Sprintf("%s: %v", stage, err)
	p.log.Error("Pipeline %s", message)
	p.sink.SetSessionError(sessionID, err.Error())

	if p.notifier != nil {
		p.notify(p.notifier.TranscriptionFailed(err.Error()))
	}
}

func (p *Pipeline) notify(err error) {
	if err != nil {
		p.log.Debug("Notification not delivered: %v", err)
	}
}
