package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yok-tottii/EzRec/internal/archive"
	"github.com/yok-tottii/EzRec/internal/recording"
	"github.com/yok-tottii/EzRec/internal/wav"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   [][]byte
	texts   map[string]string
	saveErr error
}

func (s *fakeStore) Save(data []byte) (archive.Recording, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return archive.Recording{}, s.saveErr
	}
	s.saved = append(s.saved, data)
	return archive.Recording{ID: uuid.NewString(), Duration: 65}, nil
}

func (s *fakeStore) SaveText(id, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.texts == nil {
		s.texts = map[string]string{}
	}
	s.texts[id] = text
	return nil
}

type fakeSink struct {
	mu      sync.Mutex
	session string
	text    string
	err     string
}

func (s *fakeSink) current(sessionID string) bool {
	return sessionID == "" || sessionID == s.session
}

func (s *fakeSink) SetSessionText(sessionID, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(sessionID) {
		return false
	}
	s.text = text
	return true
}

func (s *fakeSink) SetSessionError(sessionID, message string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(sessionID) {
		return false
	}
	s.err = message
	return true
}

type fakeTranscriber struct {
	text  string
	err   error
	block chan struct{}
	calls int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, data []byte) (string, error) {
	f.calls++
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

type fakeClipboard struct {
	copied []string
}

func (c *fakeClipboard) Copy(text string) error {
	c.copied = append(c.copied, text)
	return nil
}

type fakeNotifier struct {
	saved    []string
	complete []string
	failed   []string
}

func (n *fakeNotifier) RecordingSaved(duration string) error {
	n.saved = append(n.saved, duration)
	return nil
}

func (n *fakeNotifier) TranscriptionComplete(text string) error {
	n.complete = append(n.complete, text)
	return nil
}

func (n *fakeNotifier) TranscriptionFailed(reason string) error {
	n.failed = append(n.failed, reason)
	return nil
}

func sampleAudio(t *testing.T) recording.EncodedAudio {
	t.Helper()
	data, err := wav.Encode([]float32{0.1, -0.1, 0.2}, wav.DefaultSampleRate)
	require.NoError(t, err)
	return data
}

func closePipeline(t *testing.T, p *Pipeline) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.Close(ctx))
}

func TestProcess_FullChain(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	clip := &fakeClipboard{}
	notifier := &fakeNotifier{}
	tr := &fakeTranscriber{text: "hello there"}

	p := New(DefaultConfig(), store, sink, nil,
		WithTranscriber(tr), WithClipboard(clip), WithNotifier(notifier))

	audio := sampleAudio(t)
	p.Submit(audio)
	closePipeline(t, p)

	require.Len(t, store.saved, 1)
	assert.Equal(t, []byte(audio), store.saved[0])
	assert.Equal(t, "hello there", sink.text)
	assert.Empty(t, sink.err)
	assert.Equal(t, []string{"hello there"}, clip.copied)
	assert.Equal(t, []string{"hello there"}, notifier.complete)
	assert.Empty(t, notifier.saved)

	require.Len(t, store.texts, 1)
	for _, text := range store.texts {
		assert.Equal(t, "hello there", text)
	}
}

func TestProcess_ArchiveOnly(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	notifier := &fakeNotifier{}

	p := New(DefaultConfig(), store, sink, nil, WithNotifier(notifier))
	p.Submit(sampleAudio(t))
	closePipeline(t, p)

	assert.Len(t, store.saved, 1)
	assert.Equal(t, []string{"1:05"}, notifier.saved)
	assert.Empty(t, sink.text)
}

func TestProcess_TranscriptionFailure(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	clip := &fakeClipboard{}
	notifier := &fakeNotifier{}
	tr := &fakeTranscriber{err: &transcriptionErr{"model offline"}}

	p := New(DefaultConfig(), store, sink, nil,
		WithTranscriber(tr), WithClipboard(clip), WithNotifier(notifier))
	p.Submit(sampleAudio(t))
	closePipeline(t, p)

	assert.Equal(t, "model offline", sink.err)
	assert.Empty(t, sink.text)
	assert.Empty(t, clip.copied)
	assert.Equal(t, []string{"model offline"}, notifier.failed)
	assert.Len(t, store.saved, 1)
}

func TestProcess_SaveFailureStillTranscribes(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("disk full")}
	sink := &fakeSink{}
	tr := &fakeTranscriber{text: "kept"}

	p := New(DefaultConfig(), store, sink, nil, WithTranscriber(tr))
	p.Submit(sampleAudio(t))
	closePipeline(t, p)

	assert.Equal(t, "kept", sink.text)
	assert.Equal(t, "disk full", sink.err)
	assert.Empty(t, store.texts)
}

func TestSubmit_QueueFull(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{}
	tr := &fakeTranscriber{text: "x", block: make(chan struct{})}

	p := New(Config{QueueSize: 1}, store, sink, nil, WithTranscriber(tr))

	// first job occupies the worker, second fills the queue
	p.Submit(sampleAudio(t))
	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.saved) == 1
	}, time.Second, 5*time.Millisecond)
	p.Submit(sampleAudio(t))
	p.Submit(sampleAudio(t))

	sink.mu.Lock()
	assert.Equal(t, ErrQueueFull.Error(), sink.err)
	sink.mu.Unlock()

	close(tr.block)
	closePipeline(t, p)
	assert.Len(t, store.saved, 2)
}

func TestProcess_SupersededSessionKeepsStatus(t *testing.T) {
	store := &fakeStore{}
	sink := &fakeSink{session: "second"}
	clip := &fakeClipboard{}
	tr := &fakeTranscriber{text: "from the first take"}

	p := New(DefaultConfig(), store, sink, nil, WithTranscriber(tr), WithClipboard(clip))
	p.SubmitSession("first", sampleAudio(t))
	closePipeline(t, p)

	assert.Empty(t, sink.text)
	assert.Empty(t, sink.err)

	// still archived and copied
	require.Len(t, store.texts, 1)
	assert.Equal(t, []string{"from the first take"}, clip.copied)
}

func TestProcess_CurrentSessionUpdatesStatus(t *testing.T) {
	sink := &fakeSink{session: "current"}
	tr := &fakeTranscriber{text: "fresh"}

	p := New(DefaultConfig(), &fakeStore{}, sink, nil, WithTranscriber(tr))
	p.SubmitSession("current", sampleAudio(t))
	closePipeline(t, p)

	assert.Equal(t, "fresh", sink.text)
}

func TestClose_Idempotent(t *testing.T) {
	p := New(DefaultConfig(), &fakeStore{}, &fakeSink{}, nil)
	closePipeline(t, p)
	closePipeline(t, p)

	// submissions after close are dropped
	p.Submit(sampleAudio(t))
}

func TestClose_DeadlineCancelsRunningJob(t *testing.T) {
	sink := &fakeSink{}
	tr := &fakeTranscriber{block: make(chan struct{})}

	p := New(DefaultConfig(), &fakeStore{}, sink, nil, WithTranscriber(tr))
	p.Submit(sampleAudio(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, sink.err, "context canceled")
}

type transcriptionErr struct{ msg string }

func (e *transcriptionErr) Error() string { return e.msg }
