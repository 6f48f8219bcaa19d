// Package transcription uploads finished recordings to an external
// speech-to-text service.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/yok-tottii/EzRec/internal/logger"
)

const (
	// Path is appended to the base URL for uploads
	Path = "/transcribe"
	// FileField is the multipart field carrying the WAV file
	FileField = "file"
	// FileName is the file name sent with the upload
	FileName = "recording.wav"
)

var (
	// ErrEmptyAudio is returned for zero-length input; no request is made
	ErrEmptyAudio = errors.New("no audio to transcribe")
	// ErrNotConfigured is returned when no service URL is set
	ErrNotConfigured = errors.New("transcription service URL not configured")
)

// TranscriptionError describes a failed upload or a rejected transcription
type TranscriptionError struct {
	StatusCode int // 0 when no response was received
	Message    string
	Err        error
}

func (e *TranscriptionError) Error() string {
	msg := "transcription failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.StatusCode)
	}
	if e.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Message)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// Response is the body returned by the service
type Response struct {
	Success bool   `json:"success"`
	Text    string `json:"text,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Config holds client configuration
type Config struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Transcriber turns WAV audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Client talks to the transcription service over HTTP
type Client struct {
	http     *resty.Client
	language string
	log      *logger.Logger
}

// NewClient creates a new transcription client
func NewClient(config Config, log *logger.Logger) (*Client, error) {
	if strings.TrimSpace(config.BaseURL) == "" {
		return nil, ErrNotConfigured
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:     httpClient,
		language: config.Language,
		log:      log,
	}, nil
}

// Transcribe uploads wav and returns the recognized text
func (c *Client) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", &TranscriptionError{Err: ErrEmptyAudio}
	}

	var result, failure Response
	req := c.http.R().
		SetContext(ctx).
		SetMultipartField(FileField, FileName, "audio/wav", bytes.NewReader(wav)).
		SetResult(&result).
		SetError(&failure)
	if c.language != "" {
		req.SetFormData(map[string]string{"language": c.language})
	}

	start := time.Now()
	resp, err := req.Post(Path)
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}

	if resp.IsError() {
		message := failure.Error
		if message == "" {
			message = strings.TrimSpace(resp.String())
		}
		return "", &TranscriptionError{StatusCode: resp.StatusCode(), Message: message}
	}

	if !result.Success {
		message := result.Error
		if message == "" {
			message = "service reported failure"
		}
		return "", &TranscriptionError{StatusCode: resp.StatusCode(), Message: message}
	}

	c.log.Info("Transcribed %d bytes in %v (%d chars)", len(wav), time.Since(start).Round(time.Millisecond), len(result.Text))
	return result.Text, nil
}
