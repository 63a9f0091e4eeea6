package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/teslashibe/go-voicechat/internal/httpc"
)

const maxErrorBody = 2048

// Whisper transcribes audio with an OpenAI-compatible
// /audio/transcriptions endpoint.
type Whisper struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewWhisper creates a Whisper transcriber.
func NewWhisper(opts ...Option) (*Whisper, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	client := cfg.HTTPClient
	if client == nil {
		client = httpc.NewClient(cfg.Timeout)
	}

	return &Whisper{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    client,
		logger:  cfg.Logger.With("component", "stt.whisper"),
	}, nil
}

// Transcribe uploads the audio file and returns its text.
func (w *Whisper) Transcribe(ctx context.Context, path string) (string, error) {
	start := time.Now()

	body, contentType, err := w.buildForm(path)
	if err != nil {
		return "", failed(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", failed(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", contentType)
	if key := w.config.Key(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return "", failed(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		w.logger.Warn("transcription rejected", "status", resp.StatusCode)
		return "", &TranscriptionError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			Cause:      fmt.Errorf("status %d", resp.StatusCode),
		}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", failed(fmt.Errorf("decode response: %w", err))
	}

	text := strings.TrimSpace(result.Text)
	if text == "" {
		return "", failed(ErrEmptyTranscript)
	}

	w.logger.Debug("transcription complete",
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

func (w *Whisper) buildForm(path string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}
	if err := mw.WriteField("model", w.config.Model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if w.config.Language != "" {
		if err := mw.WriteField("language", w.config.Language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, mw.FormDataContentType(), nil
}

// Verify Whisper implements Transcriber at compile time.
var _ Transcriber = (*Whisper)(nil)
