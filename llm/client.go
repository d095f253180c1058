package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"jdnotes/config"
	apperrors "jdnotes/errors"

	"go.uber.org/zap"
)

type streamChoice struct {
	Delta struct {
		Content string `json:"content"`
	} `json:"delta"`
	Index int `json:"index"`
}

type streamResponse struct {
	Choices []streamChoice `json:"choices"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// SettingsSource supplies the live endpoint settings at request time, so
// changes made on the settings screen take effect without a restart.
type SettingsSource interface {
	AISettings(ctx context.Context) (config.AISettings, error)
}

// Callbacks receive stream lifecycle events. OnChunk fires zero or more
// times, then exactly one of OnFinish or OnError. A cancelled or
// superseded session fires nothing further, not even a terminal. OnLine is
// optional whole-line granularity: complete newline-terminated lines,
// with any trailing partial line flushed once at stream end.
//
// Callbacks are invoked with the client's internal lock held; they must
// not call Start or Cancel on the same client.
type Callbacks struct {
	OnChunk  func(chunk string)
	OnLine   func(line string)
	OnFinish func(full string)
	OnError  func(err error)
}

// StreamClient talks to an OpenAI-compatible chat-completion endpoint
// with streaming enabled. At most one session is in flight per client:
// starting a new session first cancels and silences any prior one.
type StreamClient struct {
	settings   SettingsSource
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewStreamClient(settings SettingsSource, timeout time.Duration, logger *zap.Logger) *StreamClient {
	// Streaming responses can outlive any sane whole-request timeout, so
	// the transport timeout applies and cancellation is context-driven.
	return &StreamClient{
		settings:   settings,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Start begins a streaming completion. It returns an error only for
// configuration problems (no network attempt is made); transport and
// protocol failures are reported through cb.OnError.
func (c *StreamClient) Start(ctx context.Context, req Request, cb Callbacks) error {
	settings, err := c.settings.AISettings(ctx)
	if err != nil {
		return apperrors.WrapError(err, "load ai settings")
	}
	if strings.TrimSpace(settings.APIKey) == "" {
		return apperrors.ErrMissingAPIKey
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	gen := c.gen
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(runCtx, gen, settings, req, cb)
	return nil
}

// Cancel silences the active session, if any. No terminal callback fires
// for a cancelled session. Idempotent.
func (c *StreamClient) Cancel() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.mu.Unlock()
}

// Active reports whether a session is currently in flight.
func (c *StreamClient) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancel != nil
}

// emit invokes fn only if the session is still current.
func (c *StreamClient) emit(gen uint64, fn func()) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	fn()
}

// emitTerminal is emit plus releasing the session slot, so Active()
// flips to false atomically with the terminal callback.
func (c *StreamClient) emitTerminal(gen uint64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.cancel = nil
	if fn != nil {
		fn()
	}
}

func (c *StreamClient) run(ctx context.Context, gen uint64, settings config.AISettings, req Request, cb Callbacks) {
	body := chatRequest{
		Model: settings.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Stream: true,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		c.emitTerminal(gen, func() { c.fail(cb, apperrors.WrapError(err, "marshal chat request")) })
		return
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(settings.BaseURL, "/"))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		c.emitTerminal(gen, func() { c.fail(cb, apperrors.WrapError(err, "create chat request")) })
		return
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+settings.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return // cancelled: silent, no terminal callback
		}
		c.emitTerminal(gen, func() { c.fail(cb, apperrors.WrapError(err, "request to ai endpoint failed")) })
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := apperrors.WrapErrorf(apperrors.ErrLLMCommunication,
			"ai endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(bodyBytes)))
		c.emitTerminal(gen, func() { c.fail(cb, statusErr) })
		return
	}

	var full strings.Builder
	var lineBuf strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var sr streamResponse
		if err := json.Unmarshal([]byte(data), &sr); err != nil {
			// Tolerate partial or malformed records; the stream goes on
			c.logger.Debug("Skipping malformed stream record", zap.Error(err))
			continue
		}
		if len(sr.Choices) == 0 {
			continue
		}
		chunk := sr.Choices[0].Delta.Content
		if chunk == "" {
			continue
		}

		full.WriteString(chunk)
		c.emit(gen, func() {
			if cb.OnChunk != nil {
				cb.OnChunk(chunk)
			}
		})

		if cb.OnLine != nil {
			lineBuf.WriteString(chunk)
			for {
				buffered := lineBuf.String()
				idx := strings.IndexByte(buffered, '\n')
				if idx < 0 {
					break
				}
				completed := buffered[:idx]
				lineBuf.Reset()
				lineBuf.WriteString(buffered[idx+1:])
				c.emit(gen, func() { cb.OnLine(completed) })
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		c.emitTerminal(gen, func() { c.fail(cb, apperrors.WrapError(err, "read ai stream")) })
		return
	}
	if ctx.Err() != nil {
		return
	}

	if cb.OnLine != nil && lineBuf.Len() > 0 {
		remainder := lineBuf.String()
		c.emit(gen, func() { cb.OnLine(remainder) })
	}

	fullText := full.String()
	c.emitTerminal(gen, func() {
		if cb.OnFinish != nil {
			cb.OnFinish(fullText)
		}
	})
}

func (c *StreamClient) fail(cb Callbacks, err error) {
	c.logger.Warn("Stream session failed", zap.Error(err))
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
