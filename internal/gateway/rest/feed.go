package rest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/mathmaster/mathmaster-go/internal/gateway"
)

// subscription is one open SSE stream against the dev gateway's feed
// endpoint. Unsubscribe cancels the request context, which ends the stream.
type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Unsubscribe closes the stream and waits for the reader to drain. Safe to
// call more than once.
func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe opens an SSE stream for one table and user. Events are delivered
// from a reader goroutine; the stream ends when ctx or Unsubscribe cancels
// it.
func (g *Gateway) Subscribe(ctx context.Context, table, userID string, types []gateway.ChangeType, fn gateway.ChangeCallback) (gateway.Subscription, error) {
	typeParts := make([]string, 0, len(types))
	for _, t := range types {
		typeParts = append(typeParts, string(t))
	}
	feedURL := fmt.Sprintf("%s/feed?table=%s&user_id=%s&types=%s",
		g.baseURL,
		url.QueryEscape(table),
		url.QueryEscape(userID),
		url.QueryEscape(strings.Join(typeParts, ",")))

	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, feedURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if token := g.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	// No timeout: the stream stays open until cancelled.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("connection failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		cancel()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	sub := &subscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		defer func() { _ = resp.Body.Close() }()
		g.readStream(resp.Body, fn)
	}()

	return sub, nil
}

// readStream parses the SSE wire format and invokes the callback for each
// change event. Connected markers and keepalive comments are skipped.
func (g *Gateway) readStream(body io.Reader, fn gateway.ChangeCallback) {
	scanner := bufio.NewScanner(body)
	var currentEvent string
	var dataLines []string

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, "event: "):
			currentEvent = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			dataLines = append(dataLines, strings.TrimPrefix(line, "data: "))
		case line == "":
			if currentEvent == "change" {
				data := strings.Join(dataLines, "\n")
				var event gateway.ChangeEvent
				if err := json.Unmarshal([]byte(data), &event); err != nil {
					g.logger.Warn("dropping undecodable feed event",
						slog.String("error", err.Error()))
				} else {
					fn(event)
				}
			}
			currentEvent = ""
			dataLines = nil
		}
	}
	// Scanner errors here are almost always the cancelled stream.
}
