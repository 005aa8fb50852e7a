package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/pacelog/pacelog/internal/feed"
)

const feedReconnectDelay = 5 * time.Second

// FollowFeed connects to the change feed and merges every received
// event into the store. It reconnects on stream errors and returns
// only when the context is done.
func (c *Client) FollowFeed(ctx context.Context, store *Store) error {
	for {
		if err := c.streamFeedOnce(ctx, store); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warnf("feed stream broken, reconnecting: %s", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(feedReconnectDelay):
		}
	}
}

func (c *Client) streamFeedOnce(ctx context.Context, store *Store) error {
	// EventSource style auth: the token goes into the query, a
	// streaming GET cannot rely on request headers everywhere
	url := fmt.Sprintf("%s/activities/feed?token=%s", c.baseURL, c.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", "PaceLog/1")

	// the stream client must not time the request out
	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("connect to feed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return &APIError{StatusCode: resp.StatusCode, Message: "feed subscribe rejected"}
	}

	log.Debug("feed: connected")

	scanner := bufio.NewScanner(resp.Body)
	var eventName string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			eventName = ""
		case strings.HasPrefix(line, ":"):
			// comment / heartbeat
		case strings.HasPrefix(line, "event: "):
			eventName = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if eventName != "change" {
				continue
			}
			var ev feed.ChangeEvent
			data := strings.TrimPrefix(line, "data: ")
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				log.Errorf("feed: bad event payload: %s", err)
				continue
			}
			if err := store.ApplyRemoteChange(ev); err != nil {
				log.Errorf("feed: apply change: %s", err)
			}
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("read feed stream: %w", err)
	}
	return nil
}
