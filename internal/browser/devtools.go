package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Session is a synchronous DevTools protocol session over a websocket.
// Calls are serialized; the grading routine is sequential anyway and a
// single in-flight command keeps response matching trivial.
type Session struct {
	conn *websocket.Conn

	mu     sync.Mutex
	nextID int64
}

// Dial connects to a page's DevTools websocket endpoint.
func Dial(ctx context.Context, wsURL string) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}
	return &Session{conn: conn}, nil
}

// cdpRequest is an outgoing protocol command.
type cdpRequest struct {
	ID     int64 `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// cdpResponse is an incoming protocol message. Events carry a method and
// no id; command replies carry the request id.
type cdpResponse struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Result json.RawMessage `json:"result"`
	Error  *cdpError       `json:"error"`
}

type cdpError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *cdpError) Error() string {
	return fmt.Sprintf("devtools error %d: %s", e.Code, e.Message)
}

// call sends one command and reads frames until its reply arrives.
// Protocol events arriving in between are discarded.
func (s *Session) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID

	if deadline, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(deadline)
		_ = s.conn.SetWriteDeadline(deadline)
	}

	if err := s.conn.WriteJSON(cdpRequest{ID: id, Method: method, Params: params}); err != nil {
		return nil, fmt.Errorf("write %s: %w", method, err)
	}

	for {
		var resp cdpResponse
		if err := s.conn.ReadJSON(&resp); err != nil {
			return nil, fmt.Errorf("read %s reply: %w", method, err)
		}
		if resp.ID != id {
			// Event or stale reply, skip
			continue
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return resp.Result, nil
	}
}

// Navigate loads a URL in the attached page.
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.call(ctx, "Page.navigate", map[string]any{"url": url})
	return err
}

// evalResult is the shape of a Runtime.evaluate reply.
type evalResult struct {
	Result struct {
		Type  string          `json:"type"`
		Value json.RawMessage `json:"value"`
	} `json:"result"`
	ExceptionDetails *struct {
		Text string `json:"text"`
	} `json:"exceptionDetails"`
}

// Evaluate runs a JavaScript expression in the page and returns the
// value as its JSON encoding.
func (s *Session) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	raw, err := s.call(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expression,
		"returnByValue": true,
	})
	if err != nil {
		return nil, err
	}

	var res evalResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode evaluate result: %w", err)
	}
	if res.ExceptionDetails != nil {
		return nil, fmt.Errorf("page exception: %s", res.ExceptionDetails.Text)
	}
	return res.Result.Value, nil
}

// EvaluateString runs an expression expected to produce a string.
func (s *Session) EvaluateString(ctx context.Context, expression string) (string, error) {
	value, err := s.Evaluate(ctx, expression)
	if err != nil {
		return "", err
	}
	var str string
	if err := json.Unmarshal(value, &str); err != nil {
		return "", fmt.Errorf("expected string result, got %s", value)
	}
	return str, nil
}

// CurrentURL returns the page's location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	return s.EvaluateString(ctx, "window.location.href")
}

// Close shuts the websocket down.
func (s *Session) Close() error {
	return s.conn.Close()
}
