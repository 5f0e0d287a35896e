package ipc

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Common client errors.
var (
	ErrNotConnected     = errors.New("not connected to daemon")
	ErrDaemonNotRunning = errors.New("daemon is not running")
)

// Client is a synchronous control client. One request is in flight at a
// time; daemon handlers are fast so pipelining buys nothing here.
type Client struct {
	socketPath string
	timeout    time.Duration

	mu        sync.Mutex
	conn      net.Conn
	nextReqID atomic.Uint32
}

// NewClient creates a client for the daemon socket at the given path.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

// Connect dials the daemon socket.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}
	conn, err := net.DialTimeout("unix", c.socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDaemonNotRunning, err)
	}
	c.conn = conn
	return nil
}

// Close disconnects from the daemon.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// roundTrip sends one request and waits for the matching response.
func (c *Client) roundTrip(msgType MessageType, req any) (*Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	var payload []byte
	if req != nil {
		var err error
		payload, err = Encode(req)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
	}

	reqID := c.nextReqID.Add(1)
	msg := NewMessage(msgType, reqID, payload)

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if err := msg.Write(c.conn); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	resp, err := ReadMessage(c.conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Header.RequestID != reqID {
		return nil, fmt.Errorf("response id %d does not match request %d", resp.Header.RequestID, reqID)
	}
	if resp.Header.Type == MsgError {
		var e ErrorResponse
		if err := Decode(resp.Payload, &e); err != nil {
			return nil, errors.New("daemon returned an unreadable error")
		}
		return nil, fmt.Errorf("daemon error %d: %s", e.Code, e.Message)
	}
	return resp, nil
}

// Ping checks daemon liveness.
func (c *Client) Ping() error {
	resp, err := c.roundTrip(MsgPing, nil)
	if err != nil {
		return err
	}
	if resp.Header.Type != MsgPong {
		return fmt.Errorf("unexpected response type 0x%04x", uint16(resp.Header.Type))
	}
	return nil
}

// Status fetches daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.roundTrip(MsgStatusRequest, nil)
	if err != nil {
		return nil, err
	}
	var status StatusResponse
	if err := Decode(resp.Payload, &status); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &status, nil
}

// SetEnabled toggles expansion at runtime.
func (c *Client) SetEnabled(enabled bool) (*SetEnabledResponse, error) {
	resp, err := c.roundTrip(MsgSetEnabled, &SetEnabledRequest{Enabled: enabled})
	if err != nil {
		return nil, err
	}
	var ack SetEnabledResponse
	if err := Decode(resp.Payload, &ack); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ack, nil
}

// Reload forces a configuration reload.
func (c *Client) Reload() (*ReloadResponse, error) {
	resp, err := c.roundTrip(MsgReload, nil)
	if err != nil {
		return nil, err
	}
	var result ReloadResponse
	if err := Decode(resp.Payload, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &result, nil
}

// ListSnippets fetches the loaded snippet list.
func (c *Client) ListSnippets() (*ListSnippetsResponse, error) {
	resp, err := c.roundTrip(MsgListSnippets, nil)
	if err != nil {
		return nil, err
	}
	var list ListSnippetsResponse
	if err := Decode(resp.Payload, &list); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &list, nil
}

// History fetches recorded expansions.
func (c *Client) History(req *HistoryRequest) (*HistoryResponse, error) {
	resp, err := c.roundTrip(MsgHistory, req)
	if err != nil {
		return nil, err
	}
	var hist HistoryResponse
	if err := Decode(resp.Payload, &hist); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &hist, nil
}

// Shutdown asks the daemon to exit.
func (c *Client) Shutdown() error {
	_, err := c.roundTrip(MsgShutdown, nil)
	return err
}
