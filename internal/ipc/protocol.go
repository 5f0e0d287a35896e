// Package ipc provides the control channel between the expandd daemon and
// client tools over a unix socket.
//
// Framing is a fixed 16-byte binary header followed by a JSON payload. The
// request/response pattern is strictly one response per request, correlated
// by request ID.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Protocol version for compatibility checking.
const (
	ProtocolVersion = 1
	ProtocolMagic   = 0x58495043 // "XIPC"
)

// MessageType identifies the type of IPC message.
type MessageType uint16

const (
	// Control messages (0x00xx)
	MsgPing     MessageType = 0x0001
	MsgPong     MessageType = 0x0002
	MsgError    MessageType = 0x0003
	MsgShutdown MessageType = 0x0004

	// Status and runtime control (0x01xx)
	MsgStatusRequest  MessageType = 0x0100
	MsgStatusResponse MessageType = 0x0101
	MsgSetEnabled     MessageType = 0x0102
	MsgSetEnabledResp MessageType = 0x0103
	MsgReload         MessageType = 0x0104
	MsgReloadResp     MessageType = 0x0105

	// Snippet and history queries (0x02xx)
	MsgListSnippets     MessageType = 0x0200
	MsgListSnippetsResp MessageType = 0x0201
	MsgHistory          MessageType = 0x0202
	MsgHistoryResp      MessageType = 0x0203
)

// Header is the fixed-size message header (16 bytes).
type Header struct {
	Magic     uint32
	Version   uint8
	Flags     uint8
	Type      MessageType
	RequestID uint32
	Length    uint32 // payload length, header excluded
}

// HeaderSize is the size of the header in bytes.
const HeaderSize = 16

// maxPayload bounds a single message; history responses are the largest
// realistic payload and stay far below this.
const maxPayload = 16 * 1024 * 1024

// Message wraps a header and payload.
type Message struct {
	Header  Header
	Payload []byte
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, requestID uint32, payload []byte) *Message {
	return &Message{
		Header: Header{
			Magic:     ProtocolMagic,
			Version:   ProtocolVersion,
			Type:      msgType,
			RequestID: requestID,
			Length:    uint32(len(payload)),
		},
		Payload: payload,
	}
}

// Write writes the header to a writer.
func (h *Header) Write(w io.Writer) error {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.RequestID)
	binary.BigEndian.PutUint32(buf[12:16], h.Length)
	_, err := w.Write(buf)
	return err
}

// ReadHeader reads a header from a reader.
func ReadHeader(r io.Reader) (*Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	h := &Header{
		Magic:     binary.BigEndian.Uint32(buf[0:4]),
		Version:   buf[4],
		Flags:     buf[5],
		Type:      MessageType(binary.BigEndian.Uint16(buf[6:8])),
		RequestID: binary.BigEndian.Uint32(buf[8:12]),
		Length:    binary.BigEndian.Uint32(buf[12:16]),
	}

	if h.Magic != ProtocolMagic {
		return nil, fmt.Errorf("invalid magic number: %x", h.Magic)
	}
	if h.Version > ProtocolVersion {
		return nil, fmt.Errorf("unsupported protocol version: %d", h.Version)
	}
	return h, nil
}

// Write writes the message to a writer.
func (m *Message) Write(w io.Writer) error {
	if err := m.Header.Write(w); err != nil {
		return err
	}
	if len(m.Payload) > 0 {
		_, err := w.Write(m.Payload)
		return err
	}
	return nil
}

// ReadMessage reads a complete message from a reader.
func ReadMessage(r io.Reader) (*Message, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}

	m := &Message{Header: *h}
	if h.Length > 0 {
		if h.Length > maxPayload {
			return nil, fmt.Errorf("payload too large: %d bytes", h.Length)
		}
		m.Payload = make([]byte, h.Length)
		if _, err := io.ReadFull(r, m.Payload); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Request/response payloads.

// ErrorResponse is sent when an operation fails.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	ErrUnknown        = 1
	ErrInvalidRequest = 2
	ErrNotFound       = 3
	ErrInternalError  = 4
	ErrUnavailable    = 5
)

// StatusResponse contains daemon status.
type StatusResponse struct {
	Version        string        `json:"version"`
	StartedAt      time.Time     `json:"started_at"`
	Uptime         time.Duration `json:"uptime"`
	Enabled        bool          `json:"enabled"`
	SnippetCount   int           `json:"snippet_count"`
	IndexVersion   uint64        `json:"index_version"`
	ExpansionCount uint64        `json:"expansion_count"`
	Suppressed     uint64        `json:"suppressed_events"`
	KeySource      string        `json:"key_source"`
	ConfigPath     string        `json:"config_path"`
}

// SetEnabledRequest toggles expansion at runtime without touching the
// config file.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// SetEnabledResponse acknowledges the toggle.
type SetEnabledResponse struct {
	Enabled bool `json:"enabled"`
}

// ReloadResponse reports the outcome of a forced config reload.
type ReloadResponse struct {
	Success      bool   `json:"success"`
	SnippetCount int    `json:"snippet_count"`
	IndexVersion uint64 `json:"index_version"`
	Error        string `json:"error,omitempty"`
}

// SnippetInfo describes one loaded snippet.
type SnippetInfo struct {
	Trigger       string `json:"trigger"`
	Label         string `json:"label,omitempty"`
	Enabled       bool   `json:"enabled"`
	PropagateCase bool   `json:"propagate_case,omitempty"`
	WordBoundary  bool   `json:"word_boundary,omitempty"`
	CursorMarker  bool   `json:"cursor_marker,omitempty"`
}

// ListSnippetsResponse contains the loaded snippet list in declaration
// order.
type ListSnippetsResponse struct {
	Snippets []SnippetInfo `json:"snippets"`
}

// HistoryRequest queries recorded expansions.
type HistoryRequest struct {
	Limit   int    `json:"limit,omitempty"`
	Trigger string `json:"trigger,omitempty"`
}

// HistoryEntry is one recorded expansion.
type HistoryEntry struct {
	Timestamp      time.Time     `json:"timestamp"`
	Trigger        string        `json:"trigger"`
	Typed          string        `json:"typed"`
	Label          string        `json:"label,omitempty"`
	ReplacementLen int           `json:"replacement_len"`
	Duration       time.Duration `json:"duration"`
}

// HistoryResponse contains history entries, most recent first.
type HistoryResponse struct {
	Entries []HistoryEntry `json:"entries"`
}

// Encode encodes a payload to JSON bytes.
func Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Decode decodes JSON bytes to a payload.
func Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(requestID uint32, code int, message string) *Message {
	payload, _ := Encode(&ErrorResponse{Code: code, Message: message})
	return NewMessage(MsgError, requestID, payload)
}

// NewResponse creates a response message.
func NewResponse(msgType MessageType, requestID uint32, v any) (*Message, error) {
	payload, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return NewMessage(msgType, requestID, payload), nil
}
