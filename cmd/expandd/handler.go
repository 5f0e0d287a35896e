package main

import (
	"context"
	"fmt"
	"time"

	"expandd/internal/config"
	"expandd/internal/engine"
	"expandd/internal/history"
	"expandd/internal/ipc"
	"expandd/internal/keysource"
)

// daemonHandler serves control requests against the running engine.
type daemonHandler struct {
	engine     *engine.Engine
	loader     *config.Loader
	hist       *history.Store
	configPath string
	source     keysource.Source
	shutdown   context.CancelFunc
}

func newHandler(eng *engine.Engine, loader *config.Loader, hist *history.Store, configPath string, source keysource.Source, shutdown context.CancelFunc) *daemonHandler {
	return &daemonHandler{
		engine:     eng,
		loader:     loader,
		hist:       hist,
		configPath: configPath,
		source:     source,
		shutdown:   shutdown,
	}
}

func (h *daemonHandler) HandleMessage(_ context.Context, msg *ipc.Message) (*ipc.Message, error) {
	switch msg.Header.Type {
	case ipc.MsgStatusRequest:
		return h.handleStatus(msg)
	case ipc.MsgSetEnabled:
		return h.handleSetEnabled(msg)
	case ipc.MsgReload:
		return h.handleReload(msg)
	case ipc.MsgListSnippets:
		return h.handleListSnippets(msg)
	case ipc.MsgHistory:
		return h.handleHistory(msg)
	case ipc.MsgShutdown:
		h.shutdown()
		return ipc.NewMessage(ipc.MsgShutdown, msg.Header.RequestID, nil), nil
	default:
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrInvalidRequest,
			fmt.Sprintf("unknown message type 0x%04x", uint16(msg.Header.Type))), nil
	}
}

func (h *daemonHandler) handleStatus(msg *ipc.Message) (*ipc.Message, error) {
	stats := h.engine.Stats()

	sourceName := "unavailable"
	if ok, _ := h.source.Available(); ok {
		sourceName = "evdev"
	}

	return ipc.NewResponse(ipc.MsgStatusResponse, msg.Header.RequestID, &ipc.StatusResponse{
		Version:        version,
		StartedAt:      stats.StartedAt,
		Uptime:         time.Since(stats.StartedAt),
		Enabled:        stats.Enabled,
		SnippetCount:   stats.SnippetCount,
		IndexVersion:   stats.IndexVersion,
		ExpansionCount: stats.Expansions,
		Suppressed:     stats.Suppressed,
		KeySource:      sourceName,
		ConfigPath:     h.configPath,
	})
}

func (h *daemonHandler) handleSetEnabled(msg *ipc.Message) (*ipc.Message, error) {
	var req ipc.SetEnabledRequest
	if err := ipc.Decode(msg.Payload, &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	h.engine.SetEnabled(req.Enabled)
	return ipc.NewResponse(ipc.MsgSetEnabledResp, msg.Header.RequestID, &ipc.SetEnabledResponse{
		Enabled: h.engine.Enabled(),
	})
}

func (h *daemonHandler) handleReload(msg *ipc.Message) (*ipc.Message, error) {
	cfg, err := h.loader.Load()
	if err != nil {
		return ipc.NewResponse(ipc.MsgReloadResp, msg.Header.RequestID, &ipc.ReloadResponse{
			Success: false,
			Error:   err.Error(),
		})
	}
	h.engine.ApplyConfig(cfg)
	stats := h.engine.Stats()
	return ipc.NewResponse(ipc.MsgReloadResp, msg.Header.RequestID, &ipc.ReloadResponse{
		Success:      true,
		SnippetCount: stats.SnippetCount,
		IndexVersion: stats.IndexVersion,
	})
}

func (h *daemonHandler) handleListSnippets(msg *ipc.Message) (*ipc.Message, error) {
	snippets := h.engine.Snippets()
	infos := make([]ipc.SnippetInfo, 0, len(snippets))
	for i := range snippets {
		sn := &snippets[i]
		infos = append(infos, ipc.SnippetInfo{
			Trigger:       sn.Trigger,
			Label:         sn.Label,
			Enabled:       sn.IsEnabled(),
			PropagateCase: sn.PropagateCase,
			WordBoundary:  sn.WordBoundary,
			CursorMarker:  sn.CursorMarker,
		})
	}
	return ipc.NewResponse(ipc.MsgListSnippetsResp, msg.Header.RequestID, &ipc.ListSnippetsResponse{
		Snippets: infos,
	})
}

func (h *daemonHandler) handleHistory(msg *ipc.Message) (*ipc.Message, error) {
	if h.hist == nil {
		return ipc.NewErrorMessage(msg.Header.RequestID, ipc.ErrUnavailable, "history is disabled"), nil
	}

	var req ipc.HistoryRequest
	if len(msg.Payload) > 0 {
		if err := ipc.Decode(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode request: %w", err)
		}
	}

	var (
		entries []history.Entry
		err     error
	)
	if req.Trigger != "" {
		entries, err = h.hist.ByTrigger(req.Trigger, req.Limit)
	} else {
		entries, err = h.hist.Recent(req.Limit)
	}
	if err != nil {
		return nil, err
	}

	out := make([]ipc.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ipc.HistoryEntry{
			Timestamp:      e.Timestamp,
			Trigger:        e.Trigger,
			Typed:          e.Typed,
			Label:          e.Label,
			ReplacementLen: e.ReplacementLen,
			Duration:       e.Duration,
		})
	}
	return ipc.NewResponse(ipc.MsgHistoryResp, msg.Header.RequestID, &ipc.HistoryResponse{Entries: out})
}
