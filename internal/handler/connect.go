// Package handler implements the gateway's single WebSocket endpoint: it
// upgrades the connection, negotiates a session through the JSON control
// channel, and then pumps GFX/codec events from an RDP engine onto the
// session's surface bank (decoding whichever codec each event carries) and
// forwards the resulting wire/data.go binary messages to the browser,
// while relaying the browser's input events back to the engine.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/arcspan/rdpgfx-gateway/internal/codec"
	"github.com/arcspan/rdpgfx-gateway/internal/config"
	"github.com/arcspan/rdpgfx-gateway/internal/gfx"
	"github.com/arcspan/rdpgfx-gateway/internal/h264queue"
	"github.com/arcspan/rdpgfx-gateway/internal/logging"
	"github.com/arcspan/rdpgfx-gateway/internal/progressive"
	"github.com/arcspan/rdpgfx-gateway/internal/session"
	"github.com/arcspan/rdpgfx-gateway/internal/wire"
)

// EventKind discriminates the GFX/codec events an RDPEngine delivers.
type EventKind int

const (
	EventSurfaceCreate EventKind = iota
	EventSurfaceDelete
	EventMapSurfaceToOutput
	EventStartFrame
	EventEndFrame
	EventWireToSurface
	EventSolidFill
	EventSurfaceToSurface
	EventSurfaceToCache
	EventCacheToSurface
	EventResetGraphics
)

// GFXEvent is one already-parsed GFX PDU handed up from the RDP engine.
// Parsing the RDPEGFX wire format itself (and the surrounding MCS/X.224/
// TLS/CredSSP transport) is the engine's job, not this package's; Payload
// carries the codec-specific bytes WireToSurface events still need
// decoded here before they can be committed to the surface bank.
type GFXEvent struct {
	Kind EventKind

	SurfaceID uint16
	Rect      gfx.Rect
	Width     int32
	Height    int32
	OutX      int32
	OutY      int32

	Codec   gfx.Codec
	Payload []byte
	BPP     int // for CodecUncompressed
	H264    *h264queue.Frame

	Color [4]byte // SolidFill

	SrcID     uint16
	DstPoints []gfx.Point

	Slot int // cache ops

	FrameID uint32
}

// InputKind discriminates browser-originated input forwarded to the
// engine.
type InputKind int

const (
	InputMouse InputKind = iota
	InputKey
	InputKeyCombo
)

// InputEvent carries one decoded client input message to the engine.
type InputEvent struct {
	Kind  InputKind
	Mouse wire.MouseEvent
	Key   wire.KeyEvent
	Combo wire.KeyComboEvent
}

// RDPEngine is the gateway's sole collaborator with the actual RDP
// connection: establishing the transport, negotiating MCS/GCC and the
// RDPEGFX channel, and parsing its PDUs into GFXEvents is assumed handled
// by an RDP client library wired in behind DialRDP. This package only
// consumes the resulting event stream and relays input back.
type RDPEngine interface {
	// Events returns the channel of GFX events for this connection. It is
	// closed when the engine itself disconnects.
	Events() <-chan GFXEvent
	// SendInput delivers one input event to the remote session.
	SendInput(ev InputEvent) error
	// Close tears down the RDP connection.
	Close() error
}

// ErrNoRDPEngine is returned by the default DialRDP hook: this gateway
// ships without a concrete RDP client library wired in, per the scope
// boundary documented in DESIGN.md.
var ErrNoRDPEngine = fmt.Errorf("handler: no RDP engine configured")

// DialRDP establishes an RDPEngine for a connect request. Production
// deployments replace this package variable with an adapter over a real
// RDP client library; it is a variable (not a parameter threaded through
// Connect) so tests can substitute a fake engine without changing the
// HTTP handler's signature.
var DialRDP = func(ctx context.Context, req wire.ConnectRequest) (RDPEngine, error) {
	return nil, ErrNoRDPEngine
}

// Gateway holds the session registry and configuration backing the /connect
// endpoint. One Gateway serves every WebSocket connection.
type Gateway struct {
	Registry *session.Registry
	Cfg      *config.Config

	clear map[string]*codec.ClearDecoder
	mu    sync.Mutex
}

// NewGateway returns a Gateway backed by a session registry sized from
// cfg.RDP.MaxSessions.
func NewGateway(cfg *config.Config) *Gateway {
	capacity := 0
	if cfg != nil {
		capacity = cfg.RDP.MaxSessions
	}
	registry := session.NewRegistry(capacity)
	if cfg != nil {
		registry.SetWorkerPoolSize(cfg.GFX.WorkerPoolSize, cfg.GFX.WorkerQueueSize)
	}
	return &Gateway{
		Registry: registry,
		Cfg:      cfg,
		clear:    make(map[string]*codec.ClearDecoder),
	}
}

// Connect upgrades the HTTP request to a WebSocket and runs the session
// negotiation/pump loop for its lifetime.
func (g *Gateway) Connect(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin != "" && !isAllowedOrigin(origin) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || isAllowedOrigin(o)
		},
	}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()
	g.serve(ws)
}

// serve runs one WebSocket connection's full lifetime: control-channel
// negotiation, then the engine event pump and the input relay pump
// running until either side disconnects.
func (g *Gateway) serve(ws *websocket.Conn) {
	_, raw, err := ws.ReadMessage()
	if err != nil {
		return
	}
	msgType, err := wire.MessageType(raw)
	if err != nil || msgType != wire.MsgConnect {
		g.sendError(ws, "expected connect message")
		return
	}
	var req wire.ConnectRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		g.sendError(ws, "malformed connect message")
		return
	}

	width, height := req.Width, req.Height
	if width <= 0 {
		width = g.defaultWidth()
	}
	if height <= 0 {
		height = g.defaultHeight()
	}

	id := newSessionID()
	sess, err := g.Registry.Create(id, int32(width), int32(height), defaultAudioRingCapacity)
	if err != nil {
		g.sendError(ws, err.Error())
		return
	}
	defer func() {
		sess.Disconnect()
		_ = g.Registry.Remove(id)
		g.mu.Lock()
		delete(g.clear, id)
		g.mu.Unlock()
	}()

	g.mu.Lock()
	g.clear[id] = codec.NewClearDecoder()
	g.mu.Unlock()

	if err := sess.Transition(session.StateConnecting); err != nil {
		g.sendError(ws, err.Error())
		return
	}

	engine, err := DialRDP(context.Background(), req)
	if err != nil {
		_ = sess.Transition(session.StateError)
		g.sendError(ws, err.Error())
		return
	}
	defer engine.Close()

	if err := sess.Transition(session.StateConnected); err != nil {
		g.sendError(ws, err.Error())
		return
	}

	if err := g.sendJSON(ws, wire.NewConnectedMessage(width, height)); err != nil {
		return
	}

	var wsMu sync.Mutex
	done := make(chan struct{})
	go func() {
		defer close(done)
		g.pumpEngineEvents(ws, &wsMu, sess, id, engine)
	}()

	g.pumpClientMessages(ws, &wsMu, sess, engine)
	<-done
}

// pumpEngineEvents drains engine.Events(), applies each one to the
// session's surface bank (decoding its codec payload if it carries one),
// and forwards the corresponding wire binary message to the browser.
func (g *Gateway) pumpEngineEvents(ws *websocket.Conn, wsMu *sync.Mutex, sess *session.Session, id string, engine RDPEngine) {
	for ev := range engine.Events() {
		msg, err := g.applyAndEncode(sess, id, ev)
		if err != nil {
			if classifyGFXError(err) == session.KindProtocol {
				logging.WithSession(id).Warn("gfx protocol error, disconnecting session: %v", err)
				_ = sess.Transition(session.StateError)
				wsMu.Lock()
				g.sendError(ws, err.Error())
				wsMu.Unlock()
				return
			}
			logging.WithSession(id).Warn("gfx event apply failed: %v", err)
			continue
		}
		if msg == nil {
			continue
		}
		wsMu.Lock()
		sendErr := ws.WriteMessage(websocket.BinaryMessage, msg)
		wsMu.Unlock()
		if sendErr != nil {
			return
		}
	}
}

// applyAndEncode commits one GFX event to sess.Bank, decoding its codec
// payload first when it carries one, and returns the wire/data.go message
// the browser-side compositor should receive for it (nil for events that
// have no client-visible counterpart, e.g. ResetGraphics).
func (g *Gateway) applyAndEncode(sess *session.Session, id string, ev GFXEvent) ([]byte, error) {
	switch ev.Kind {
	case EventSurfaceCreate:
		if err := sess.Bank.CreateSurface(ev.SurfaceID, ev.Width, ev.Height); err != nil {
			return nil, err
		}
		return wire.EncodeSurfCreate(wire.SurfCreate{SurfaceID: ev.SurfaceID, Width: uint32(ev.Width), Height: uint32(ev.Height)}), nil

	case EventSurfaceDelete:
		if err := sess.Bank.DeleteSurface(ev.SurfaceID); err != nil {
			return nil, err
		}
		return wire.EncodeSurfDelete(ev.SurfaceID), nil

	case EventMapSurfaceToOutput:
		if err := sess.Bank.MapSurfaceToOutput(ev.SurfaceID, ev.OutX, ev.OutY); err != nil {
			return nil, err
		}
		return nil, nil

	case EventStartFrame:
		return wire.EncodeStartFrame(ev.FrameID), nil

	case EventEndFrame:
		return wire.EncodeEndFrame(ev.FrameID), nil

	case EventResetGraphics:
		sess.Bank.ResizePrimary(ev.Width, ev.Height)
		return nil, nil

	case EventSolidFill:
		if err := sess.Bank.SolidFill(ev.SurfaceID, ev.Rect, ev.Color); err != nil {
			return nil, err
		}
		return wire.EncodeSolidFill(wire.SolidFillMsg{
			SurfaceID: ev.SurfaceID,
			X: int16(ev.Rect.X), Y: int16(ev.Rect.Y), W: uint16(ev.Rect.W), H: uint16(ev.Rect.H),
			B: ev.Color[0], G: ev.Color[1], R: ev.Color[2], A: ev.Color[3],
		}), nil

	case EventSurfaceToSurface:
		if err := sess.Bank.SurfaceToSurface(ev.SrcID, ev.SurfaceID, ev.Rect, ev.DstPoints); err != nil {
			return nil, err
		}
		if len(ev.DstPoints) == 0 {
			return nil, nil
		}
		return wire.EncodeSurfaceToSurface(wire.SurfaceToSurfaceMsg{
			SrcID: ev.SrcID, DstID: ev.SurfaceID,
			SrcX: int16(ev.Rect.X), SrcY: int16(ev.Rect.Y), SrcW: uint16(ev.Rect.W), SrcH: uint16(ev.Rect.H),
			DstX: int16(ev.DstPoints[0].X), DstY: int16(ev.DstPoints[0].Y),
		}), nil

	case EventSurfaceToCache:
		if err := sess.Bank.SurfaceToCache(ev.SurfaceID, ev.Slot, ev.Rect); err != nil {
			return nil, err
		}
		return nil, nil

	case EventCacheToSurface:
		if err := sess.Bank.CacheToSurface(ev.Slot, ev.SurfaceID, ev.DstPoints); err != nil {
			return nil, err
		}
		if len(ev.DstPoints) == 0 {
			return nil, nil
		}
		return wire.EncodeCacheToSurface(wire.CacheToSurfaceMsg{
			Slot: uint16(ev.Slot), DstID: ev.SurfaceID,
			DstX: int16(ev.DstPoints[0].X), DstY: int16(ev.DstPoints[0].Y),
		}), nil

	case EventWireToSurface:
		return g.decodeAndCommit(sess, id, ev)

	default:
		return nil, fmt.Errorf("handler: unknown gfx event kind %d", ev.Kind)
	}
}

// decodeAndCommit performs the per-codec entropy decode (uncompressed,
// Planar, ClearCodec, progressive RemoteFX) that sits upstream of
// gfx.Bank.WireToSurface, per that method's own contract that non-H.264
// payloads arrive pre-decoded. AVC420/AVC444 skip decode here entirely:
// WireToSurface enqueues them onto the session's H.264 queue as-is, and
// the browser's hardware decoder produces pixels from the raw NAL units
// forwarded in the H264 wire message.
func (g *Gateway) decodeAndCommit(sess *session.Session, id string, ev GFXEvent) ([]byte, error) {
	switch ev.Codec {
	case gfx.CodecAVC420, gfx.CodecAVC444:
		if ev.H264 == nil {
			return nil, fmt.Errorf("handler: AVC event missing H264 metadata")
		}
		meta := &gfx.H264Meta{
			FrameID: ev.H264.FrameID, CodecID: ev.H264.CodecID,
			FrameType: ev.H264.Type, Luma: ev.H264.Luma, Chroma: ev.H264.Chroma,
		}
		if err := sess.Bank.WireToSurface(ev.SurfaceID, ev.Rect, ev.Codec, nil, meta); err != nil {
			return nil, err
		}
		return wire.EncodeH264Frame(wire.H264Frame{
			FrameID: ev.H264.FrameID, SurfaceID: ev.SurfaceID, CodecID: uint16(ev.H264.CodecID),
			Type: uint8(ev.H264.Type), X: int16(ev.Rect.X), Y: int16(ev.Rect.Y),
			W: uint16(ev.Rect.W), H: uint16(ev.Rect.H), Nal: ev.H264.Luma, Chroma: ev.H264.Chroma,
		}), nil

	case gfx.CodecUncompressed:
		pixels, err := codec.DecodeUncompressed(ev.Payload, int(ev.Rect.W), int(ev.Rect.H), ev.BPP)
		if err != nil {
			return nil, err
		}
		return g.commitTile(sess, ev.SurfaceID, ev.Rect, gfx.CodecUncompressed, pixels)

	case gfx.CodecPlanar:
		pixels, err := codec.DecodePlanar(ev.Payload, int(ev.Rect.W), int(ev.Rect.H))
		if err != nil {
			return nil, err
		}
		return g.commitTile(sess, ev.SurfaceID, ev.Rect, gfx.CodecPlanar, pixels)

	case gfx.CodecClearCodec:
		g.mu.Lock()
		dec := g.clear[id]
		g.mu.Unlock()
		if dec == nil {
			return nil, fmt.Errorf("handler: no clearcodec decoder for session %s", id)
		}
		pixels, err := dec.Decode(ev.Payload, int(ev.Rect.W), int(ev.Rect.H))
		if err != nil {
			return nil, err
		}
		return g.commitTile(sess, ev.SurfaceID, ev.Rect, gfx.CodecClearCodec, pixels)

	case gfx.CodecProgressive:
		frame, err := sess.Progressive.Process(ev.Payload)
		if err != nil {
			return nil, err
		}
		if frame == nil {
			return nil, nil
		}
		return g.commitProgressiveFrame(sess, ev.SurfaceID, frame)

	default:
		return nil, gfx.ErrUnsupportedCodec
	}
}

// commitTile writes one already-decoded BGRA32 tile into the surface bank
// and returns the TILE message the browser should paint.
func (g *Gateway) commitTile(sess *session.Session, surfaceID uint16, rect gfx.Rect, c gfx.Codec, pixels []byte) ([]byte, error) {
	if err := sess.Bank.WireToSurface(surfaceID, rect, c, pixels, nil); err != nil {
		return nil, err
	}
	return wire.EncodeTile(surfaceID, int16(rect.X), int16(rect.Y), uint16(rect.W), uint16(rect.H), pixels), nil
}

// commitProgressiveFrame writes every tile a progressive Process call
// finished decoding into the surface bank and batches them into one DELT
// message, per the spec's one-RTT-per-frame forwarding rule.
func (g *Gateway) commitProgressiveFrame(sess *session.Session, surfaceID uint16, frame *progressive.Frame) ([]byte, error) {
	if len(frame.DirtyTiles) == 0 {
		return nil, nil
	}
	rects := make([]wire.DeltaRect, 0, len(frame.DirtyTiles))
	tiles := make([][]byte, 0, len(frame.DirtyTiles))
	for _, dt := range frame.DirtyTiles {
		rect := gfx.Rect{X: int32(dt.XIdx) * progressiveTileSize, Y: int32(dt.YIdx) * progressiveTileSize, W: progressiveTileSize, H: progressiveTileSize}
		if err := sess.Bank.WireToSurface(surfaceID, rect, gfx.CodecProgressive, dt.Pixels[:], nil); err != nil {
			return nil, err
		}
		rects = append(rects, wire.DeltaRect{X: rect.X, Y: rect.Y, W: rect.W, H: rect.H, Size: uint32(len(dt.Pixels))})
		tiles = append(tiles, dt.Pixels[:])
	}
	return wire.EncodeDelta(rects, tiles)
}

// pumpClientMessages reads control and input messages from the browser
// until the connection closes or a disconnect message arrives, relaying
// mouse/key/key-combo events to the engine and answering ping/resize
// in place.
func (g *Gateway) pumpClientMessages(ws *websocket.Conn, wsMu *sync.Mutex, sess *session.Session, engine RDPEngine) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		msgType, err := wire.MessageType(raw)
		if err != nil {
			continue
		}
		switch msgType {
		case wire.MsgDisconnect:
			return
		case wire.MsgPing:
			wsMu.Lock()
			_ = g.sendJSON(ws, map[string]string{"type": wire.MsgPong})
			wsMu.Unlock()
		case wire.MsgResize:
			var rz wire.ResizeRequest
			if json.Unmarshal(raw, &rz) == nil && rz.Width > 0 && rz.Height > 0 {
				sess.Bank.ResizePrimary(int32(rz.Width), int32(rz.Height))
			}
		case wire.MsgMouse:
			var m wire.MouseEvent
			if json.Unmarshal(raw, &m) == nil {
				_ = engine.SendInput(InputEvent{Kind: InputMouse, Mouse: m})
			}
		case wire.MsgKey:
			var k wire.KeyEvent
			if json.Unmarshal(raw, &k) == nil {
				_ = engine.SendInput(InputEvent{Kind: InputKey, Key: k})
			}
		case wire.MsgKeyCombo:
			var c wire.KeyComboEvent
			if json.Unmarshal(raw, &c) == nil {
				_ = engine.SendInput(InputEvent{Kind: InputKeyCombo, Combo: c})
			}
		}
	}
}

func (g *Gateway) sendError(ws *websocket.Conn, message string) {
	_ = g.sendJSON(ws, wire.NewErrorMessage(message))
}

func (g *Gateway) sendJSON(ws *websocket.Conn, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, raw)
}

func (g *Gateway) defaultWidth() int {
	if g.Cfg != nil && g.Cfg.RDP.DefaultWidth > 0 {
		return g.Cfg.RDP.DefaultWidth
	}
	return 1024
}

func (g *Gateway) defaultHeight() int {
	if g.Cfg != nil && g.Cfg.RDP.DefaultHeight > 0 {
		return g.Cfg.RDP.DefaultHeight
	}
	return 768
}

// classifyGFXError sorts an applyAndEncode failure into the policy tiers
// spec §7 defines: an unknown codec id that slipped past capability
// negotiation is a protocol error (disconnect), everything else from this
// path is a per-tile/per-frame transient failure the caller should drop
// and continue past.
func classifyGFXError(err error) session.Kind {
	if errors.Is(err, gfx.ErrUnsupportedCodec) {
		return session.KindProtocol
	}
	return session.KindTransient
}

const defaultAudioRingCapacity = 32
const progressiveTileSize = 64

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

// newSessionID mints an opaque connection id used as the session registry's
// lookup key for the lifetime of one WebSocket connection.
func newSessionID() string {
	return uuid.New().String()
}

// isAllowedOrigin reports whether origin is a well-formed absolute URL.
// Allowlist enforcement against the configured origin list happens in the
// HTTP-level CORS middleware (cmd/server); this check only rejects
// malformed or empty Origin headers before the WebSocket handshake.
func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	parsed, err := url.Parse(origin)
	return err == nil && parsed.Scheme != "" && parsed.Host != ""
}

// IsOriginAllowed reports whether origin is well-formed and, when
// allowedOrigins is non-empty and does not contain "*", present in it.
func IsOriginAllowed(origin string, allowedOrigins []string, host string) bool {
	if !isAllowedOrigin(origin) {
		return false
	}
	_ = host
	if len(allowedOrigins) == 0 {
		return true
	}
	for _, o := range allowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
