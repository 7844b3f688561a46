//go:build js && wasm

// Package main provides the WebAssembly bindings for the browser-side
// compositor. This file contains only JavaScript glue code - all dispatch,
// clipping, and decode logic lives in internal/compositor; main.go here only
// marshals js.Value arguments into calls on that package and back.
package main

import (
	"syscall/js"

	"github.com/arcspan/rdpgfx-gateway/internal/compositor"
)

// jsDrawable adapts a JS canvas-backed drawable (anything exposing
// `resize(w, h)` and `blit(x, y, w, h, Uint8Array)` methods) to
// compositor.Drawable. The actual pixel compositing onto a canvas (or
// OffscreenCanvas, when the drawable has been transferred to a worker)
// happens on the JS side; this type only forwards the calls.
type jsDrawable struct {
	target js.Value
}

func (d jsDrawable) Resize(width, height int32) {
	d.target.Call("resize", width, height)
}

func (d jsDrawable) Blit(rect compositor.Rect, bgra []byte) error {
	buf := js.Global().Get("Uint8Array").New(len(bgra))
	js.CopyBytesToJS(buf, bgra)
	d.target.Call("blit", rect.X, rect.Y, rect.W, rect.H, buf)
	return nil
}

var comp *compositor.Compositor

// jsAttachDrawable wires a JS drawable object (satisfying resize/blit) as
// the compositor's paint target. Must be called once before any dispatch.
func jsAttachDrawable(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return false
	}
	comp = compositor.New(jsDrawable{target: args[0]})
	return true
}

// jsDispatch hands one inbound tagged binary message (a Uint8Array) to the
// compositor's tag router.
func jsDispatch(this js.Value, args []js.Value) interface{} {
	if comp == nil || len(args) < 1 {
		return false
	}
	raw := copyJSBytes(args[0])
	if err := comp.Dispatch(raw); err != nil {
		return err.Error()
	}
	return true
}

// jsResize notifies the compositor (and its drawable) that the session's
// logical surface size changed.
func jsResize(this js.Value, args []js.Value) interface{} {
	if comp == nil || len(args) < 2 {
		return false
	}
	if err := comp.Resize(int32(args[0].Int()), int32(args[1].Int())); err != nil {
		return err.Error()
	}
	return true
}

// jsReportH264DecodeError flags the decode-error state so non-IDR frames
// are discarded until the next IDR, per the platform decoder's own error
// callback.
func jsReportH264DecodeError(this js.Value, args []js.Value) interface{} {
	if comp == nil {
		return false
	}
	comp.ReportH264DecodeError()
	return true
}

// jsPopPendingH264Blit pops the destination rect pushed for the oldest
// outstanding H.264 chunk, for the platform decoder's output callback to
// use once it has produced a decoded frame.
func jsPopPendingH264Blit(this js.Value, args []js.Value) interface{} {
	if comp == nil {
		return nil
	}
	rect, ok := comp.PopPendingH264Blit()
	if !ok {
		return nil
	}
	return []interface{}{rect.X, rect.Y, rect.W, rect.H}
}

func copyJSBytes(arr js.Value) []byte {
	n := arr.Get("length").Int()
	buf := make([]byte, n)
	js.CopyBytesToGo(buf, arr)
	return buf
}

func main() {
	c := make(chan struct{})

	js.Global().Set("goCompositor", js.ValueOf(map[string]interface{}{
		"attachDrawable":        js.FuncOf(jsAttachDrawable),
		"dispatch":              js.FuncOf(jsDispatch),
		"resize":                js.FuncOf(jsResize),
		"reportH264DecodeError": js.FuncOf(jsReportH264DecodeError),
		"popPendingH264Blit":    js.FuncOf(jsPopPendingH264Blit),
	}))

	println("Go WASM compositor module loaded")

	<-c
}
