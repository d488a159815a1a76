package sim

import (
	"fmt"
	"log/slog"
)

// Backend is the GPU side of the pipeline: one uniform block, one
// full-screen triangle.
type Backend interface {
	// Resize reconfigures the drawable to w×h pixels.
	Resize(w, h int)
	// UploadUniforms copies a packed FrameUniforms block to the GPU.
	UploadUniforms(block []byte)
	// DrawFullscreenTriangle issues a single 3-vertex draw with no vertex
	// buffer bound.
	DrawFullscreenTriangle()
	Dispose()
}

// Surface reports the current drawable size in pixels.
type Surface interface {
	FramebufferSize() (w, h int)
}

const fullscreenTriangleVertices = 3

type RendererStats struct {
	Frames, DrawCalls, Vertices int
	BytesUploaded               int
	Resizes                     int
}

func (rs RendererStats) String() string {
	return fmt.Sprintf("%d frames, %d draw calls (%d vertices), %.2f KB uploaded, %d resizes",
		rs.Frames, rs.DrawCalls, rs.Vertices, float64(rs.BytesUploaded)/1024, rs.Resizes)
}

func (rs RendererStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("frames", rs.Frames),
		slog.Int("draw_calls", rs.DrawCalls),
		slog.Int("vertices", rs.Vertices),
		slog.Int("bytes_uploaded", rs.BytesUploaded),
		slog.Int("resizes", rs.Resizes))
}

// Renderer packs the per-frame uniforms and drives the backend. It is used
// from the tick goroutine only.
type Renderer struct {
	backend Backend
	surface Surface

	width, height int
	aspect        float64

	block    [FrameUniformsSize]byte
	last     FrameUniforms
	stats    RendererStats
	disposed bool
}

func NewRenderer(backend Backend, surface Surface) *Renderer {
	return &Renderer{
		backend: backend,
		surface: surface,
		aspect:  1,
	}
}

// Aspect is the width/height ratio used for the most recent frame.
func (r *Renderer) Aspect() float64 { return r.aspect }

func (r *Renderer) Stats() RendererStats { return r.stats }

// Uniforms returns the block uploaded by the most recent Render.
func (r *Renderer) Uniforms() FrameUniforms { return r.last }

// checkResize propagates a surface size change to the backend. A zero
// height keeps the previous aspect ratio.
func (r *Renderer) checkResize() {
	if r.surface == nil {
		return
	}
	w, h := r.surface.FramebufferSize()
	if w == r.width && h == r.height {
		return
	}
	r.width, r.height = w, h
	r.backend.Resize(w, h)
	r.stats.Resizes++
	if h > 0 {
		r.aspect = float64(w) / float64(h)
	}
}

// Render draws one frame. Size changes are applied before the aspect ratio
// is packed so that the frame never renders stretched. Render after Dispose
// is a no-op.
func (r *Renderer) Render(cam CameraState, ac AircraftState, time float64) {
	if r.disposed {
		return
	}
	r.checkResize()

	r.last = NewFrameUniforms(cam, ac, time, r.aspect)
	r.last.MarshalTo(r.block[:])
	r.backend.UploadUniforms(r.block[:])
	r.backend.DrawFullscreenTriangle()

	r.stats.Frames++
	r.stats.DrawCalls++
	r.stats.Vertices += fullscreenTriangleVertices
	r.stats.BytesUploaded += len(r.block)
}

// Dispose releases the backend. Calling it more than once is harmless.
func (r *Renderer) Dispose() {
	if r.disposed {
		return
	}
	r.disposed = true
	r.backend.Dispose()
}

///////////////////////////////////////////////////////////////////////////
// NullBackend

// NullBackend is a Backend that keeps everything in memory. It is used for
// headless runs and tests.
type NullBackend struct {
	Width, Height int
	Resizes       int
	Uploads       int
	Draws         int
	Vertices      int
	Disposed      int
	LastBlock     []byte
}

func (b *NullBackend) Resize(w, h int) {
	b.Width, b.Height = w, h
	b.Resizes++
}

func (b *NullBackend) UploadUniforms(block []byte) {
	b.LastBlock = append(b.LastBlock[:0], block...)
	b.Uploads++
}

func (b *NullBackend) DrawFullscreenTriangle() {
	b.Draws++
	b.Vertices += fullscreenTriangleVertices
}

func (b *NullBackend) Dispose() { b.Disposed++ }

// FixedSurface is a Surface of constant size.
type FixedSurface struct{ W, H int }

func (s FixedSurface) FramebufferSize() (int, int) { return s.W, s.H }
