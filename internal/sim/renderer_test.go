package sim_test

import (
	"encoding/binary"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mozabes/Webhawk/internal/sim"
)

// recordingBackend logs the order of backend calls.
type recordingBackend struct {
	sim.NullBackend
	calls  []string
	aspect []float32
}

func (b *recordingBackend) Resize(w, h int) {
	b.calls = append(b.calls, "resize")
	b.NullBackend.Resize(w, h)
}

func (b *recordingBackend) UploadUniforms(block []byte) {
	b.calls = append(b.calls, "upload")
	b.aspect = append(b.aspect, decodeAspect(block))
	b.NullBackend.UploadUniforms(block)
}

func (b *recordingBackend) DrawFullscreenTriangle() {
	b.calls = append(b.calls, "draw")
	b.NullBackend.DrawFullscreenTriangle()
}

func (b *recordingBackend) Dispose() {
	b.calls = append(b.calls, "dispose")
	b.NullBackend.Dispose()
}

// decodeAspect reads the aspect ratio at offset 44 of a packed block.
func decodeAspect(block []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(block[44:]))
}

// resizableSurface is a Surface whose size the test changes between frames.
type resizableSurface struct{ w, h int }

func (s *resizableSurface) FramebufferSize() (int, int) { return s.w, s.h }

func renderFrame(r *sim.Renderer) {
	ac := sim.DefaultFlightModel().NewAircraft()
	r.Render(sim.DefaultChaseCamera().Initial(ac), ac, 0)
}

func TestRendererInitialAspect(t *testing.T) {
	r := sim.NewRenderer(&sim.NullBackend{}, nil)
	assert.Equal(t, 1.0, r.Aspect())

	renderFrame(r)
	assert.Equal(t, 1.0, r.Aspect())
	assert.Equal(t, float32(1), r.Uniforms().AspectRatio)
}

func TestRendererOneDrawPerFrame(t *testing.T) {
	b := &sim.NullBackend{}
	r := sim.NewRenderer(b, sim.FixedSurface{W: 1280, H: 720})

	for i := 0; i < 5; i++ {
		renderFrame(r)
	}
	assert.Equal(t, 5, b.Draws)
	assert.Equal(t, 15, b.Vertices)
	assert.Equal(t, 5, b.Uploads)
	assert.Equal(t, 1, b.Resizes)
	assert.Len(t, b.LastBlock, sim.FrameUniformsSize)

	assert.Equal(t, sim.RendererStats{
		Frames:        5,
		DrawCalls:     5,
		Vertices:      15,
		BytesUploaded: 5 * sim.FrameUniformsSize,
		Resizes:       1,
	}, r.Stats())
}

func TestRendererUploadsMarshaledUniforms(t *testing.T) {
	b := &sim.NullBackend{}
	r := sim.NewRenderer(b, sim.FixedSurface{W: 800, H: 400})

	cam, ac := goldenFrame()
	r.Render(cam, ac, 7.5)

	u := r.Uniforms()
	assert.Equal(t, float32(7.5), u.Time)
	assert.Equal(t, float32(2), u.AspectRatio)
	assert.Equal(t, u.Marshal(), b.LastBlock)
}

func TestRendererResizeBeforeUpload(t *testing.T) {
	b := &recordingBackend{}
	s := &resizableSurface{w: 800, h: 600}
	r := sim.NewRenderer(b, s)

	renderFrame(r)
	s.w, s.h = 1600, 800
	renderFrame(r)
	renderFrame(r)

	assert.Equal(t, []string{
		"resize", "upload", "draw",
		"resize", "upload", "draw",
		"upload", "draw",
	}, b.calls)
	w, h := 800, 600
	assert.Equal(t, []float32{float32(float64(w) / float64(h)), 2, 2}, b.aspect)
	assert.Equal(t, 1600, b.Width)
	assert.Equal(t, 800, b.Height)
	assert.Equal(t, 2, r.Stats().Resizes)
}

func TestRendererZeroHeightKeepsAspect(t *testing.T) {
	b := &sim.NullBackend{}
	s := &resizableSurface{w: 1000, h: 500}
	r := sim.NewRenderer(b, s)

	renderFrame(r)
	require.Equal(t, 2.0, r.Aspect())

	// Minimized.
	s.w, s.h = 0, 0
	renderFrame(r)
	assert.Equal(t, 2.0, r.Aspect())
	assert.Equal(t, 2, b.Resizes)
	assert.Equal(t, 2, b.Draws)

	s.w, s.h = 300, 0
	renderFrame(r)
	assert.Equal(t, 2.0, r.Aspect())

	s.w, s.h = 900, 300
	renderFrame(r)
	assert.Equal(t, 3.0, r.Aspect())
}

func TestRendererDispose(t *testing.T) {
	b := &recordingBackend{}
	r := sim.NewRenderer(b, sim.FixedSurface{W: 10, H: 10})

	renderFrame(r)
	r.Dispose()
	r.Dispose()
	renderFrame(r)

	assert.Equal(t, []string{"resize", "upload", "draw", "dispose"}, b.calls)
	assert.Equal(t, 1, b.Disposed)
	assert.Equal(t, 1, r.Stats().Frames)
}

func TestRendererStatsFormatting(t *testing.T) {
	rs := sim.RendererStats{Frames: 2, DrawCalls: 2, Vertices: 6, BytesUploaded: 2048, Resizes: 1}
	assert.Equal(t, "2 frames, 2 draw calls (6 vertices), 2.00 KB uploaded, 1 resizes", rs.String())

	v := rs.LogValue()
	require.Equal(t, slog.KindGroup, v.Kind())
	attrs := map[string]int64{}
	for _, a := range v.Group() {
		attrs[a.Key] = a.Value.Int64()
	}
	assert.Equal(t, map[string]int64{
		"frames": 2, "draw_calls": 2, "vertices": 6, "bytes_uploaded": 2048, "resizes": 1,
	}, attrs)
}
