// Package gpu implements sim.Backend on OpenGL 4.1 core: a single SDF
// raymarching program drawn as one full-screen triangle.
package gpu

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/mozabes/Webhawk/internal/log"
	"github.com/mozabes/Webhawk/internal/sim"
)

var (
	//go:embed shaders/fullscreen.vert
	vertexShaderSource string
	//go:embed shaders/sdf.frag
	fragmentShaderSource string
)

var (
	ErrShaderCompile = errors.New("shader compilation failed")
	ErrProgramLink   = errors.New("shader program link failed")
)

const (
	frameBlockName = "Frame"
	frameBinding   = 0
)

// Backend owns the GL objects of the pipeline. All methods must be called
// on the thread that holds the GL context.
type Backend struct {
	program uint32
	vao     uint32
	ubo     uint32

	lg       *log.Logger
	disposed bool
}

var _ sim.Backend = (*Backend)(nil)

// Init loads the GL function pointers for the current context.
func Init(lg *log.Logger) error {
	if err := gl.Init(); err != nil {
		return fmt.Errorf("initializing OpenGL: %w", err)
	}
	lg.Info("OpenGL",
		slog.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		slog.String("glsl", gl.GoStr(gl.GetString(gl.SHADING_LANGUAGE_VERSION))),
		slog.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))))
	return nil
}

// NewBackend compiles the SDF program and allocates the uniform buffer.
// Init must have been called.
func NewBackend(lg *log.Logger) (*Backend, error) {
	program, err := linkProgram(vertexShaderSource, fragmentShaderSource)
	if err != nil {
		return nil, err
	}

	idx := gl.GetUniformBlockIndex(program, gl.Str(frameBlockName+"\x00"))
	if idx == gl.INVALID_INDEX {
		gl.DeleteProgram(program)
		return nil, fmt.Errorf("%w: uniform block %q not found", ErrProgramLink, frameBlockName)
	}
	gl.UniformBlockBinding(program, idx, frameBinding)

	var size int32
	gl.GetActiveUniformBlockiv(program, idx, gl.UNIFORM_BLOCK_DATA_SIZE, &size)
	if err := checkBlockSize(size); err != nil {
		gl.DeleteProgram(program)
		return nil, err
	}

	b := &Backend{program: program, lg: lg}

	// Core profile requires a bound VAO even with no attributes.
	gl.GenVertexArrays(1, &b.vao)

	gl.GenBuffers(1, &b.ubo)
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ubo)
	gl.BufferData(gl.UNIFORM_BUFFER, sim.FrameUniformsSize, nil, gl.DYNAMIC_DRAW)
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)

	gl.Disable(gl.DEPTH_TEST)
	gl.Disable(gl.CULL_FACE)
	gl.ClearColor(0, 0, 0, 1)

	lg.Info("GPU backend ready", slog.Int("uniform_bytes", int(size)))
	return b, nil
}

func (b *Backend) Resize(w, h int) {
	gl.Viewport(0, 0, int32(w), int32(h))
	b.lg.Debugf("viewport resized to %dx%d", w, h)
}

func (b *Backend) UploadUniforms(block []byte) {
	if len(block) == 0 {
		return
	}
	gl.BindBuffer(gl.UNIFORM_BUFFER, b.ubo)
	gl.BufferSubData(gl.UNIFORM_BUFFER, 0, len(block), gl.Ptr(block))
	gl.BindBuffer(gl.UNIFORM_BUFFER, 0)
}

func (b *Backend) DrawFullscreenTriangle() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
	gl.UseProgram(b.program)
	gl.BindBufferBase(gl.UNIFORM_BUFFER, frameBinding, b.ubo)
	gl.BindVertexArray(b.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
}

func (b *Backend) Dispose() {
	if b.disposed {
		return
	}
	b.disposed = true
	gl.DeleteBuffers(1, &b.ubo)
	gl.DeleteVertexArrays(1, &b.vao)
	gl.DeleteProgram(b.program)
	b.lg.Info("GPU backend disposed")
}

// checkBlockSize rejects a driver layout of the Frame block that does not
// match the packed FrameUniforms.
func checkBlockSize(size int32) error {
	if size != sim.FrameUniformsSize {
		return fmt.Errorf("%w: uniform block %s is %d bytes, expected %d",
			ErrProgramLink, frameBlockName, size, sim.FrameUniformsSize)
	}
	return nil
}

func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vs, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		info := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(info))
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("%w: %s", ErrProgramLink, strings.TrimRight(info, "\x00"))
	}
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	cSources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, cSources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		info := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(info))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("%w: %s shader: %s", ErrShaderCompile, shaderKind(shaderType),
			strings.TrimRight(info, "\x00"))
	}
	return shader, nil
}

func shaderKind(t uint32) string {
	switch t {
	case gl.VERTEX_SHADER:
		return "vertex"
	case gl.FRAGMENT_SHADER:
		return "fragment"
	}
	return fmt.Sprintf("0x%x", t)
}
