// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package driver

// GPU creates the objects that a compiled frame graph is
// made of and runs the command buffers recorded from it.
// Driver.Open returns one.
type GPU interface {
	// Driver returns the Driver that opened the GPU.
	Driver() Driver

	// Commit submits cb for execution, in order, as if
	// it were a single command buffer.
	// The outcome is sent to ch once every command has
	// executed. Until then, no element of cb may be
	// recorded again.
	// A non-nil return means that nothing was submitted
	// and nothing will be sent to ch.
	Commit(cb []CmdBuffer, ch chan<- error) error

	NewCmdBuffer() (CmdBuffer, error)

	// NewRenderPass creates a render pass with the given
	// attachments. Each subpass refers to attachments by
	// index in att.
	NewRenderPass(att []Attachment, sub []Subpass) (RenderPass, error)

	NewShaderCode(data []byte) (ShaderCode, error)

	// NewDescHeap creates a descriptor heap with no copies.
	// DescHeap.New must be called before the heap is used.
	NewDescHeap(ds []Descriptor) (DescHeap, error)

	// NewDescTable creates a descriptor table whose heap
	// i is dh[i].
	NewDescTable(dh []DescHeap) (DescTable, error)

	// NewPipeline creates a graphics pipeline from a
	// *GraphState or a compute pipeline from a *CompState.
	NewPipeline(state any) (Pipeline, error)

	// NewBuffer creates a buffer of at least size bytes.
	// Parameter buffers are host visible so they can be
	// written through Bytes.
	NewBuffer(size int64, visible bool, usg Usage) (Buffer, error)

	// NewImage creates an image. Transient frame graph
	// resources are created with URenderTarget and/or
	// UShaderSample.
	NewImage(pf PixelFmt, size Dim3D, layers, levels, samples int, usg Usage) (Image, error)

	// Limits returns limits that stay the same for as
	// long as the GPU is open.
	Limits() Limits
}

// Destroyer is implemented by every GPU object.
// Destroy releases memory that the garbage collector
// does not manage. An object must outlive the objects
// created from it (views of an image, framebuffers of
// a render pass).
type Destroyer interface {
	Destroy()
}

// Buffer is a fixed-size GPU buffer.
type Buffer interface {
	Destroyer

	Visible() bool

	// Bytes returns the buffer's memory, Cap bytes long,
	// or nil if the buffer is not host visible.
	Bytes() []byte

	// Cap returns the buffer size in bytes. It may exceed
	// the size given to NewBuffer.
	Cap() int64
}

// Image is a GPU image.
// Frame graph passes never use an Image directly, only
// views of it.
type Image interface {
	Destroyer

	// NewView creates a view of a range of layers and
	// levels.
	NewView(typ ViewType, layer, layers, level, levels int) (ImageView, error)
}

// ImageView is a typed view of an Image.
// Attachments, bindless textures and external resources
// are all image views.
type ImageView interface {
	Destroyer

	Image() Image
}

// ViewType is the type of an image view.
type ViewType int

// View types.
const (
	IView1D ViewType = iota
	IView2D
	IView3D
	IViewCube
	IView1DArray
	IView2DArray
	IViewCubeArray
	IView2DMS
	IView2DMSArray
)

// Dim3D is a size in pixels.
type Dim3D struct {
	Width, Height, Depth int
}

// PixelFmt is the format of an image.
type PixelFmt int

// Pixel formats.
const (
	FInvalid PixelFmt = iota

	RGBA8Unorm
	RGBA8SRGB
	BGRA8Unorm
	BGRA8SRGB
	RG8Unorm
	R8Unorm

	RGBA16Float
	RG16Float
	R16Float

	RGBA32Float
	RG32Float
	R32Float

	D16Unorm
	D32Float
	S8Uint
	D24UnormS8Uint
	D32FloatS8Uint
)

// IsDS reports whether f has a depth or stencil aspect,
// in which case it can only be a depth attachment.
func (f PixelFmt) IsDS() bool { return f >= D16Unorm && f <= D32FloatS8Uint }

// Size returns the number of bytes per pixel, or 0 for
// FInvalid.
func (f PixelFmt) Size() int {
	switch f {
	case R8Unorm, S8Uint:
		return 1
	case RG8Unorm, R16Float, D16Unorm:
		return 2
	case RGBA8Unorm, RGBA8SRGB, BGRA8Unorm, BGRA8SRGB, RG16Float, R32Float, D32Float, D24UnormS8Uint:
		return 4
	case RGBA16Float, RG32Float, D32FloatS8Uint:
		return 8
	case RGBA32Float:
		return 16
	}
	return 0
}

// Usage is a mask of the ways a Buffer or Image may be
// used.
type Usage int

// Usage flags.
const (
	UShaderRead Usage = 1 << iota
	UShaderWrite
	// Buffers only.
	UShaderConst
	// Images only.
	UShaderSample
	// Images only.
	URenderTarget
	UCopySrc
	UCopyDst

	// Every flag above.
	UGeneric Usage = 1<<iota - 1
)

// CmdBuffer records commands for Commit.
//
// Commands are grouped in blocks: a render pass
// (BeginPass/EndPass) holds Draw commands, compute work
// (BeginWork/EndWork) holds Dispatch commands and a
// blit (BeginBlit/EndBlit) holds copies. Set* commands
// apply to the block they are recorded in. Barrier and
// Transition are recorded between blocks.
// The whole recording goes between Begin and End.
type CmdBuffer interface {
	Destroyer

	Begin() error

	// IsRecording reports whether Begin was called and
	// neither End nor Reset was called since.
	IsRecording() bool

	// BeginPass begins a render pass on fb.
	// clear has one element per attachment; only the
	// ones whose load op is LClear are used.
	BeginPass(pass RenderPass, fb Framebuf, clear []ClearValue)
	EndPass()

	// BeginWork begins compute work. If wait is set,
	// it waits for every command recorded before it.
	BeginWork(wait bool)
	EndWork()

	// BeginBlit is like BeginWork, for copies.
	BeginBlit(wait bool)
	EndBlit()

	// SetPipeline binds pl. Graphics and compute
	// pipelines have separate bind points.
	SetPipeline(pl Pipeline)

	SetViewport(vp []Viewport)
	SetScissor(sciss []Scissor)

	// SetDescTableGraph binds copies of the heaps of
	// table, starting at heap start, for graphics
	// pipelines. heapCopy[i] selects the copy of heap
	// start+i, which is how per-slot copies are chosen.
	SetDescTableGraph(table DescTable, start int, heapCopy []int)

	// SetDescTableComp is like SetDescTableGraph, for
	// compute pipelines.
	SetDescTableComp(table DescTable, start int, heapCopy []int)

	// SetDescOffsetGraph sets the byte offset applied to
	// the DDynBuffer descriptors of heap start+i to off[i],
	// for graphics pipelines. This is how a pass selects
	// its parameter range.
	SetDescOffsetGraph(table DescTable, start int, off []int64)

	// SetDescOffsetComp is like SetDescOffsetGraph, for
	// compute pipelines.
	SetDescOffsetComp(table DescTable, start int, off []int64)

	// Draw is only valid in a render pass.
	Draw(vertCount, instCount, baseVert, baseInst int)

	// Dispatch is only valid in compute work.
	Dispatch(grpCountX, grpCountY, grpCountZ int)

	// CopyBuffer is only valid in a blit.
	CopyBuffer(param *BufferCopy)

	// Barrier records global memory barriers.
	Barrier(b []Barrier)

	// Transition records image layout transitions.
	Transition(t []Transition)

	// End finishes recording. If it fails, the command
	// buffer is reset.
	End() error

	// Reset discards the recording.
	Reset() error
}

// BufferCopy is the parameter of CmdBuffer.CopyBuffer.
type BufferCopy struct {
	From    Buffer
	FromOff int64
	To      Buffer
	ToOff   int64
	Size    int64
}

// Sync is a mask of pipeline stages that a barrier
// waits on or blocks.
type Sync int

// Synchronization scopes.
const (
	SVertexShading Sync = 1 << iota
	SFragmentShading
	SComputeShading
	SColorOutput
	SDSOutput
	SDraw
	SResolve
	SCopy
	SAll
	SNone Sync = 0
)

// Access is a mask of memory accesses that a barrier
// makes visible or available.
type Access int

// Memory access scopes.
const (
	AColorRead Access = 1 << iota
	AColorWrite
	ADSRead
	ADSWrite
	AResolveRead
	AResolveWrite
	ACopyRead
	ACopyWrite
	AShaderRead
	AShaderWrite
	AAnyRead
	AAnyWrite
	ANone Access = 0
)

// Layout is the layout of an image view.
// The executor tracks the current layout of every
// resource and transitions it before each use.
type Layout int

// Image layouts.
const (
	LUndefined Layout = iota
	LCommon
	LColorTarget
	LDSTarget
	LDSRead
	LResolveSrc
	LResolveDst
	LCopySrc
	LCopyDst
	LShaderRead
	LPresent
)

// Barrier orders memory accesses between commands.
type Barrier struct {
	SyncBefore   Sync
	SyncAfter    Sync
	AccessBefore Access
	AccessAfter  Access
}

// Transition is a Barrier that also changes the layout
// of IView.
type Transition struct {
	Barrier

	LayoutBefore Layout
	LayoutAfter  Layout
	IView        ImageView
}

// LoadOp is what happens to an attachment's contents
// when a render pass begins.
type LoadOp int

// Load operations.
const (
	LDontCare LoadOp = iota
	LClear
	LLoad
)

// StoreOp is what happens to an attachment's contents
// when a render pass ends.
type StoreOp int

// Store operations.
const (
	SDontCare StoreOp = iota
	SStore
)

// Attachment is a render target of a render pass.
// Index 1 of Load and Store is for the stencil aspect.
type Attachment struct {
	Format  PixelFmt
	Samples int
	Load    [2]LoadOp
	Store   [2]StoreOp
}

// Subpass lists, by index, the attachments that a
// subpass renders to. DS is -1 when there is no depth
// attachment. MSR holds the resolve targets.
type Subpass struct {
	Color []int
	DS    int
	MSR   []int
	Wait  bool
}

// RenderPass is a compiled set of attachments.
// Render passes are cached by the compiler and shared
// by framebuffers of compatible passes.
type RenderPass interface {
	Destroyer

	// NewFB creates a framebuffer whose attachment i is
	// iv[i]. Framebuffers must be destroyed before the
	// render pass they were created from.
	NewFB(iv []ImageView, width, height, layers int) (Framebuf, error)
}

// Framebuf binds image views to the attachments of a
// RenderPass.
type Framebuf interface {
	Destroyer
}

// ClearValue is the value an attachment is cleared to.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// ShaderCode is a shader binary. The frame graph treats
// it as opaque.
type ShaderCode interface {
	Destroyer
}

// ShaderFunc names an entry point of a ShaderCode.
type ShaderFunc struct {
	Code ShaderCode
	Name string
}

// Stage is a mask of shader stages.
type Stage int

// Shader stages.
const (
	SVertex Stage = 1 << iota
	SFragment
	SCompute
)

// DescType is the type of a descriptor.
type DescType int

// Descriptor types.
const (
	DBuffer DescType = iota
	DImage
	DConstant
	// Sampled texture. The bindless table is an array
	// of these.
	DTexture
	// Read-only buffer bound at an offset that is set
	// with CmdBuffer.SetDescOffsetGraph/Comp.
	DDynBuffer
)

// Descriptor is an entry of a DescHeap.
// Nr is the shader binding number and Len the array
// length.
type Descriptor struct {
	Type   DescType
	Stages Stage
	Nr     int
	Len    int
}

// DescHeap holds descriptors for shaders.
// A heap has Count copies of its descriptors, which
// lets each frame slot update its own copy while other
// slots are in flight.
type DescHeap interface {
	Destroyer

	// New replaces the heap's copies with n new ones.
	// It does nothing if n == Count(). New(0) releases
	// all storage.
	New(n int) error

	// SetBuffer sets elements start onwards of descriptor
	// nr in copy cpy. The descriptor must be a DBuffer,
	// DConstant or DDynBuffer.
	SetBuffer(cpy, nr, start int, buf []Buffer, off, size []int64)

	// SetImage sets elements start onwards of descriptor
	// nr in copy cpy. The descriptor must be a DImage or
	// DTexture.
	SetImage(cpy, nr, start int, iv []ImageView)

	Count() int

	// Len returns the number of descriptors.
	Len() int
}

// DescTable is an ordered set of descriptor heaps that
// a pipeline is laid out against.
type DescTable interface {
	Destroyer

	Len() int
	Heap(i int) DescHeap
}

// Topology is the primitive topology of a graphics
// pipeline.
type Topology int

// Primitive topologies.
const (
	TPoint Topology = iota
	TLine
	TLnStrip
	TTriangle
	TTriStrip
)

// Viewport is a viewport rectangle and depth range.
type Viewport struct {
	X, Y, Width, Height, Znear, Zfar float32
}

// Scissor is a scissor rectangle.
type Scissor struct {
	X, Y, Width, Height int
}

// GraphState describes a graphics pipeline.
// The pipeline can only be used in subpass Subpass of
// Pass, or of a compatible render pass.
type GraphState struct {
	VertFunc ShaderFunc
	FragFunc ShaderFunc
	Desc     DescTable
	Topology Topology
	Samples  int
	Pass     RenderPass
	Subpass  int
}

// CompState describes a compute pipeline.
type CompState struct {
	Func ShaderFunc
	Desc DescTable
}

// Pipeline is a graphics or compute pipeline.
type Pipeline interface {
	Destroyer
}

// Limits are the GPU limits that the registry and the
// compiler check descriptions against.
type Limits struct {
	MaxImage2D int
	MaxLayers  int
	// Per descriptor table.
	MaxDescHeaps int
	// Upper bound of the bindless table size.
	MaxDTexture     int
	MaxDBufferRange int64
	// Per subpass.
	MaxColorTargets int
	MaxFBSize       [2]int
	MaxDispatch     [3]int
}
