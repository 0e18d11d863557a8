package gapi

// TextureLayout is the access mode an image is kept in on the GPU.
type TextureLayout uint8

const (
	Undefined TextureLayout = iota
	Sampler
	ColorAttach
	DepthAttach
	Present
	TransferSrc
	TransferDst
)

func (l TextureLayout) String() string {
	switch l {
	case Undefined:
		return "undefined"
	case Sampler:
		return "sampler"
	case ColorAttach:
		return "color-attach"
	case DepthAttach:
		return "depth-attach"
	case Present:
		return "present"
	case TransferSrc:
		return "transfer-src"
	case TransferDst:
		return "transfer-dst"
	}
	return "unknown"
}

// BufferLayout is the usage a buffer is synchronized for.
type BufferLayout uint8

const (
	BufferComputeRead BufferLayout = iota
	BufferComputeWrite
	BufferTransferSrc
	BufferTransferDst
)

func (l BufferLayout) String() string {
	switch l {
	case BufferComputeRead:
		return "compute-read"
	case BufferComputeWrite:
		return "compute-write"
	case BufferTransferSrc:
		return "transfer-src"
	case BufferTransferDst:
		return "transfer-dst"
	}
	return "unknown"
}

// MemUsage is a bit set of what a buffer is bound as.
type MemUsage uint8

const (
	MemTransferSrc MemUsage = 1 << iota
	MemTransferDst
	MemUniform
	MemVertex
	MemStorage
)

func (u MemUsage) Has(bit MemUsage) bool {
	return u&bit != 0
}

// BufferFlags selects where the memory of a buffer lives.
type BufferFlags uint8

const (
	// Host visible and coherent, mapped for uploads.
	BufferStaging BufferFlags = iota
	// Device local, never mapped.
	BufferStatic
)

type Topology uint8

const (
	Lines Topology = iota
	Triangles
)

func (t Topology) String() string {
	if t == Triangles {
		return "triangles"
	}
	return "lines"
}

// ShaderStage is a bit set of pipeline stages.
type ShaderStage uint8

const (
	StageVertex ShaderStage = 1 << iota
	StageFragment
	StageCompute
)
