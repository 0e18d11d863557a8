package gapi

type CullFace uint8

const (
	CullBack CullFace = iota
	CullFront
	CullNone
)

type ZTestMode uint8

const (
	ZAlways ZTestMode = iota
	ZNever
	ZGreater
	ZLess
	ZGreaterOrEqual
	ZLessOrEqual
	ZNotEqual
	ZEqual
)

type BlendMode uint8

const (
	BlendZero BlendMode = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlphaSaturate
)

// RenderState is the fixed-function part of a pipeline.
type RenderState struct {
	Cull          CullFace
	ZTest         ZTestMode
	ZWrite        bool
	RasterDiscard bool
	BlendSource   BlendMode
	BlendDest     BlendMode
}

// DefaultRenderState draws everything opaque, without depth test or culling.
func DefaultRenderState() RenderState {
	return RenderState{
		Cull:        CullNone,
		ZTest:       ZAlways,
		BlendSource: BlendOne,
		BlendDest:   BlendZero,
	}
}

// AlphaBlended is the state used for 2D painting.
func AlphaBlended() RenderState {
	st := DefaultRenderState()
	st.BlendSource = BlendSrcAlpha
	st.BlendDest = BlendOneMinusSrcAlpha
	return st
}

func (s RenderState) HasBlend() bool {
	return s.BlendSource != BlendOne || s.BlendDest != BlendZero
}
