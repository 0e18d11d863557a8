package gapi

// ComponentType tags one vertex attribute.
type ComponentType uint8

const (
	ComponentNone ComponentType = iota
	Float1
	Float2
	Float3
	Float4
	Color
	Short2
	Short4
	Half2
	Half4
	componentCount
)

// Valid reports whether the attribute tag is known to the backends.
func (c ComponentType) Valid() bool {
	return c > ComponentNone && c < componentCount
}

// Decl is the ordered attribute layout of a vertex type.
type Decl []ComponentType

// Vertex is implemented by every point type uploaded as vertex data.
type Vertex interface {
	Decl() Decl
}
