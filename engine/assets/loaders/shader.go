package loaders

import (
	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/gale/engine/reader"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

var ErrNotSpirv = errors.New("not a SPIR-V module")

// ShaderLoader validates SPIR-V binaries produced by glslc.
type ShaderLoader struct{}

func (ShaderLoader) Load(r *reader.MemReader, path string) (any, error) {
	if r.Size() == 0 || r.Size()%4 != 0 {
		return nil, errors.Wrapf(ErrNotSpirv, "%s: size %d is not a multiple of 4", path, r.Size())
	}
	magic, err := r.Uint32()
	if err != nil {
		return nil, errors.Wrapf(err, "%s: reading header", path)
	}
	if magic != SpirvMagic {
		return nil, errors.Wrapf(ErrNotSpirv, "%s: magic %#08x", path, magic)
	}
	code := make([]byte, r.Size())
	code[0], code[1], code[2], code[3] = byte(magic), byte(magic>>8), byte(magic>>16), byte(magic>>24)
	if _, err := r.Read(code[4:]); err != nil {
		return nil, errors.Wrapf(err, "%s: reading body", path)
	}
	return code, nil
}
