// Package loaders turns file contents into engine values.
package loaders

import "github.com/spaghettifunk/gale/engine/reader"

// Loader parses the bytes of one asset. path is only used in errors.
type Loader interface {
	Load(r *reader.MemReader, path string) (any, error)
}
