package assets

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spaghettifunk/gale/engine/assets/loaders"
	"github.com/spaghettifunk/gale/engine/core"
	"github.com/spaghettifunk/gale/engine/gapi"
	"github.com/spaghettifunk/gale/engine/reader"
)

type Kind int

const (
	KindNone Kind = iota
	KindShader
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindShader:
		return "shader"
	case KindImage:
		return "image"
	default:
		return "none"
	}
}

var ErrNotFound = errors.New("asset not found")

type AssetInfo struct {
	Handle     uuid.UUID
	Path       string
	Kind       Kind
	LastLoaded time.Time
}

// AssetManager indexes the files of an assets directory and keeps the
// index current while they change on disk.
type AssetManager struct {
	root    string
	assets  map[string]AssetInfo
	loaders map[Kind]loaders.Loader
	changed map[string]AssetInfo

	mutex sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	fsnotify *fsnotify.Watcher
	isClosed bool
}

func NewAssetManager(root string) (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating watcher")
	}

	am := &AssetManager{
		root:     filepath.Clean(root),
		assets:   make(map[string]AssetInfo),
		loaders:  make(map[Kind]loaders.Loader),
		changed:  make(map[string]AssetInfo),
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	am.registerLoader(KindShader, loaders.ShaderLoader{})
	am.registerLoader(KindImage, loaders.ImageLoader{})
	return am, nil
}

// Initialize indexes the assets directory and starts watching it.
func (am *AssetManager) Initialize() error {
	if err := am.watchRecursive(am.root, false); err != nil {
		return err
	}
	am.wg.Add(1)
	go am.start()
	core.LogInfo("indexed %d assets under %s", am.Len(), am.root)
	return nil
}

func (am *AssetManager) registerLoader(kind Kind, loader loaders.Loader) {
	am.loaders[kind] = loader
}

func (am *AssetManager) Len() int {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	return len(am.assets)
}

// Info looks an asset up by its path relative to the assets directory.
func (am *AssetManager) Info(name string) (AssetInfo, bool) {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	info, ok := am.assets[am.key(name)]
	return info, ok
}

// Load reads and parses an indexed asset.
func (am *AssetManager) Load(name string) (any, error) {
	key := am.key(name)

	am.mutex.Lock()
	asset, exists := am.assets[key]
	if exists {
		asset.LastLoaded = time.Now()
		am.assets[key] = asset
	}
	am.mutex.Unlock()
	if !exists {
		return nil, errors.Wrapf(ErrNotFound, "%s", name)
	}

	loader, ok := am.loaders[asset.Kind]
	if !ok {
		return nil, errors.Newf("no loader registered for %s assets", asset.Kind)
	}
	data, err := os.ReadFile(filepath.Join(am.root, key))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	return loader.Load(reader.NewMemReader(data), key)
}

// Shader returns the SPIR-V code of a compiled shader.
func (am *AssetManager) Shader(name string) ([]byte, error) {
	v, err := am.Load(name)
	if err != nil {
		return nil, err
	}
	code, ok := v.([]byte)
	if !ok {
		return nil, errors.Newf("%s is not a shader", name)
	}
	return code, nil
}

func (am *AssetManager) Image(name string) (*gapi.Pixmap, error) {
	v, err := am.Load(name)
	if err != nil {
		return nil, err
	}
	pix, ok := v.(*gapi.Pixmap)
	if !ok {
		return nil, errors.Newf("%s is not an image", name)
	}
	return pix, nil
}

// Changed returns the assets written since the last call.
func (am *AssetManager) Changed() []AssetInfo {
	am.mutex.Lock()
	defer am.mutex.Unlock()
	if len(am.changed) == 0 {
		return nil
	}
	out := make([]AssetInfo, 0, len(am.changed))
	for _, info := range am.changed {
		out = append(out, info)
	}
	clear(am.changed)
	return out
}

func (am *AssetManager) Close() error {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return nil
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	am.wg.Wait()
	return am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer am.wg.Done()
	for {
		select {
		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			am.handleEvent(e)

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %v", err)

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) handleEvent(e fsnotify.Event) {
	s, err := os.Stat(e.Name)
	if err == nil && s.IsDir() {
		if e.Has(fsnotify.Create) {
			if err := am.watchRecursive(e.Name, false); err != nil {
				core.LogWarn("watching %s: %v", e.Name, err)
			}
		}
		return
	}
	if e.Has(fsnotify.Create) || e.Has(fsnotify.Write) {
		if info, ok := am.handleFileEvent(e.Name); ok {
			am.mutex.Lock()
			am.changed[info.Path] = info
			am.mutex.Unlock()
			core.LogDebug("asset %s changed", info.Path)
		}
	}
	// a removed path can no longer be stat'ed
	if e.Has(fsnotify.Remove) || e.Has(fsnotify.Rename) {
		am.removeAsset(e.Name)
		_ = am.fsnotify.Remove(e.Name)
	}
}

// watchRecursive adds or removes every directory under path, indexing the
// files it meets.
func (am *AssetManager) watchRecursive(path string, unWatch bool) error {
	return filepath.WalkDir(path, func(walkPath string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if unWatch {
				return am.fsnotify.Remove(walkPath)
			}
			return am.fsnotify.Add(walkPath)
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// handleFileEvent indexes path, keeping the handle of a known asset.
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	kind := determineAssetType(path)
	if kind == KindNone {
		return AssetInfo{}, false
	}
	key := am.key(path)

	am.mutex.Lock()
	defer am.mutex.Unlock()
	info, ok := am.assets[key]
	if !ok {
		info = AssetInfo{Handle: uuid.New(), Path: key, Kind: kind}
	}
	am.assets[key] = info
	return info, true
}

func (am *AssetManager) removeAsset(path string) {
	key := am.key(path)
	am.mutex.Lock()
	defer am.mutex.Unlock()
	delete(am.assets, key)
	delete(am.changed, key)
}

// key maps a watched path or a caller supplied name to the index key, a
// slash separated path relative to the root.
func (am *AssetManager) key(path string) string {
	path = filepath.Clean(path)
	if rel, err := filepath.Rel(am.root, path); err == nil && filepath.IsLocal(rel) {
		path = rel
	}
	return filepath.ToSlash(path)
}

func determineAssetType(path string) Kind {
	switch filepath.Ext(path) {
	case ".spv":
		return KindShader
	case ".png", ".jpg", ".jpeg", ".bmp":
		return KindImage
	default:
		return KindNone
	}
}
