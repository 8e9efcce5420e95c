package assets

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/instancer/engine/assets/loaders"
	"github.com/spaghettifunk/instancer/engine/core"
	"github.com/spaghettifunk/instancer/engine/renderer/metadata"
)

var ErrClosed = errors.New("asset manager already closed")

type AssetType int

const (
	AssetTypeNone AssetType = iota
	AssetTypeImage
	AssetTypeShader
	AssetTypeFont
	AssetTypeScene
)

type AssetInfo struct {
	Path        string
	Type        AssetType
	LastChanged time.Time
}

// Change is emitted when a watched asset is created, written or removed.
type Change struct {
	Path    string
	Type    AssetType
	Removed bool
}

type AssetManager struct {
	root   string
	assets map[string]AssetInfo

	images  loaders.ImageLoader
	fonts   loaders.BitmapFontLoader
	shaders loaders.ShaderLoader

	mutex sync.RWMutex

	done     chan struct{}
	stopped  chan struct{}
	fsnotify *fsnotify.Watcher
	isClosed bool
	watching bool
	changes  chan Change
}

func NewAssetManager() (*AssetManager, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &AssetManager{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		changes:  make(chan Change, 64),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

/**
 * @brief Indexes every known asset under assetsDir. With watch set, changes
 * are reported on Changes() until Shutdown.
 */
func (am *AssetManager) Initialize(assetsDir string, watch bool) error {
	am.root = assetsDir
	if err := am.watchRecursive(assetsDir, watch); err != nil {
		return err
	}
	if watch && !am.watching {
		am.watching = true
		go am.start()
	}
	return nil
}

// Changes reports asset changes while watching.
func (am *AssetManager) Changes() <-chan Change {
	return am.changes
}

// Assets returns the indexed assets of type t sorted by path.
func (am *AssetManager) Assets(t AssetType) []AssetInfo {
	am.mutex.RLock()
	defer am.mutex.RUnlock()
	var out []AssetInfo
	for _, a := range am.assets {
		if a.Type == t {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (am *AssetManager) resolve(path string) string {
	if filepath.IsAbs(path) || am.root == "" {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return filepath.Join(am.root, path)
}

func (am *AssetManager) LoadTexture(path string) (*metadata.Texture, error) {
	return am.images.Load(am.resolve(path))
}

func (am *AssetManager) LoadFont(path string) (*loaders.BitmapFont, error) {
	return am.fonts.Load(am.resolve(path))
}

func (am *AssetManager) LoadShader(path string) (metadata.ShaderPair, error) {
	return am.shaders.Load(am.resolve(path))
}

// Shutdown stops watching and closes the Changes channel.
func (am *AssetManager) Shutdown() {
	am.mutex.Lock()
	if am.isClosed {
		am.mutex.Unlock()
		return
	}
	am.isClosed = true
	am.mutex.Unlock()

	close(am.done)
	if am.watching {
		<-am.stopped
	}
	am.fsnotify.Close()
}

func (am *AssetManager) start() {
	defer close(am.stopped)
	defer close(am.changes)
	for {
		select {

		case e, ok := <-am.fsnotify.Events:
			if !ok {
				return
			}
			s, err := os.Stat(e.Name)
			if err == nil && s != nil && s.IsDir() {
				if e.Op&fsnotify.Create != 0 {
					if err := am.watchRecursive(e.Name, true); err != nil {
						core.LogWarn("unable to watch %s: %s", e.Name, err)
					}
				}
				continue
			}
			// Handle create or modify events
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				if info, ok := am.handleFileEvent(e.Name); ok {
					am.notify(Change{Path: info.Path, Type: info.Type})
				}
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				if info, ok := am.removeAsset(e.Name); ok {
					am.notify(Change{Path: info.Path, Type: info.Type, Removed: true})
				}
			}

		case err, ok := <-am.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("%s", err.Error())

		case <-am.done:
			return
		}
	}
}

func (am *AssetManager) notify(c Change) {
	select {
	case am.changes <- c:
	default:
		core.LogWarn("asset change queue full, dropping change of %s", c.Path)
	}
}

// watchRecursive indexes every file under path, adding directories to the
// watch list when watch is set.
func (am *AssetManager) watchRecursive(path string, watch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if watch {
				return am.fsnotify.Add(walkPath)
			}
			return nil
		}
		am.handleFileEvent(walkPath)
		return nil
	})
}

// Handle the creation or modification of a file
func (am *AssetManager) handleFileEvent(path string) (AssetInfo, bool) {
	assetType := determineAssetType(path)
	if assetType == AssetTypeNone {
		return AssetInfo{}, false
	}
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info := AssetInfo{
		Path:        path,
		Type:        assetType,
		LastChanged: time.Now(),
	}
	am.assets[path] = info
	return info, true
}

// Remove the asset from the index if it was deleted
func (am *AssetManager) removeAsset(path string) (AssetInfo, bool) {
	am.mutex.Lock()
	defer am.mutex.Unlock()

	info, ok := am.assets[path]
	delete(am.assets, path)
	return info, ok
}

func determineAssetType(path string) AssetType {
	switch filepath.Ext(path) {
	case ".wgsl", ".spv":
		return AssetTypeShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".webp":
		return AssetTypeImage
	case ".fnt":
		return AssetTypeFont
	case ".toml", ".yaml", ".yml":
		return AssetTypeScene
	default:
		return AssetTypeNone
	}
}
