package store

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
	"ragchat/internal/port"
)

var _ port.IndexProvider = (*Holder)(nil)

// Holder is the process-wide handle on the persisted index. It caches the
// loaded index and reloads it when the file on disk is replaced.
type Holder struct {
	path string
	opts LoadOptions

	mu         sync.RWMutex
	idx        *Index
	modTime    time.Time
	size       int64
	generation uint64
}

func NewHolder(path string, opts LoadOptions) *Holder {
	return &Holder{path: path, opts: opts}
}

// Current returns the loaded index and its generation, reloading the index
// if the file changed since the last load.
func (h *Holder) Current() (port.VectorIndex, uint64, error) {
	idx, gen, err := h.current()
	if err != nil {
		return nil, 0, err
	}
	return idx, gen, nil
}

// Index is Current with the concrete type.
func (h *Holder) Index() (*Index, error) {
	idx, _, err := h.current()
	return idx, err
}

func (h *Holder) current() (*Index, uint64, error) {
	info, err := os.Stat(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.drop()
			return nil, 0, fmt.Errorf("%w: index %s", domain.ErrNotFound, h.path)
		}
		return nil, 0, err
	}

	h.mu.RLock()
	if h.idx != nil && h.fresh(info) {
		idx, gen := h.idx, h.generation
		h.mu.RUnlock()
		return idx, gen, nil
	}
	h.mu.RUnlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.idx != nil && h.fresh(info) {
		return h.idx, h.generation, nil
	}

	idx, err := Load(h.path, h.opts)
	if err != nil {
		return nil, 0, err
	}

	h.idx = idx
	h.modTime = info.ModTime()
	h.size = info.Size()
	h.generation++

	logger.Info("index reloaded", "path", h.path, "chunks", idx.Len(), "generation", h.generation)
	return idx, h.generation, nil
}

func (h *Holder) fresh(info os.FileInfo) bool {
	return info.ModTime().Equal(h.modTime) && info.Size() == h.size
}

// Set installs an index built in this process so the next Current call
// does not reload it from disk.
func (h *Holder) Set(idx *Index) {
	info, err := os.Stat(h.path)

	h.mu.Lock()
	defer h.mu.Unlock()

	h.generation++
	if err != nil {
		h.idx = nil
		return
	}
	h.idx = idx
	h.modTime = info.ModTime()
	h.size = info.Size()
}

// Invalidate forces a reload on the next Current call.
func (h *Holder) Invalidate() {
	h.drop()
}

func (h *Holder) drop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.idx != nil {
		h.idx = nil
		h.generation++
	}
}

func (h *Holder) Path() string {
	return h.path
}
