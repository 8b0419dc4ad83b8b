// Package config loads engine-level policy that is not part of a render
// graph's shape: present-mode/composite-alpha preference, whether the
// compiler's debug dump table is enabled, and queue-family overrides. It
// never loads passes or attachments — graph shape stays caller-declared,
// per the compiler's non-goals.
package config

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/rendergraph/engine/core"
)

// Config is engine-level policy, reloadable at runtime.
type Config struct {
	// DebugDump enables the compile()-time text table described in spec §6.
	DebugDump bool `toml:"debug_dump"`
	// PresentModePreference is tried in order; the first mode the surface
	// supports wins. Values are goki/vulkan PresentMode names
	// ("mailbox", "immediate", "fifo").
	PresentModePreference []string `toml:"present_mode_preference"`
	// CompositeAlphaPreference is tried in order ("opaque", "pre_multiplied",
	// "post_multiplied", "inherit").
	CompositeAlphaPreference []string `toml:"composite_alpha_preference"`
	// QueueFamilyOverride maps a pass kind ("compute", "transfer") to a
	// queue family index. It is parsed but no package reads it: the batch
	// partitioner always uses its fixed pass-kind-to-family mapping.
	QueueFamilyOverride map[string]uint32 `toml:"queue_family_override"`
}

// Default returns the policy the compiler uses absent a config file.
func Default() Config {
	return Config{
		DebugDump:                true,
		PresentModePreference:    []string{"mailbox", "immediate", "fifo"},
		CompositeAlphaPreference: []string{"opaque", "pre_multiplied", "post_multiplied", "inherit"},
	}
}

// Watcher hot-reloads a TOML config file and exposes the latest parsed
// value. Grounded on the teacher's asset manager, which watches the assets
// directory with the same fsnotify pattern.
type Watcher struct {
	path string

	mu      sync.RWMutex
	current Config

	watcher *fsnotify.Watcher
	done    chan struct{}
	closed  atomic.Bool
}

// NewWatcher loads path once and begins watching it for changes. If path
// does not exist, the default policy is used and no watch is installed.
func NewWatcher(path string) (*Watcher, error) {
	w := &Watcher{path: path, current: Default(), done: make(chan struct{})}

	if err := w.reload(); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return w, nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: creating watcher: %w", err)
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watching %s: %w", path, err)
	}
	w.watcher = fsw

	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				core.LogWarn("config: reload of %s failed: %s", w.path, err)
			} else {
				core.LogInfo("config: reloaded %s", w.path)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			core.LogWarn("config: watcher error: %s", err)
		}
	}
}

func (w *Watcher) reload() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		return err
	}
	next := Default()
	if err := toml.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("config: parsing %s: %w", w.path, err)
	}
	w.mu.Lock()
	w.current = next
	w.mu.Unlock()
	return nil
}

// Current returns the latest loaded configuration.
func (w *Watcher) Current() Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Close stops the background watch goroutine.
func (w *Watcher) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.done)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}
