// Package plugins hosts the JavaScript extension points. Each *.js file
// in the plugin directory runs in its own interpreter; the engine calls
// the hooks on every submitted command and for :db queries.
package plugins

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dop251/goja"
	"github.com/fsnotify/fsnotify"
)

// Hook names a plugin may define.
const (
	hookCommand = "on_command"
	hookDBQuery = "on_db_query"
)

type plugin struct {
	name      string
	vm        *goja.Runtime
	onCommand goja.Callable
	onDBQuery goja.Callable
}

// Host owns the loaded plugins and the optional directory watcher.
// Interpreter access is serialized: goja runtimes are not safe for
// concurrent use.
type Host struct {
	mu      sync.Mutex
	dir     string
	logf    func(string)
	loaded  []*plugin
	watcher *fsnotify.Watcher
}

// Load reads every *.js file under dir. A missing directory yields an
// empty host; a plugin that fails to compile is logged and skipped, the
// rest still load.
func Load(dir string, logf func(string)) *Host {
	if logf == nil {
		logf = func(string) {}
	}
	h := &Host{dir: dir, logf: logf}
	h.mu.Lock()
	h.reloadLocked()
	h.mu.Unlock()
	return h
}

// Count returns the number of loaded plugins.
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.loaded)
}

// Names lists the loaded plugin file names.
func (h *Host) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.loaded))
	for i, p := range h.loaded {
		out[i] = p.name
	}
	return out
}

// OnCommand invokes every plugin's on_command hook. Hook errors are
// logged, never propagated: a broken plugin must not break the session.
func (h *Host) OnCommand(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.loaded {
		if p.onCommand == nil {
			continue
		}
		if _, err := p.onCommand(goja.Undefined(), p.vm.ToValue(line)); err != nil {
			h.logf(p.name + ": on_command: " + err.Error())
		}
	}
}

// DBQuery asks each plugin in turn; the first one that returns a string
// answers the query.
func (h *Host) DBQuery(query string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range h.loaded {
		if p.onDBQuery == nil {
			continue
		}
		v, err := p.onDBQuery(goja.Undefined(), p.vm.ToValue(query))
		if err != nil {
			h.logf(p.name + ": on_db_query: " + err.Error())
			continue
		}
		if s, ok := v.Export().(string); ok {
			return s, true
		}
	}
	return "", false
}

// Watch reloads the plugin set whenever a *.js file under the directory
// changes. No-op if the directory does not exist.
func (h *Host) Watch() error {
	if _, err := os.Stat(h.dir); err != nil {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(h.dir); err != nil {
		_ = w.Close()
		return err
	}
	h.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Ext(ev.Name) != ".js" {
					continue
				}
				if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
					h.mu.Lock()
					h.reloadLocked()
					h.mu.Unlock()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				h.logf("plugin watcher: " + err.Error())
			}
		}
	}()
	return nil
}

// Close stops the watcher and drops the loaded plugins.
func (h *Host) Close() {
	if h.watcher != nil {
		_ = h.watcher.Close()
		h.watcher = nil
	}
	h.mu.Lock()
	h.loaded = nil
	h.mu.Unlock()
}

func (h *Host) reloadLocked() {
	h.loaded = nil
	files, err := filepath.Glob(filepath.Join(h.dir, "*.js"))
	if err != nil {
		return
	}
	sort.Strings(files)
	for _, f := range files {
		p, err := h.compile(f)
		if err != nil {
			h.logf(filepath.Base(f) + ": " + err.Error())
			continue
		}
		h.loaded = append(h.loaded, p)
	}
}

// compile builds one interpreter with the dais API installed and runs
// the plugin body so its hooks are defined.
func (h *Host) compile(path string) (*plugin, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(path)
	vm := goja.New()
	api := vm.NewObject()
	if err := api.Set("log", func(msg string) { h.logf(name + ": " + msg) }); err != nil {
		return nil, err
	}
	if err := vm.Set("dais", api); err != nil {
		return nil, err
	}
	if _, err := vm.RunScript(name, string(src)); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	p := &plugin{name: name, vm: vm}
	if fn, ok := goja.AssertFunction(vm.Get(hookCommand)); ok {
		p.onCommand = fn
	}
	if fn, ok := goja.AssertFunction(vm.Get(hookDBQuery)); ok {
		p.onDBQuery = fn
	}
	return p, nil
}
