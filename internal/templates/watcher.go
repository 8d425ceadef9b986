// Package templates hot-reloads PolicyTemplate seed content from a
// directory of YAML files, adapted from the teacher's policy file
// watcher (internal/policy.FileWatcher) but upserting into the
// PostgreSQL-backed template catalog instead of an in-memory policy set.
package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/stakflo/policystore/internal/model"
	"github.com/stakflo/policystore/internal/store"
)

// seedFile is the on-disk shape of a template seed file.
type seedFile struct {
	Title        string `yaml:"title"`
	Code         string `yaml:"code"`
	Description  string `yaml:"description"`
	TemplateHTML string `yaml:"template_html"`
	Group        string `yaml:"group"`
	Version      string `yaml:"version"`
}

// ReloadEvent reports the outcome of one reload pass.
type ReloadEvent struct {
	Timestamp time.Time
	Loaded    []string
	Error     error
}

// Watcher monitors a directory of template seed files and upserts their
// content into the store whenever a file changes.
type Watcher struct {
	watcher         *fsnotify.Watcher
	dir             string
	store           *store.Store
	logger          *zap.Logger
	debounceTimeout time.Duration
	debounceTimer   *time.Timer
	eventChan       chan ReloadEvent
	stopChan        chan struct{}
	mu              sync.Mutex
	watching        bool
}

// New builds a Watcher over dir. Call Watch to start it.
func New(dir string, s *store.Store, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		watcher:         fw,
		dir:             dir,
		store:           s,
		logger:          logger,
		debounceTimeout: 500 * time.Millisecond,
		eventChan:       make(chan ReloadEvent, 10),
		stopChan:        make(chan struct{}),
	}, nil
}

// Watch starts watching the seed directory, performing an initial load
// before returning.
func (w *Watcher) Watch(ctx context.Context) error {
	w.mu.Lock()
	if w.watching {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.watching = true
	w.mu.Unlock()

	if err := w.watcher.Add(w.dir); err != nil {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
		return fmt.Errorf("watch directory %s: %w", w.dir, err)
	}

	w.logger.Info("starting policy template watcher", zap.String("dir", w.dir))
	w.performReload(ctx)

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		w.mu.Lock()
		w.watching = false
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isSeedFile(event.Name) {
				continue
			}
			w.debounce(ctx)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("template watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) debounce(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceTimeout, func() {
		w.performReload(ctx)
	})
}

func isSeedFile(name string) bool {
	ext := filepath.Ext(name)
	return ext == ".yaml" || ext == ".yml"
}

// performReload loads every seed file in the directory and upserts it.
func (w *Watcher) performReload(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Error("read template seed directory", zap.String("dir", w.dir), zap.Error(err))
		w.eventChan <- ReloadEvent{Timestamp: time.Now(), Error: err}
		return
	}

	var loaded []string
	for _, entry := range entries {
		if entry.IsDir() || !isSeedFile(entry.Name()) {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		tmpl, err := loadSeedFile(path)
		if err != nil {
			w.logger.Error("parse template seed file", zap.String("file", path), zap.Error(err))
			continue
		}
		if err := w.store.UpsertPolicyTemplate(ctx, w.store.DB(), tmpl); err != nil {
			w.logger.Error("upsert policy template", zap.String("file", path), zap.Error(err))
			continue
		}
		loaded = append(loaded, tmpl.Code)
	}

	w.logger.Info("policy templates reloaded", zap.Int("count", len(loaded)))
	w.eventChan <- ReloadEvent{Timestamp: time.Now(), Loaded: loaded}
}

func loadSeedFile(path string) (model.PolicyTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return model.PolicyTemplate{}, fmt.Errorf("read %s: %w", path, err)
	}
	var sf seedFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return model.PolicyTemplate{}, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if sf.Code == "" {
		return model.PolicyTemplate{}, fmt.Errorf("%s: template seed requires a non-empty code", path)
	}
	if sf.Version == "" {
		sf.Version = "1.0"
	}
	return model.PolicyTemplate{
		Title:        sf.Title,
		Code:         sf.Code,
		Description:  sf.Description,
		TemplateHTML: sf.TemplateHTML,
		Group:        sf.Group,
		Version:      sf.Version,
	}, nil
}

// Events returns the channel of reload outcomes.
func (w *Watcher) Events() <-chan ReloadEvent { return w.eventChan }

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.watching {
		return nil
	}
	close(w.stopChan)
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	return w.watcher.Close()
}
