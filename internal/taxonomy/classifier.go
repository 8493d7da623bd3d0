package taxonomy

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Classifier serves the current taxonomy and swaps it atomically on reload
type Classifier struct {
	cur    atomic.Pointer[Taxonomy]
	path   string
	logger *zap.Logger
}

// NewClassifier uses the taxonomy at path, or the embedded one when path is empty
func NewClassifier(path string, logger *zap.Logger) (*Classifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Classifier{path: path, logger: logger}

	t := Default()
	if path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		t = loaded
	}
	c.cur.Store(t)
	return c, nil
}

// NewStatic wraps a fixed taxonomy
func NewStatic(t *Taxonomy) *Classifier {
	c := &Classifier{logger: zap.NewNop()}
	c.cur.Store(t)
	return c
}

// Current returns the taxonomy in effect
func (c *Classifier) Current() *Taxonomy {
	return c.cur.Load()
}

func (c *Classifier) Classify(description string) string {
	return c.Current().Classify(description)
}

func (c *Classifier) IsIncome(category, description string) bool {
	return c.Current().IsIncome(category, description)
}

func (c *Classifier) IsLoan(description string) bool {
	return c.Current().IsLoan(description)
}

func (c *Classifier) IsRepayment(description string) bool {
	return c.Current().IsRepayment(description)
}

// Reload re-reads the taxonomy file. A broken file keeps the previous rules.
func (c *Classifier) Reload() error {
	if c.path == "" {
		return nil
	}
	t, err := Load(c.path)
	if err != nil {
		c.logger.Warn("Taxonomy reload failed, keeping previous rules",
			zap.String("path", c.path), zap.Error(err))
		return err
	}
	c.cur.Store(t)
	c.logger.Info("Taxonomy reloaded",
		zap.String("path", c.path), zap.Int("categories", len(t.Categories)))
	return nil
}

// Watch reloads the taxonomy whenever its file changes, until ctx is done.
// The parent directory is watched so editors that replace the file still trigger.
func (c *Classifier) Watch(ctx context.Context) error {
	if c.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(c.path)); err != nil {
		w.Close()
		return err
	}

	target := filepath.Clean(c.path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					_ = c.Reload()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				c.logger.Warn("Taxonomy watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
