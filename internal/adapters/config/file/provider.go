// Package file loads dashboard configuration from a YAML file and reloads it
// when the file changes.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tjfontaine/sk8-dashboard/internal/core/ports"
	"github.com/tjfontaine/sk8-dashboard/internal/pkg/config"
)

var _ ports.ConfigProvider = (*Provider)(nil)

// Provider implements ports.ConfigProvider for a single config file.
type Provider struct {
	path    string
	logger  *slog.Logger
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	current *config.Config
}

// NewProvider creates a provider for path. The file does not need to exist
// yet; environment variables still apply.
func NewProvider(path string, logger *slog.Logger) (*Provider, error) {
	if path == "" {
		return nil, errors.New("config path cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{path: path, logger: logger}, nil
}

// Load reads the file plus the environment.
func (p *Provider) Load(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(p.path)
	if err != nil {
		return nil, fmt.Errorf("load config from %s: %w", p.path, err)
	}

	p.mu.Lock()
	p.current = cfg
	p.mu.Unlock()

	p.logger.InfoContext(ctx, "config loaded", slog.String("path", p.path))
	return cfg, nil
}

// Current returns the last configuration Load or a reload produced.
func (p *Provider) Current() *config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Watch calls onChange with every valid configuration written to the file
// until ctx is done or Close is called. The parent directory is watched so
// editors that replace the file by rename are seen too. Invalid
// configurations are logged and skipped.
func (p *Provider) Watch(ctx context.Context, onChange func(*config.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	p.mu.Lock()
	if p.watcher != nil {
		p.mu.Unlock()
		watcher.Close()
		return errors.New("config already watched")
	}
	p.watcher = watcher
	p.mu.Unlock()

	p.logger.Info("watching config file for changes", slog.String("path", p.path))

	target := filepath.Clean(p.path)
	go func() {
		defer watcher.Close()

		for {
			select {
			case <-ctx.Done():
				p.logger.Debug("config watch stopped")
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				p.reload(onChange)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				p.logger.Error("config watch error", slog.String("error", err.Error()))
			}
		}
	}()

	return nil
}

func (p *Provider) reload(onChange func(*config.Config)) {
	p.logger.Info("config file changed, reloading", slog.String("path", p.path))

	cfg, err := config.Load(p.path)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		p.logger.Error("failed to reload config",
			slog.String("error", err.Error()),
			slog.String("path", p.path))
		return
	}

	p.mu.Lock()
	p.current = cfg
	p.mu.Unlock()

	onChange(cfg)
}

// Close stops watching the file.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	p.watcher = nil
	return err
}
