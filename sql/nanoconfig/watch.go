package nanoconfig

import (
	"context"

	"github.com/fsnotify/fsnotify"
)

// Watch watches every resolved schema file (plus the config file
// itself) and calls onChange for each write event, until ctx is
// canceled. Grounded in the fsnotify watch-loop pattern used for
// hot-reload elsewhere in the pack: one fsnotify.Watcher, one
// goroutine selecting on ctx.Done/Events/Errors, filtering to Write
// ops so editor atomic-save rewrites of the same inode still fire.
func (c *Config) Watch(ctx context.Context, configPath string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	files, err := c.ResolveSchemaFiles()
	if err != nil {
		watcher.Close()
		return err
	}
	for _, f := range files {
		if err := watcher.Add(f); err != nil {
			watcher.Close()
			return err
		}
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&fsnotify.Write == fsnotify.Write {
					onChange(event.Name)
				}
			case <-watcher.Errors:
			}
		}
	}()
	return nil
}
