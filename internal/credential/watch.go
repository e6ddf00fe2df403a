package credential

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the store when the accounts file changes on disk, so
// externally edited credential files take effect without a restart.
// Only meaningful for the file backend; other backends have no file to
// watch. The watcher observes the parent directory because editors and
// the store itself replace the file via rename.
func (s *Store) Watch(ctx context.Context, accountsPath string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(accountsPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Base(accountsPath)

	go func() {
		defer watcher.Close()

		// 去抖：编辑器保存往往触发一串事件
		var timer *time.Timer
		reload := func() {
			if err := s.Load(ctx); err != nil {
				log.Warnf("hot reload accounts: %v", err)
			} else {
				log.Info("accounts file reloaded")
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(500*time.Millisecond, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("accounts watcher: %v", err)
			}
		}
	}()
	return nil
}
