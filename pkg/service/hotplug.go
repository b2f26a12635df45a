// MiniDisplay Core
// Copyright (c) 2026 The MiniDisplay Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of MiniDisplay Core.
//
// MiniDisplay Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// MiniDisplay Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with MiniDisplay Core.  If not, see <http://www.gnu.org/licenses/>.

package service

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// portWatcher calls onAttach whenever the LED controller's device node is
// created again, which happens when it is replugged. The strip comes back
// on its own default theme, so the cached settings must be resent.
type portWatcher struct {
	watcher  *fsnotify.Watcher
	onAttach func()
	stopCh   chan struct{}
	path     string
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newPortWatcher(path string, onAttach func()) *portWatcher {
	return &portWatcher{
		path:     filepath.Clean(path),
		onAttach: onAttach,
		stopCh:   make(chan struct{}),
	}
}

func (w *portWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.watcher = watcher

	w.wg.Add(1)
	go w.loop()

	log.Debug().Str("port", w.path).Msg("watching led port for hotplug")
	return nil
}

func (w *portWatcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Has(fsnotify.Create):
				log.Info().Str("port", w.path).Msg("led controller attached")
				w.onAttach()
			case ev.Has(fsnotify.Remove):
				log.Warn().Str("port", w.path).Msg("led controller detached")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("fsnotify error")
		}
	}
}

func (w *portWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
		w.wg.Wait()
	})
}
