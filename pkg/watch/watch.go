// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package watch reruns a build whenever a source file changes.
package watch

import (
	"log"
	"time"

	"github.com/dc0d/onexit"
	"github.com/fsnotify/fsnotify"
)

// Editors tend to write a file in several steps; events inside this window
// trigger a single rebuild.
const Settle = 10 * time.Millisecond

// Run calls build once and again after every change to filename, until
// stop is closed or the process exits. A nil stop never closes.
func Run(filename string, build func() bool, logger *log.Logger, stop <-chan struct{}) error {
	build()

	watcher, err := fsnotify.NewWatcher()

	if err != nil {
		return err
	}

	defer watcher.Close()
	onexit.Register(func() { watcher.Close() })

	if err := watcher.Add(filename); err != nil {
		return err
	}

	for {
		select {
		case <-stop:
			return nil

		case _, ok := <-watcher.Events:
			if !ok {
				return nil
			}

		drain:
			for {
				time.Sleep(Settle)

				select {
				case <-watcher.Events:
				default:
					break drain
				}
			}

			build()

			// Editors that save by renaming replace the watched inode.
			Rewatch(watcher, filename, logger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Println(err)
		}
	}
}

// Rewatch adds filename to watcher again, reporting when it can no longer
// be watched.
func Rewatch(watcher *fsnotify.Watcher, filename string, logger *log.Logger) bool {
	if err := watcher.Add(filename); err != nil {
		logger.Printf("no longer watching %s: %s", filename, err)
		return false
	}

	return true
}
