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

package watch_test

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lassandro/golcg/pkg/watch"
)

const timeout = 2 * time.Second

// lines collects log output written from the watch goroutine.
type lines struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	wrote chan struct{}
}

func newLines() *lines {
	return &lines{wrote: make(chan struct{}, 16)}
}

func (l *lines) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	select {
	case l.wrote <- struct{}{}:
	default:
	}

	return l.buf.Write(p)
}

func (l *lines) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.buf.String()
}

func source(t *testing.T) string {
	filename := filepath.Join(t.TempDir(), "main.s")

	if err := os.WriteFile(filename, []byte("nop\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	return filename
}

func wait(t *testing.T, ch <-chan struct{}, what string) {
	select {
	case <-ch:
	case <-time.After(timeout):
		t.Fatalf("want:%s\nhave:nothing after %s", what, timeout)
	}
}

func TestRewatch(t *testing.T) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatal(err)
	}
	defer watcher.Close()

	filename := source(t)
	missing := filepath.Join(filepath.Dir(filename), "gone.s")

	tests := []struct {
		Name     string
		Filename string
		Want     bool
		Log      string
	}{
		{"Existing file", filename, true, ""},
		{"Missing file", missing, false, "no longer watching " + missing},
	}

	for _, test := range tests {
		var out bytes.Buffer

		if have := watch.Rewatch(watcher, test.Filename, log.New(&out, "", 0)); have != test.Want {
			t.Fatalf("%s\nwant:%t\nhave:%t", test.Name, test.Want, have)
		}

		if !strings.HasPrefix(out.String(), test.Log) || (test.Log == "") != (out.Len() == 0) {
			t.Fatalf("%s\nwant:%q\nhave:%q", test.Name, test.Log, out.String())
		}
	}
}

func TestRun(t *testing.T) {
	filename := source(t)
	output := newLines()
	builds := make(chan struct{}, 16)
	stop := make(chan struct{})
	done := make(chan error, 1)

	build := func() bool {
		builds <- struct{}{}
		return true
	}

	go func() {
		done <- watch.Run(filename, build, log.New(output, "", 0), stop)
	}()

	wait(t, builds, "initial build")

	// Give the watcher time to register before touching the file.
	time.Sleep(10 * watch.Settle)

	if err := os.WriteFile(filename, []byte("ret\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	wait(t, builds, "rebuild after write")

	if err := os.Remove(filename); err != nil {
		t.Fatal(err)
	}

	wait(t, output.wrote, "log line after remove")

	if want := "no longer watching " + filename; !strings.Contains(output.String(), want) {
		t.Fatalf("want:%s\nhave:%s", want, output.String())
	}

	close(stop)

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(timeout):
		t.Fatal("Run did not return after stop")
	}
}
