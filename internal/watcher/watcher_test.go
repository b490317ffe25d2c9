package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu      sync.Mutex
	changed []string
	removed []string
}

func (r *recorder) handler() Handler {
	return Handler{
		OnChange: func(path string) {
			r.mu.Lock()
			r.changed = append(r.changed, path)
			r.mu.Unlock()
		},
		OnRemove: func(path string) {
			r.mu.Lock()
			r.removed = append(r.removed, path)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() (changed, removed []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.changed...), append([]string(nil), r.removed...)
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func startInbox(t *testing.T, roots []string, rec *recorder, recursive bool) *Inbox {
	t.Helper()
	in := NewInbox(roots, []string{".xlsx", ".pdf"}, recursive, rec.handler(), WithDebounce(100*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := in.Start(ctx); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(in.Stop)
	return in
}

func TestInbox_AddRemoveDirectories(t *testing.T) {
	dir := t.TempDir()
	in := startInbox(t, nil, &recorder{}, true)

	if err := in.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	if err := in.AddDirectory(dir, false); err != nil {
		t.Fatal(err)
	}
	dirs := in.Directories()
	if len(dirs) != 1 || filepath.Clean(dirs[0]) != filepath.Clean(dir) {
		t.Errorf("Directories() = %v", dirs)
	}

	if err := in.RemoveDirectory(dir); err != nil {
		t.Fatal(err)
	}
	if len(in.Directories()) != 0 {
		t.Errorf("after remove: %v", in.Directories())
	}
	if err := in.RemoveDirectory(dir); err != nil {
		t.Errorf("removing an unknown directory should be a no-op: %v", err)
	}
}

func TestInbox_DebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startInbox(t, []string{dir}, rec, true)

	path := filepath.Join(dir, "boq.xlsx")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte{byte(i)}, 0644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "~$boq.xlsx"), []byte("lock"), 0644); err != nil {
		t.Fatal(err)
	}

	if !waitFor(t, 2*time.Second, func() bool { c, _ := rec.snapshot(); return len(c) > 0 }) {
		t.Fatal("expected a change callback")
	}
	time.Sleep(300 * time.Millisecond)
	changed, _ := rec.snapshot()
	if len(changed) != 1 || changed[0] != path {
		t.Errorf("changed = %v, want one debounced call for %s", changed, path)
	}
}

func TestInbox_RemoveReportsDeletion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "boq.pdf")
	if err := os.WriteFile(path, []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	startInbox(t, []string{dir}, rec, true)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if !waitFor(t, 2*time.Second, func() bool { _, r := rec.snapshot(); return len(r) > 0 }) {
		t.Fatal("expected a remove callback")
	}
	_, removed := rec.snapshot()
	if removed[0] != path {
		t.Errorf("removed = %v", removed)
	}
}

func TestInbox_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	startInbox(t, []string{dir}, rec, true)

	sub := filepath.Join(dir, "tower-a")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(sub, "level1.xlsx")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	ok := waitFor(t, 2*time.Second, func() bool {
		c, _ := rec.snapshot()
		for _, p := range c {
			if p == path {
				return true
			}
		}
		return false
	})
	if !ok {
		c, _ := rec.snapshot()
		t.Errorf("file in new subdirectory not reported, changed = %v", c)
	}
}

func TestInbox_SyncExistingFiles(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "archive")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.xlsx", "ignore.docx", filepath.Join("archive", "b.pdf")} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	rec := &recorder{}
	in := startInbox(t, []string{dir}, rec, false)
	in.SyncExistingFiles()
	changed, _ := rec.snapshot()
	if len(changed) != 1 || filepath.Base(changed[0]) != "a.xlsx" {
		t.Errorf("non-recursive sync = %v", changed)
	}

	rec2 := &recorder{}
	in2 := startInbox(t, []string{dir}, rec2, true)
	in2.SyncExistingFiles()
	changed, _ = rec2.snapshot()
	if len(changed) != 2 {
		t.Errorf("recursive sync = %v, want a.xlsx and b.pdf", changed)
	}
}

func TestInbox_StartCreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "drop", "boq")
	startInbox(t, []string{root}, &recorder{}, true)
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("root not created: %v", err)
	}
}

func TestAccepts(t *testing.T) {
	tests := []struct {
		path       string
		extensions []string
		want       bool
	}{
		{"/in/boq.xlsx", []string{".xlsx"}, true},
		{"/in/BOQ.XLSX", []string{"xlsx"}, true},
		{"/in/boq.pdf", []string{".xlsx"}, false},
		{"/in/~$boq.xlsx", []string{".xlsx"}, false},
		{"/in/.boq.xlsx.swp", nil, false},
		{"/in/anything", nil, true},
	}
	for _, tt := range tests {
		if got := Accepts(tt.path, tt.extensions); got != tt.want {
			t.Errorf("Accepts(%q, %v) = %v, want %v", tt.path, tt.extensions, got, tt.want)
		}
	}
}

func TestInDir(t *testing.T) {
	tests := []struct {
		dir  string
		path string
		want bool
	}{
		{"/tmp/a", "/tmp/a", false},
		{"/tmp/a", "/tmp/a/b.xlsx", true},
		{"/tmp/a", "/tmp/a/x/b.xlsx", true},
		{"/tmp/a", "/tmp/b", false},
		{"/tmp/a", "/tmp/a/../b", false},
	}
	for _, tt := range tests {
		if got := inDir(tt.dir, tt.path); got != tt.want {
			t.Errorf("inDir(%q, %q) = %v, want %v", tt.dir, tt.path, got, tt.want)
		}
	}
}
