package logging

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRotatingWriterRotates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watcher.log")
	w, err := NewRotatingWriter(path, 32)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.Write([]byte(strings.Repeat("a", 40) + "\n"))
	w.Write([]byte("fresh\n"))

	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatal("Expected backup file:", err)
	}
	if !strings.HasPrefix(string(backup), "aaaa") {
		t.Errorf("Unexpected backup content %q", backup)
	}

	current, _ := os.ReadFile(path)
	if string(current) != "fresh\n" {
		t.Errorf("Expected fresh log file, got %q", current)
	}
}

func TestRotatingWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watcher.log")
	os.WriteFile(path, []byte("old\n"), 0644)

	w, err := NewRotatingWriter(path, DefaultMaxSize)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("new\n"))
	w.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "old\nnew\n" {
		t.Errorf("Expected appended log, got %q", data)
	}
}

func TestRotatingWriterSurvivesMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	w, err := NewRotatingWriter(filepath.Join(dir, "watcher.log"), 10)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	log.SetOutput(w)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		log.Print("first line after the directory is gone")
		log.Print("second line goes to stderr")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected logging to keep working after failed rotation")
	}

	if w.file != nil {
		t.Error("Expected writer to fall back to stderr")
	}
}
