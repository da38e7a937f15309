package scan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/roobie/galdi/pkg/checksum"
	"github.com/roobie/galdi/pkg/snapshot"
)

func entryByPath(t *testing.T, entries []snapshot.Entry, path string) snapshot.Entry {
	t.Helper()
	for _, e := range entries {
		if e.Path == path {
			return e
		}
	}
	t.Fatalf("no entry for path %q among %d entries", path, len(entries))
	return snapshot.Entry{}
}

func TestScanBasicTree(t *testing.T) {
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "a.txt"), "hello")
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	mustWriteFile(t, filepath.Join(root, "sub", "b.txt"), "world")

	result, err := Scan(context.Background(), Options{Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(result.Entries), result.Entries)
	}

	a := entryByPath(t, result.Entries, "a.txt")
	if a.Type != snapshot.KindFile || a.Checksum == nil {
		t.Fatalf("unexpected entry for a.txt: %+v", a)
	}

	sub := entryByPath(t, result.Entries, "sub")
	if sub.Type != snapshot.KindDirectory {
		t.Fatalf("unexpected entry for sub: %+v", sub)
	}

	b := entryByPath(t, result.Entries, "sub/b.txt")
	if b.Type != snapshot.KindFile || b.Checksum == nil {
		t.Fatalf("unexpected entry for sub/b.txt: %+v", b)
	}
}

// TestScanDeepNesting exercises queue re-feeding across many directory
// levels.
func TestScanDeepNesting(t *testing.T) {
	root := t.TempDir()
	const depth = 25
	current := root
	for i := 0; i < depth; i++ {
		current = filepath.Join(current, "d")
		if err := os.Mkdir(current, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	mustWriteFile(t, filepath.Join(current, "leaf.txt"), "x")

	result, err := Scan(context.Background(), Options{Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 4})
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Entries) != depth+1 {
		t.Fatalf("expected %d entries, got %d", depth+1, len(result.Entries))
	}
}

func TestScanSymlinkNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires elevated privileges on windows")
	}
	root := t.TempDir()
	mustWriteFile(t, filepath.Join(root, "real.txt"), "data")
	if err := os.Symlink("real.txt", filepath.Join(root, "link")); err != nil {
		t.Fatal(err)
	}

	result, err := Scan(context.Background(), Options{Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 2})
	if err != nil {
		t.Fatal(err)
	}

	link := entryByPath(t, result.Entries, "link")
	if link.Type != snapshot.KindSymlink {
		t.Fatalf("expected link to be recorded as symlink, got %+v", link)
	}
	if link.Target == nil || *link.Target != "real.txt" {
		t.Fatalf("expected target real.txt, got %+v", link.Target)
	}
	if link.Checksum != nil {
		t.Fatalf("expected symlink checksum to be nil, got %v", *link.Checksum)
	}
}

// TestScanUnreadableDirectoryMidScan pins the case of a directory whose
// permissions are removed mid-scan: it is recorded degraded, with a
// warning, and does not abort the scan.
func TestScanUnreadableDirectoryMidScan(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX permission bits behave differently on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permission bits")
	}
	root := t.TempDir()
	locked := filepath.Join(root, "locked")
	if err := os.Mkdir(locked, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWriteFile(t, filepath.Join(locked, "secret.txt"), "s")
	mustWriteFile(t, filepath.Join(root, "visible.txt"), "v")

	if err := os.Chmod(locked, 0o000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0o755)

	result, err := Scan(context.Background(), Options{Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 2})
	if err != nil {
		t.Fatal(err)
	}

	lockedEntry := entryByPath(t, result.Entries, "locked")
	if lockedEntry.Type != snapshot.KindDirectory || lockedEntry.Mode != "000" || lockedEntry.Size != 0 {
		t.Fatalf("expected degraded locked entry, got %+v", lockedEntry)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected at least one warning for the unreadable directory")
	}

	visible := entryByPath(t, result.Entries, "visible.txt")
	if visible.Type != snapshot.KindFile {
		t.Fatalf("expected scan to continue past the unreadable directory: %+v", visible)
	}
}

func TestScanRejectsNonUTF8PathWithWarning(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("windows filenames are UTF-16 and cannot hold invalid UTF-8 byte sequences")
	}
	root := t.TempDir()
	badName := string([]byte{0xff, 0xfe, 'x'})
	if err := os.WriteFile(filepath.Join(root, badName), []byte("data"), 0o644); err != nil {
		t.Skipf("filesystem rejected the invalid-UTF-8 name outright: %v", err)
	}
	mustWriteFile(t, filepath.Join(root, "ok.txt"), "data")

	result, err := Scan(context.Background(), Options{Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 2})
	if err != nil {
		t.Fatal(err)
	}

	if len(result.Entries) != 1 {
		t.Fatalf("expected only the valid-UTF-8 entry to be recorded, got %d: %+v", len(result.Entries), result.Entries)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning for the rejected non-UTF-8 path")
	}
}

func TestScanCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		dir := filepath.Join(root, "d"+string(rune('a'+i%26))+string(rune('0'+i/26)))
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		mustWriteFile(t, filepath.Join(dir, "f.txt"), "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Scan(ctx, Options{Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 2})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestScanMaxDepth(t *testing.T) {
	root := t.TempDir()
	level1 := filepath.Join(root, "level1")
	level2 := filepath.Join(level1, "level2")
	if err := os.MkdirAll(level2, 0o755); err != nil {
		t.Fatal(err)
	}
	mustWriteFile(t, filepath.Join(level2, "deep.txt"), "x")

	maxDepth := 1
	result, err := Scan(context.Background(), Options{
		Root: root, Algorithm: checksum.AlgorithmSHA256, Parallelism: 2, MaxDepth: &maxDepth,
	})
	if err != nil {
		t.Fatal(err)
	}

	entryByPath(t, result.Entries, "level1")
	entryByPath(t, result.Entries, "level1/level2")
	for _, e := range result.Entries {
		if e.Path == "level1/level2/deep.txt" {
			t.Fatalf("expected MaxDepth to stop descent into %q", e.Path)
		}
	}
}

func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
