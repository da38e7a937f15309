// Package scan implements a parallel directory traversal: a work-stealing
// scan over a self-feeding queue of directory tasks, producing an
// unordered multiset of raw Entry records that pkg/snapshot then
// canonicalizes. A fixed-size pool of workers pulls tasks off an unbounded
// queue; each directory a worker processes can itself enqueue more tasks,
// and the queue tracks outstanding work itself so it closes exactly once the
// traversal is exhausted.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roobie/galdi/internal/scanfs"
	"github.com/roobie/galdi/pkg/checksum"
	"github.com/roobie/galdi/pkg/galerr"
	"github.com/roobie/galdi/pkg/snapshot"
)

// Warning describes a non-fatal condition encountered during a scan: an
// unreadable directory, an unhashable file, or a rejected non-UTF-8 path.
// Warnings never abort a scan.
type Warning struct {
	Path    string
	Kind    galerr.Kind
	Message string
}

// Options configures a scan. Algorithm selects the checksum used to digest
// regular files; MaxDepth, if non-nil, bounds how many directory levels
// below Root are entered (entries at the boundary are still recorded, their
// children simply are not enumerated); Parallelism is the number of worker
// goroutines and, since each worker holds at most one file open at a time,
// also the bound on concurrently open files.
type Options struct {
	Root        string
	Algorithm   checksum.Algorithm
	MaxDepth    *int
	Parallelism int
}

// Result is the raw output of a scan: entries in whatever order workers
// happened to finish them (scan order is explicitly non-deterministic),
// plus any warnings collected along the way.
type Result struct {
	Entries  []snapshot.Entry
	Warnings []Warning
}

// taskQueue is an unbounded, self-closing work queue: a directory task
// discovered while processing another directory is pushed here, never onto
// a bounded channel, so a worker enqueueing work it just found can never
// block waiting for another worker to make room. A bounded channel used the
// same way can deadlock: once outstanding tasks exceed its capacity while
// every worker is simultaneously blocked trying to push more, nothing is
// left to receive and drain it. pending counts tasks that are queued or in
// flight; the queue closes itself, waking every blocked pop, the instant
// pending reaches zero.
type taskQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   []dirTask
	pending int
	closed  bool
}

func newTaskQueue() *taskQueue {
	q := &taskQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push adds a task and counts it as outstanding work. Called both to seed
// the root task and by a worker enqueueing a subdirectory it just found.
func (q *taskQueue) push(t dirTask) {
	q.mu.Lock()
	q.pending++
	q.items = append(q.items, t)
	q.cond.Signal()
	q.mu.Unlock()
}

// pop blocks until a task is available or the queue has closed, in which
// case ok is false and the caller's worker goroutine should exit.
func (q *taskQueue) pop() (dirTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return dirTask{}, false
	}
	t := q.items[0]
	q.items = q.items[1:]
	return t, true
}

// done marks one task as finished. Once no task is queued or in flight, the
// queue closes itself and wakes every worker blocked in pop.
func (q *taskQueue) done() {
	q.mu.Lock()
	q.pending--
	if q.pending == 0 {
		q.closed = true
		q.cond.Broadcast()
	}
	q.mu.Unlock()
}

type dirTask struct {
	// path is the logical, "/"-separated, Unicode-normalized path recorded
	// in entries.
	path string
	// absPath is the real filesystem path used to actually open/list the
	// directory, built from the raw (non-normalized) names the OS reported
	// at each level, so filesystems that store decomposed Unicode (notably
	// HFS+) are still addressed correctly even though their logical Path
	// is normalized.
	absPath string
	depth   int
}

// Scan performs the parallel traversal and returns every entry reachable
// from opts.Root, not including the root
// entry itself (callers combine that with pkg/snapshot.Build). ctx
// cancellation is observed between directories; a cancelled scan returns a
// *galerr.Error of kind CancelledError.
func Scan(ctx context.Context, opts Options) (*Result, error) {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	rootInfo, err := os.Lstat(opts.Root)
	if err != nil {
		return nil, galerr.Wrap(galerr.KindIO, err, "unable to stat scan root").WithPath(opts.Root)
	}
	if !rootInfo.IsDir() {
		return nil, galerr.New(galerr.KindUsage, "scan root is not a directory").WithPath(opts.Root)
	}

	s := &scanState{
		opts:    opts,
		tasks:   newTaskQueue(),
		entries: make(map[string]snapshot.Entry),
	}

	s.tasks.push(dirTask{path: "", absPath: opts.Root, depth: 0})

	var workers sync.WaitGroup
	for i := 0; i < parallelism; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for {
				task, ok := s.tasks.pop()
				if !ok {
					return
				}
				s.processDirectory(ctx, task)
				s.tasks.done()
			}
		}()
	}
	workers.Wait()

	if s.cancelled.Load() {
		return nil, galerr.New(galerr.KindCancelled, "scan cancelled").WithPath(opts.Root)
	}

	entries := make([]snapshot.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}

	return &Result{Entries: entries, Warnings: s.warnings}, nil
}

// scanState holds the mutable state shared across worker goroutines.
type scanState struct {
	opts  Options
	tasks *taskQueue

	mu       sync.Mutex
	entries  map[string]snapshot.Entry
	warnings []Warning

	cancelled atomic.Bool
}

// addEntry records or replaces the entry for e.Path. Replacement (rather
// than append) matters for directories: a directory is first recorded with
// its real stat information by its parent's enumeration, then replaced with
// the degraded "unreadable" entry if the scanner later fails to enter it, so
// the path never ends up duplicated in the final snapshot.
func (s *scanState) addEntry(e snapshot.Entry) {
	s.mu.Lock()
	s.entries[e.Path] = e
	s.mu.Unlock()
}

func (s *scanState) addWarning(w Warning) {
	s.mu.Lock()
	s.warnings = append(s.warnings, w)
	s.mu.Unlock()
}

// processDirectory enumerates one directory's immediate children, recording
// an Entry for each and enqueueing subdirectories as new work. It never
// returns an error: every failure degrades to a Warning so one bad
// directory can't abort the rest of the scan.
func (s *scanState) processDirectory(ctx context.Context, task dirTask) {
	if ctx.Err() != nil {
		s.cancelled.Store(true)
		return
	}
	if s.cancelled.Load() {
		return
	}

	children, err := os.ReadDir(task.absPath)
	if err != nil {
		if task.path != "" {
			s.addEntry(unreadableDirectoryEntry(task.path))
		}
		s.addWarning(Warning{Path: task.path, Kind: galerr.KindIO, Message: "unable to read directory: " + err.Error()})
		return
	}

	descend := s.opts.MaxDepth == nil || task.depth < *s.opts.MaxDepth

	for _, child := range children {
		if ctx.Err() != nil {
			s.cancelled.Store(true)
			return
		}

		rawName := child.Name()
		if !utf8.ValidString(rawName) {
			s.addWarning(Warning{
				Path:    snapshot.PathJoin(task.path, rawName),
				Kind:    galerr.KindSchema,
				Message: "path component is not valid UTF-8, entry skipped",
			})
			continue
		}
		childAbs := joinOSPath(task.absPath, rawName)
		childPath := snapshot.PathJoin(task.path, norm.NFC.String(rawName))

		info, err := child.Info()
		if err != nil {
			s.addWarning(Warning{Path: childPath, Kind: galerr.KindIO, Message: "unable to stat entry: " + err.Error()})
			continue
		}

		entry, isDir := s.buildEntry(childPath, childAbs, info)
		s.addEntry(entry)

		if isDir && descend {
			s.tasks.push(dirTask{path: childPath, absPath: childAbs, depth: task.depth + 1})
		}
	}
}

// buildEntry constructs the Entry for one already-stat'd filesystem object.
// It returns whether the entry is a directory so the caller knows whether to
// enqueue it as further work.
func (s *scanState) buildEntry(path, absPath string, info os.FileInfo) (snapshot.Entry, bool) {
	mode := scanfs.EntryMode(absPath, info)

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := os.Readlink(absPath)
		if err != nil {
			s.addWarning(Warning{Path: path, Kind: galerr.KindIO, Message: "unable to read symlink target: " + err.Error()})
			target = ""
		}
		target = normalizeSymlinkTarget(target)
		return snapshot.Entry{
			Path: path, Type: snapshot.KindSymlink, Size: uint64(len(target)),
			Mode: mode, ModTime: info.ModTime().UTC(), Target: &target,
		}, false

	case info.IsDir():
		return snapshot.Entry{
			Path: path, Type: snapshot.KindDirectory, Size: uint64(info.Size()),
			Mode: mode, ModTime: info.ModTime().UTC(),
		}, true

	case info.Mode().IsRegular():
		sum, err := checksum.DigestFile(absPath, s.opts.Algorithm)
		var checksumPtr *string
		if err != nil {
			s.addWarning(Warning{Path: path, Kind: galerr.KindIO, Message: "unable to hash file: " + err.Error()})
		} else {
			checksumPtr = &sum
		}
		return snapshot.Entry{
			Path: path, Type: snapshot.KindFile, Size: uint64(info.Size()),
			Mode: mode, ModTime: info.ModTime().UTC(), Checksum: checksumPtr,
		}, false

	default:
		return snapshot.Entry{
			Path: path, Type: snapshot.KindOther, Size: uint64(info.Size()),
			Mode: mode, ModTime: info.ModTime().UTC(),
		}, false
	}
}

// unreadableDirectoryEntry builds the degraded Entry recorded for a
// directory that was enumerated as a child but could not itself be
// entered: mode "000", size 0, still recorded as a directory so its parent
// link stays intact.
func unreadableDirectoryEntry(path string) snapshot.Entry {
	return snapshot.Entry{
		Path: path, Type: snapshot.KindDirectory, Size: 0, Mode: scanfs.UnreadableDirectoryMode,
	}
}

// joinOSPath joins a real filesystem directory path with one raw child name
// using the platform's own separator, since absPath values are addressed to
// the OS, not to the "/"-only logical path convention entries use.
func joinOSPath(dir, name string) string {
	return filepath.Join(dir, name)
}

// normalizeSymlinkTarget rewrites a raw symlink target to use forward
// slashes, matching the path convention used for every path galdi records,
// including the non-Path Target field.
func normalizeSymlinkTarget(target string) string {
	if os.PathSeparator == '/' {
		return target
	}
	out := make([]byte, len(target))
	for i := 0; i < len(target); i++ {
		if target[i] == os.PathSeparator {
			out[i] = '/'
		} else {
			out[i] = target[i]
		}
	}
	return string(out)
}
