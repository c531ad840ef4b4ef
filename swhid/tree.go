package swhid

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Mic92/narswh/fsnode"
)

// ctxKind identifies which of the two SWHID object classes a path hashes to.
type ctxKind string

const (
	ctxContent   ctxKind = "cnt"
	ctxDirectory ctxKind = "dir"
)

// hashPath computes the Git-compatible object id for path, dispatching on
// its fsnode.Kind exactly as the NAR encoder does, and reports which SWHID
// context (cnt or dir) the result belongs to.
func hashPath(path string) (ctxKind, []byte, error) {
	info, err := fsnode.Probe(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("%w: %w", ErrPathNotFound, err)
		}

		if errors.Is(err, fsnode.ErrUnsupported) {
			return "", nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		return "", nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	switch info.Kind {
	case fsnode.Regular:
		oid, err := hashRegular(path)

		return ctxContent, oid, err
	case fsnode.Symlink:
		oid, err := hashBlob([]byte(info.Target))
		if err != nil {
			return "", nil, err
		}

		return ctxContent, oid, nil
	case fsnode.Directory:
		oid, err := hashDirectory(path)

		return ctxDirectory, oid, err
	default:
		return "", nil, fmt.Errorf("%w: unknown node kind for %s", ErrInvalidArgument, path)
	}
}

func hashRegular(path string) ([]byte, error) {
	f, info, err := fsnode.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	oid, err := hashBlobReader(f, info.Size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	return oid, nil
}

// parallelSubtreeThreshold is the minimum number of entries in a directory
// before hashDirectory bothers fanning its children out across an
// errgroup.Group instead of hashing them one at a time; small directories
// aren't worth the goroutine overhead.
const parallelSubtreeThreshold = 4

// hashDirectory computes the Git tree object id for dir. Each child's
// object id is computed first (recursing for subdirectories), then the
// tree body is assembled strictly in the sorted order spec.md §4.5
// requires — independent of whatever order the children were actually
// hashed in, so the optional parallel fan-out below can never perturb the
// result (spec.md §5).
func hashDirectory(dir string) ([]byte, error) {
	entries, err := fsnode.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}

	treeEntries := make([]treeEntry, len(entries))

	if len(entries) < parallelSubtreeThreshold {
		for i, e := range entries {
			te, err := hashChild(e)
			if err != nil {
				return nil, err
			}

			treeEntries[i] = te
		}
	} else {
		g, gctx := errgroup.WithContext(context.Background())
		g.SetLimit(runtime.GOMAXPROCS(0))

		for i, e := range entries {
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}

				te, err := hashChild(e)
				if err != nil {
					return err
				}

				treeEntries[i] = te

				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	sort.Slice(treeEntries, func(i, j int) bool {
		return treeEntries[i].sortOn < treeEntries[j].sortOn
	})

	return hashTree(treeEntries)
}

func hashChild(e fsnode.Entry) (treeEntry, error) {
	info, err := fsnode.Probe(e.Path)
	if err != nil {
		if errors.Is(err, fsnode.ErrUnsupported) {
			return treeEntry{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
		}

		return treeEntry{}, fmt.Errorf("%w: %w", ErrIO, err)
	}

	switch info.Kind {
	case fsnode.Regular:
		oid, err := hashRegular(e.Path)
		if err != nil {
			return treeEntry{}, err
		}

		m := modeRegular
		if info.Executable {
			m = modeExecutable
		}

		return treeEntry{mode: m, name: e.Name, oid: oid, sortOn: e.Name}, nil

	case fsnode.Symlink:
		oid, err := hashBlob([]byte(info.Target))
		if err != nil {
			return treeEntry{}, err
		}

		return treeEntry{mode: modeSymlink, name: e.Name, oid: oid, sortOn: e.Name}, nil

	case fsnode.Directory:
		oid, err := hashDirectory(e.Path)
		if err != nil {
			return treeEntry{}, err
		}

		return treeEntry{mode: modeDirectory, name: e.Name, oid: oid, sortOn: e.Name + "/"}, nil

	default:
		return treeEntry{}, fmt.Errorf("%w: unknown node kind for %s", ErrInvalidArgument, e.Path)
	}
}
