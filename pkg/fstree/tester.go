package fstree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/pkg/fault"
	"github.com/calvinalkan/harnesskit/pkg/fs"
)

// Transformer changes the on-disk representation of a written tree and must
// restore it exactly.
//
// Return an error wrapping [fault.ErrCollaboratorFailure] when an external
// capability could not do its job; the iteration is then vacuous. Any error
// wrapping [fault.ErrStructuralDefect] is a finding. Other errors are
// treated as defects.
type Transformer interface {
	Transform(t *Tree) error
}

// Tester drives a tree through write, verify, transform, verify and remove.
type Tester struct {
	FS fs.FS

	// Transform is optional.
	Transform Transformer

	// Logger defaults to a no-op logger.
	Logger *zap.Logger
}

// Run executes the full cycle for one tree.
//
// Returns nil on success and on vacuous outcomes, an error wrapping
// [ErrWriteRejected] when the filesystem refused the tree, and a structural
// defect when any post-condition fails after a step that guaranteed it.
func (ts *Tester) Run(tree *Tree) error {
	log := ts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	root := tree.Path()
	log = log.With(zap.String("root", root))

	exists, err := ts.FS.Exists(root)
	if err != nil {
		return fmt.Errorf("%w: checking root %q: %w", ErrWriteRejected, root, err)
	}

	// Never clean up a root this run did not create.
	if exists {
		return fmt.Errorf("%w: %w: %q", ErrWriteRejected, ErrExists, root)
	}

	err = tree.Write(ts.FS)
	if err != nil {
		log.Debug("write rejected", zap.Error(err))

		cleanupErr := ts.FS.RemoveAll(root)
		if cleanupErr != nil {
			log.Warn("cleanup after rejected write failed", zap.Error(cleanupErr))
		}

		return fmt.Errorf("%w: %w", ErrWriteRejected, err)
	}

	err = tree.Verify(ts.FS)
	if err != nil {
		return fault.Defect("verify failed after successful write: %v", err)
	}

	if ts.Transform != nil {
		err = ts.Transform.Transform(tree)

		switch {
		case err == nil:
		case fault.IsDefect(err):
			return err
		case fault.IsCollaborator(err):
			log.Debug("transform unavailable", zap.Error(err))

			cleanupErr := ts.FS.RemoveAll(root)
			if cleanupErr != nil {
				log.Warn("cleanup after collaborator failure failed", zap.Error(cleanupErr))
			}

			return nil
		default:
			return fault.Defect("transform: %v", err)
		}

		err = tree.Verify(ts.FS)
		if err != nil {
			return fault.Defect("verify failed after transform: %v", err)
		}
	}

	err = tree.Remove(ts.FS)
	if err != nil {
		return fault.Defect("removing the tree failed: %v", err)
	}

	exists, err = ts.FS.Exists(root)
	if err != nil {
		return fault.Defect("checking root after remove: %v", err)
	}

	if exists {
		return fault.Defect("root %q still exists after remove", root)
	}

	log.Debug("tree round trip ok", zap.Int("files", tree.Stats().Files))

	return nil
}

// Archiver packs a directory into a single file and unpacks it again.
//
// Pack archives sourceDir, including its own name, into outFile. Unpack
// extracts inFile into destDir, recreating the packed directory there.
type Archiver interface {
	Pack(sourceDir, outFile string) error
	Unpack(inFile, destDir string) error
}

// ArchiverTransform round-trips a tree through an [Archiver]: pack, delete
// the tree, unpack, delete the archive.
type ArchiverTransform struct {
	Archiver Archiver
	FS       fs.FS

	// ArchivePath is where the archive is written. It must lie outside the
	// tree.
	ArchivePath string
}

// Transform implements [Transformer].
func (a *ArchiverTransform) Transform(t *Tree) error {
	root := t.Path()

	err := a.Archiver.Pack(root, a.ArchivePath)
	if err != nil {
		// Best effort: a failed pack may leave a partial archive behind.
		_ = a.FS.RemoveAll(a.ArchivePath)

		return fault.Collaborator("pack %q: %v", root, err)
	}

	err = a.FS.RemoveAll(root)
	if err != nil {
		return fault.Defect("removing the working directory failed: %v", err)
	}

	err = a.Archiver.Unpack(a.ArchivePath, t.Base)
	if err != nil {
		return fault.Defect("archiver cannot process its own data: %v", err)
	}

	err = a.FS.Remove(a.ArchivePath)
	if err != nil {
		return fault.Defect("removing the archive failed: %v", err)
	}

	return nil
}

var _ Transformer = (*ArchiverTransform)(nil)
