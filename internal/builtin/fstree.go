package builtin

import (
	"path/filepath"

	"go.uber.org/zap"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/dispatch"
	"github.com/calvinalkan/harnesskit/pkg/fstree"
	"github.com/calvinalkan/harnesskit/pkg/harness"
)

// maxNameLen keeps generated names well below common NAME_MAX limits.
const maxNameLen = 64

// archiveName never collides with a generated tree, whose names are digits.
const archiveName = "tree.tar"

func (e Env) treeOptions() fstree.Options {
	return fstree.Options{MaxDepth: e.MaxDepth, MaxNameLen: maxNameLen}
}

// FSTree writes a generated tree below env.Base, verifies and removes it.
func FSTree(env Env) harness.Func {
	tester := &fstree.Tester{FS: env.FS, Logger: env.logger()}

	return func(c *datasource.Cursor) error {
		tree, err := fstree.Generate(c, env.Base, env.treeOptions())
		if err != nil {
			return err
		}

		return tester.Run(tree)
	}
}

// FSTreeTar round-trips a generated tree through a [fstree.TarArchiver]
// whose options are decoded after the tree.
func FSTreeTar(env Env) harness.Func {
	return func(c *datasource.Cursor) error {
		tree, err := fstree.Generate(c, env.Base, env.treeOptions())
		if err != nil {
			return err
		}

		opts, err := fstree.DecodeTarOptions(c)
		if err != nil {
			return err
		}

		env.logger().Debug("tar round trip", zap.Stringer("options", opts))

		tester := &fstree.Tester{
			FS: env.FS,
			Transform: &fstree.ArchiverTransform{
				Archiver:    &fstree.TarArchiver{FS: env.archiveFS(), Options: opts},
				FS:          env.archiveFS(),
				ArchivePath: filepath.Join(env.Base, archiveName),
			},
			Logger: env.logger(),
		}

		return tester.Run(tree)
	}
}

// Mixed dispatches between every other harness, up to env.Loops times per
// input.
func Mixed(env Env) harness.Func {
	table := dispatch.New(
		dispatch.Op{Name: "serialize-int", Fn: SerializeInt(env)},
		dispatch.Op{Name: "differential-int", Fn: DifferentialInt(env)},
		dispatch.Op{Name: "fstree", Fn: FSTree(env)},
		dispatch.Op{Name: "fstree-tar", Fn: FSTreeTar(env)},
		dispatch.Op{Name: "serialize-record", Fn: SerializeRecord(env)},
	)

	loops := max(env.Loops, 1)

	return func(c *datasource.Cursor) error {
		return table.Loop(c, loops)
	}
}
