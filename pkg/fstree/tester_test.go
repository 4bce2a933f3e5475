package fstree_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/harnesskit/pkg/fault"
	"github.com/calvinalkan/harnesskit/pkg/fs"
	"github.com/calvinalkan/harnesskit/pkg/fstree"
)

type transformFunc func(t *fstree.Tree) error

func (f transformFunc) Transform(t *fstree.Tree) error { return f(t) }

func newTree(t *testing.T) *fstree.Tree {
	t.Helper()

	return &fstree.Tree{Base: t.TempDir(), Root: sampleRoot()}
}

func requireAbsent(t *testing.T, path string) {
	t.Helper()

	if _, err := os.Lstat(path); !os.IsNotExist(err) {
		t.Fatalf("Lstat(%q)=%v, want not exist", path, err)
	}
}

func Test_Tester_Run_Round_Trips_Tree_And_Leaves_Nothing_Behind(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	tester := &fstree.Tester{FS: fs.NewReal()}

	if err := tester.Run(tree); err != nil {
		t.Fatalf("Run: %v", err)
	}

	requireAbsent(t, tree.Path())
}

func Test_Tree_Write_Verify_Remove_Succeed_In_Order(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	fsys := fs.NewReal()

	if err := tree.Write(fsys); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := tree.Verify(fsys); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if err := tree.Remove(fsys); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	requireAbsent(t, tree.Path())

	if err := tree.Remove(fsys); !errors.Is(err, fstree.ErrMissing) {
		t.Fatalf("second Remove err=%v, want=%v", err, fstree.ErrMissing)
	}
}

func Test_Tree_Write_Fails_When_Root_Exists(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	fsys := fs.NewReal()

	if err := os.Mkdir(tree.Path(), 0o700); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := tree.Write(fsys); !errors.Is(err, fstree.ErrExists) {
		t.Fatalf("err=%v, want=%v", err, fstree.ErrExists)
	}
}

func Test_Tree_Verify_Detects_Tampering(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name   string
		tamper func(root string) error
	}{
		{"extra entry", func(root string) error {
			return os.WriteFile(filepath.Join(root, "9"), nil, 0o600)
		}},
		{"changed content", func(root string) error {
			return os.WriteFile(filepath.Join(root, "1"), []byte("HELLO"), 0o600)
		}},
		{"changed size", func(root string) error {
			return os.WriteFile(filepath.Join(root, "2"), []byte("x"), 0o600)
		}},
		{"missing directory", func(root string) error {
			return os.Remove(filepath.Join(root, "3", "4"))
		}},
		{"file replaced by directory", func(root string) error {
			p := filepath.Join(root, "2")
			if err := os.Remove(p); err != nil {
				return err
			}

			return os.Mkdir(p, 0o700)
		}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := newTree(t)
			fsys := fs.NewReal()

			if err := tree.Write(fsys); err != nil {
				t.Fatalf("Write: %v", err)
			}

			if err := tt.tamper(tree.Path()); err != nil {
				t.Fatalf("tamper: %v", err)
			}

			err := tree.Verify(fsys)
			if !errors.Is(err, fstree.ErrMismatch) && !errors.Is(err, fstree.ErrMissing) {
				t.Fatalf("Verify err=%v, want mismatch or missing", err)
			}
		})
	}
}

func Test_Tester_Run_Rejects_Without_Touching_Existing_Root(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	marker := filepath.Join(tree.Path(), "keep")

	if err := os.MkdirAll(filepath.Dir(marker), 0o700); err != nil {
		t.Fatalf("setup: %v", err)
	}

	if err := os.WriteFile(marker, []byte("x"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	err := (&fstree.Tester{FS: fs.NewReal()}).Run(tree)
	if !errors.Is(err, fstree.ErrWriteRejected) || !fault.IsSoft(err) {
		t.Fatalf("err=%v, want soft %v", err, fstree.ErrWriteRejected)
	}

	if _, err := os.Lstat(marker); err != nil {
		t.Fatalf("existing root was modified: %v", err)
	}
}

func Test_Tester_Run_Is_Soft_And_Cleans_Up_When_Write_Fails(t *testing.T) {
	t.Parallel()

	tree := newTree(t)

	// Directories succeed, so the root exists when the first file fails.
	chaos := fs.NewChaos(fs.NewReal(), 42, &fs.ChaosConfig{WriteFailRate: 1})

	err := (&fstree.Tester{FS: chaos}).Run(tree)
	if !errors.Is(err, fstree.ErrWriteRejected) || !fault.IsSoft(err) {
		t.Fatalf("err=%v, want soft %v", err, fstree.ErrWriteRejected)
	}

	if !fs.IsChaosErr(err) {
		t.Fatalf("err=%v, want injected cause", err)
	}

	requireAbsent(t, tree.Path())
}

func Test_Tester_Run_Outcomes_By_Transform_Result(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		name       string
		transform  func(t *fstree.Tree) error
		wantDefect string // empty: want nil
	}{
		{
			name:      "identity",
			transform: func(*fstree.Tree) error { return nil },
		},
		{
			name:      "collaborator failure is vacuous",
			transform: func(*fstree.Tree) error { return fault.Collaborator("no archiver") },
		},
		{
			name: "corruption after transform",
			transform: func(tree *fstree.Tree) error {
				return os.WriteFile(filepath.Join(tree.Path(), "1"), []byte("bye"), 0o600)
			},
			wantDefect: "verify failed after transform",
		},
		{
			name:       "defect propagates",
			transform:  func(*fstree.Tree) error { return fault.Defect("archiver cannot process its own data") },
			wantDefect: "archiver cannot process its own data",
		},
		{
			name:       "unclassified error is a defect",
			transform:  func(*fstree.Tree) error { return errors.New("boom") },
			wantDefect: "boom",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tree := newTree(t)
			tester := &fstree.Tester{FS: fs.NewReal(), Transform: transformFunc(tt.transform)}

			err := tester.Run(tree)

			if tt.wantDefect == "" {
				if err != nil {
					t.Fatalf("Run: %v", err)
				}

				requireAbsent(t, tree.Path())

				return
			}

			if !fault.IsDefect(err) {
				t.Fatalf("err=%v, want defect", err)
			}

			if !strings.Contains(err.Error(), tt.wantDefect) {
				t.Fatalf("err=%q, want mention of %q", err, tt.wantDefect)
			}
		})
	}
}

func Test_Tester_Run_Reports_Defect_When_Remove_Fails(t *testing.T) {
	t.Parallel()

	tree := newTree(t)
	chaos := fs.NewChaos(fs.NewReal(), 1, &fs.ChaosConfig{RemoveFailRate: 1})

	err := (&fstree.Tester{FS: chaos}).Run(tree)
	if !fault.IsDefect(err) {
		t.Fatalf("err=%v, want defect", err)
	}

	if !strings.Contains(err.Error(), "removing the tree failed") {
		t.Fatalf("err=%q, want remove failure", err)
	}
}
