package fstree

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/calvinalkan/harnesskit/pkg/datasource"
	"github.com/calvinalkan/harnesskit/pkg/fs"
)

// Compression selects the archive stream compression.
type Compression uint8

const (
	CompressNone Compression = iota
	CompressGzip
	CompressZstd
)

func (c Compression) String() string {
	switch c {
	case CompressGzip:
		return "gzip"
	case CompressZstd:
		return "zstd"
	default:
		return "none"
	}
}

// SortOrder selects the order directory members are archived in.
type SortOrder uint8

const (
	SortNone SortOrder = iota
	SortName
	SortReverse
)

// TarOptions configures a [TarArchiver].
type TarOptions struct {
	Compression Compression
	Sort        SortOrder
	Format      tar.Format
}

// DecodeTarOptions reads archiver options: a compression byte (1 gzip,
// 2 zstd, otherwise none), a sort byte (1 by name, 2 reverse name, otherwise
// listing order) and a format byte (2 PAX, 3 USTAR, otherwise GNU).
func DecodeTarOptions(c *datasource.Cursor) (TarOptions, error) {
	var opts TarOptions

	compression, err := c.Uint8()
	if err != nil {
		return opts, err
	}

	sortOrder, err := c.Uint8()
	if err != nil {
		return opts, err
	}

	format, err := c.Uint8()
	if err != nil {
		return opts, err
	}

	switch compression {
	case 1:
		opts.Compression = CompressGzip
	case 2:
		opts.Compression = CompressZstd
	}

	switch sortOrder {
	case 1:
		opts.Sort = SortName
	case 2:
		opts.Sort = SortReverse
	}

	switch format {
	case 2:
		opts.Format = tar.FormatPAX
	case 3:
		opts.Format = tar.FormatUSTAR
	default:
		opts.Format = tar.FormatGNU
	}

	return opts, nil
}

func (o TarOptions) String() string {
	return fmt.Sprintf("compression=%s sort=%d format=%s", o.Compression, o.Sort, o.Format)
}

// TarArchiver is an in-process [Archiver] producing tar archives.
type TarArchiver struct {
	FS      fs.FS
	Options TarOptions
}

var _ Archiver = (*TarArchiver)(nil)

// Pack implements [Archiver].
func (a *TarArchiver) Pack(sourceDir, outFile string) error {
	var buf bytes.Buffer

	cw, err := a.compressor(&buf)
	if err != nil {
		return err
	}

	tw := tar.NewWriter(cw)

	err = a.add(tw, filepath.Dir(sourceDir), filepath.Base(sourceDir))
	if err != nil {
		return errors.Join(err, tw.Close(), cw.Close())
	}

	err = tw.Close()
	if err != nil {
		return errors.Join(fmt.Errorf("closing tar stream: %w", err), cw.Close())
	}

	err = cw.Close()
	if err != nil {
		return fmt.Errorf("closing %s stream: %w", a.Options.Compression, err)
	}

	return a.FS.WriteFileAtomic(outFile, buf.Bytes(), filePerm)
}

func (a *TarArchiver) add(tw *tar.Writer, parent, rel string) error {
	path := filepath.Join(parent, rel)

	info, err := a.FS.Lstat(path)
	if err != nil {
		return err
	}

	hdr := &tar.Header{
		Name:    filepath.ToSlash(rel),
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime().Truncate(time.Second),
		Format:  a.Options.Format,
	}

	switch {
	case info.Mode().IsRegular():
		data, err := a.FS.ReadFile(path)
		if err != nil {
			return err
		}

		hdr.Typeflag = tar.TypeReg
		hdr.Size = int64(len(data))

		err = tw.WriteHeader(hdr)
		if err != nil {
			return fmt.Errorf("header for %q: %w", rel, err)
		}

		_, err = tw.Write(data)
		if err != nil {
			return fmt.Errorf("content for %q: %w", rel, err)
		}

		return nil

	case info.IsDir():
		hdr.Typeflag = tar.TypeDir
		hdr.Name += "/"

		err = tw.WriteHeader(hdr)
		if err != nil {
			return fmt.Errorf("header for %q: %w", rel, err)
		}

		entries, err := a.FS.ReadDir(path)
		if err != nil {
			return err
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}

		switch a.Options.Sort {
		case SortName:
			slices.Sort(names)
		case SortReverse:
			slices.Sort(names)
			slices.Reverse(names)
		case SortNone:
		}

		for _, name := range names {
			err = a.add(tw, parent, filepath.Join(rel, name))
			if err != nil {
				return err
			}
		}

		return nil

	default:
		return fmt.Errorf("%w: %q is %v", ErrUnsupported, path, info.Mode().Type())
	}
}

// Unpack implements [Archiver].
func (a *TarArchiver) Unpack(inFile, destDir string) error {
	data, err := a.FS.ReadFile(inFile)
	if err != nil {
		return err
	}

	r, err := a.decompressor(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer r.Close()

	tr := tar.NewReader(r)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading tar stream: %w", err)
		}

		name := filepath.FromSlash(strings.TrimSuffix(hdr.Name, "/"))
		if !filepath.IsLocal(name) {
			return fmt.Errorf("%w: %q", ErrUnsafePath, hdr.Name)
		}

		target := filepath.Join(destDir, name)

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = a.FS.MkdirAll(target, dirPerm)
			if err != nil {
				return err
			}

		case tar.TypeReg:
			err = a.FS.MkdirAll(filepath.Dir(target), dirPerm)
			if err != nil {
				return err
			}

			content, err := io.ReadAll(tr)
			if err != nil {
				return fmt.Errorf("reading %q: %w", hdr.Name, err)
			}

			err = a.FS.WriteFileAtomic(target, content, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: %q has type %q", ErrUnsupported, hdr.Name, hdr.Typeflag)
		}
	}
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (a *TarArchiver) compressor(w io.Writer) (io.WriteCloser, error) {
	switch a.Options.Compression {
	case CompressGzip:
		return gzip.NewWriter(w), nil
	case CompressZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}

		return enc, nil
	default:
		return nopWriteCloser{w}, nil
	}
}

func (a *TarArchiver) decompressor(r io.Reader) (io.ReadCloser, error) {
	switch a.Options.Compression {
	case CompressGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}

		return gz, nil
	case CompressZstd:
		dec, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("zstd decoder: %w", err)
		}

		return dec.IOReadCloser(), nil
	default:
		return io.NopCloser(r), nil
	}
}
