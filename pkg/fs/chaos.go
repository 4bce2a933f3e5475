package fs

import (
	"errors"
	iofs "io/fs"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection.
type ChaosConfig struct {
	// ReadFailRate controls how often FS.ReadFile fails entirely.
	// Returns EACCES, EIO, EMFILE or ENFILE.
	ReadFailRate float64

	// PartialReadRate controls how often FS.ReadFile returns a truncated
	// prefix of the contents together with EIO.
	PartialReadRate float64

	// WriteFailRate controls how often FS.WriteFileAtomic fails without
	// touching the target. Returns EIO, ENOSPC, EDQUOT or EROFS.
	WriteFailRate float64

	// MkdirFailRate controls how often FS.Mkdir and FS.MkdirAll fail.
	// Returns EACCES, EIO, ENOSPC, EDQUOT, EROFS or ENOTDIR.
	MkdirFailRate float64

	// ReadDirFailRate controls how often FS.ReadDir fails entirely.
	// Returns EACCES, EIO, EMFILE or ENFILE.
	ReadDirFailRate float64

	// StatFailRate controls how often FS.Lstat and FS.Exists fail.
	// Returns EACCES or EIO.
	StatFailRate float64

	// RemoveFailRate controls how often FS.Remove and FS.RemoveAll fail.
	// Returns EACCES, EPERM, EBUSY, EIO or EROFS.
	RemoveFailRate float64
}

// WriteOnly returns a config that only injects faults into mutating
// operations that create things. Harnesses treat such failures as a rejected
// write, so a run under this config never reports a false defect.
func WriteOnly(rate float64) *ChaosConfig {
	return &ChaosConfig{WriteFailRate: rate, MkdirFailRate: rate}
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive enables fault-rate injection.
	// This is the default mode for a new [Chaos].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	ChaosModeNoOp
)

// ChaosStats contains counts of injected faults.
type ChaosStats struct {
	ReadFails    int64
	PartialReads int64
	WriteFails   int64
	MkdirFails   int64
	ReadDirFails int64
	StatFails    int64
	RemoveFails  int64
}

// Total returns the sum of all counters.
func (s ChaosStats) Total() int64 {
	return s.ReadFails + s.PartialReads + s.WriteFails + s.MkdirFails +
		s.ReadDirFails + s.StatFails + s.RemoveFails
}

// chaosError marks an error as intentionally injected by [Chaos].
//
// It wraps an [*iofs.PathError] carrying a real errno so os.IsPermission and
// friends keep working through unwrapping.
type chaosError struct {
	Err error
}

func (e *chaosError) Error() string {
	return "chaos: " + e.Err.Error()
}

func (e *chaosError) Unwrap() error {
	return e.Err
}

// IsChaosErr reports whether err (or any wrapped error) was injected by [Chaos].
func IsChaosErr(err error) bool {
	var injected *chaosError

	return errors.As(err, &injected)
}

// Chaos wraps an [FS] and injects random failures for testing.
//
// Chaos never injects ENOENT: any os.IsNotExist result originates from the
// wrapped [FS]. Each call independently decides whether to inject.
// Injected write and mkdir failures happen before the wrapped FS is called,
// so the target is left untouched.
type Chaos struct {
	fs     FS
	rng    *rand.Rand
	config ChaosConfig
	mode   atomic.Uint32

	rngMu sync.Mutex

	readFails    atomic.Int64
	partialReads atomic.Int64
	writeFails   atomic.Int64
	mkdirFails   atomic.Int64
	readDirFails atomic.Int64
	statFails    atomic.Int64
	removeFails  atomic.Int64
}

// NewChaos creates a new [Chaos] filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// Panics if underlying is nil.
func NewChaos(underlying FS, seed uint64, config *ChaosConfig) *Chaos {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	return &Chaos{
		fs:     underlying,
		rng:    rand.New(rand.NewPCG(seed, seed)),
		config: *config,
	}
}

// SetMode updates [Chaos] behavior. Safe to call concurrently.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// Stats returns the current fault injection counts.
func (c *Chaos) Stats() ChaosStats {
	return ChaosStats{
		ReadFails:    c.readFails.Load(),
		PartialReads: c.partialReads.Load(),
		WriteFails:   c.writeFails.Load(),
		MkdirFails:   c.mkdirFails.Load(),
		ReadDirFails: c.readDirFails.Load(),
		StatFails:    c.statFails.Load(),
		RemoveFails:  c.removeFails.Load(),
	}
}

// ReadFile reads a file's contents with fault injection.
func (c *Chaos) ReadFile(path string) ([]byte, error) {
	err := c.inject("read", path, faultRead)
	if err != nil {
		return nil, err
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(data) > 1 && c.should(c.config.PartialReadRate) {
		c.partialReads.Add(1)
		cutoff := c.randIntn(len(data)-1) + 1

		return data[:cutoff], pathError("read", path, unix.EIO)
	}

	return data, nil
}

// WriteFileAtomic writes a file with fault injection.
func (c *Chaos) WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	err := c.inject("write", path, faultWrite)
	if err != nil {
		return err
	}

	return c.fs.WriteFileAtomic(path, data, perm)
}

// ReadDir reads directory contents with fault injection.
func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	err := c.inject("readdir", path, faultReadDir)
	if err != nil {
		return nil, err
	}

	return c.fs.ReadDir(path)
}

// Mkdir creates a directory with fault injection.
func (c *Chaos) Mkdir(path string, perm os.FileMode) error {
	err := c.inject("mkdir", path, faultMkdir)
	if err != nil {
		return err
	}

	return c.fs.Mkdir(path, perm)
}

// MkdirAll creates a directory and parents with fault injection.
func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	err := c.inject("mkdirall", path, faultMkdir)
	if err != nil {
		return err
	}

	return c.fs.MkdirAll(path, perm)
}

// Lstat returns file info with fault injection.
func (c *Chaos) Lstat(path string) (os.FileInfo, error) {
	err := c.inject("lstat", path, faultStat)
	if err != nil {
		return nil, err
	}

	return c.fs.Lstat(path)
}

// Exists checks existence with fault injection.
func (c *Chaos) Exists(path string) (bool, error) {
	err := c.inject("lstat", path, faultStat)
	if err != nil {
		return false, err
	}

	return c.fs.Exists(path)
}

// Remove removes a path with fault injection.
func (c *Chaos) Remove(path string) error {
	err := c.inject("remove", path, faultRemove)
	if err != nil {
		return err
	}

	return c.fs.Remove(path)
}

// RemoveAll removes a path and its contents with fault injection.
func (c *Chaos) RemoveAll(path string) error {
	err := c.inject("removeall", path, faultRemove)
	if err != nil {
		return err
	}

	return c.fs.RemoveAll(path)
}

// faultKind identifies a class of injectable fault.
type faultKind uint8

const (
	faultRead faultKind = iota
	faultWrite
	faultMkdir
	faultReadDir
	faultStat
	faultRemove
)

// inject decides whether op on path fails. Returns the injected error or nil.
func (c *Chaos) inject(op, path string, kind faultKind) error {
	var (
		rate    float64
		counter *atomic.Int64
		errnos  []unix.Errno
	)

	switch kind {
	case faultRead:
		rate, counter = c.config.ReadFailRate, &c.readFails
		errnos = []unix.Errno{unix.EACCES, unix.EIO, unix.EMFILE, unix.ENFILE}

	case faultWrite:
		rate, counter = c.config.WriteFailRate, &c.writeFails
		errnos = []unix.Errno{unix.EIO, unix.ENOSPC, unix.EDQUOT, unix.EROFS}

	case faultMkdir:
		rate, counter = c.config.MkdirFailRate, &c.mkdirFails
		errnos = []unix.Errno{unix.EACCES, unix.EIO, unix.ENOSPC, unix.EDQUOT, unix.EROFS, unix.ENOTDIR}

	case faultReadDir:
		rate, counter = c.config.ReadDirFailRate, &c.readDirFails
		errnos = []unix.Errno{unix.EACCES, unix.EIO, unix.EMFILE, unix.ENFILE}

	case faultStat:
		rate, counter = c.config.StatFailRate, &c.statFails
		errnos = []unix.Errno{unix.EACCES, unix.EIO}

	case faultRemove:
		rate, counter = c.config.RemoveFailRate, &c.removeFails
		errnos = []unix.Errno{unix.EACCES, unix.EPERM, unix.EBUSY, unix.EIO, unix.EROFS}

	default:
		panic("unknown fault kind")
	}

	if !c.should(rate) {
		return nil
	}

	counter.Add(1)

	return pathError(op, path, errnos[c.randIntn(len(errnos))])
}

// should returns true with the given probability when chaos is active.
func (c *Chaos) should(rate float64) bool {
	if ChaosMode(c.mode.Load()) != ChaosModeActive || rate <= 0 {
		return false
	}

	c.rngMu.Lock()
	result := c.rng.Float64()
	c.rngMu.Unlock()

	return result < rate
}

// randIntn returns a random int in [0, n) (thread-safe).
func (c *Chaos) randIntn(n int) int {
	c.rngMu.Lock()
	result := c.rng.IntN(n)
	c.rngMu.Unlock()

	return result
}

func pathError(op, path string, errno unix.Errno) error {
	return &chaosError{Err: &iofs.PathError{Op: op, Path: path, Err: errno}}
}

// Compile-time interface check.
var _ FS = (*Chaos)(nil)
