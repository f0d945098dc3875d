// Copyright 2024 The radrkit Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package oodle is a thin façade over the Oodle compression shared
// library. It never links the library directly (no cgo, no static
// import) — instead it locates the platform shared object at runtime
// and resolves the handful of entry points the archive reader needs,
// the same way saferwall-pe memory-maps a PE file and dereferences
// into it rather than loading it as code: the library is treated as
// pure data until a caller asks to run one of its exported functions.
package oodle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// OodleLZBlockLen is OODLELZ_BLOCK_LEN: the scratch decoder buffer is
// sized to twice this.
const OodleLZBlockLen = 0x40000

// krakenMagic is the 4-byte 'KRAK' marker prefixing a compressed
// segment (§3, §6).
var krakenMagic = [4]byte{'K', 'R', 'A', 'K'}

// ErrNotAvailable is returned by Decompress when no Oodle library
// could be located or its entry points could not be resolved.
var ErrNotAvailable = errors.New("oodle: library not available")

// ErrBadHeader is returned when the 8-byte compressed-segment header
// doesn't start with the 'KRAK' magic.
var ErrBadHeader = errors.New("oodle: bad segment header, expected KRAK magic")

// ErrSizeMismatch is returned when dst isn't sized to the header's
// declared uncompressed size.
var ErrSizeMismatch = errors.New("oodle: destination size does not match header uncompressed size")

// oodleLZDecompress is the signature of OodleLZ_Decompress as exposed
// by the shared library: it takes compressed and raw buffer pointers
// and lengths and a pile of tuning knobs the archive reader never
// needs to vary, so only the prefix this façade uses is modeled.
type oodleLZDecompressFunc func(
	compBuf uintptr, compBufSize int64,
	rawBuf uintptr, rawLen int64,
	fuzzSafe, checkCRC, verbosity int32,
	rawBufferPlusOffset uintptr, offs int64,
	decoderMemory uintptr, decoderMemorySize int64,
	threadPhase int64,
) int64

// Facade dispatches decompression calls through a runtime-bound
// library handle. The zero value is unusable; construct one with
// Load.
type Facade struct {
	mu       sync.Mutex
	handle   uintptr
	decomp   oodleLZDecompressFunc
	hasDecmp bool
}

// Load attempts to locate and bind the Oodle shared library. dirs is
// a list of additional directories to search (typically: a
// configured override directory, then the game executable's
// directory), tried before the platform's default loader paths.
// Load never fails outright: if no usable library is found,
// IsAvailable reports false and Decompress returns ErrNotAvailable.
func Load(dirs ...string) *Facade {
	f := &Facade{}
	libName := libraryName()
	candidates := make([]string, 0, len(dirs)+1)
	for _, d := range dirs {
		if d == "" {
			continue
		}
		candidates = append(candidates, filepath.Join(d, libName))
	}
	candidates = append(candidates, libName)

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil && path != libName {
			continue
		}
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			continue
		}
		f.handle = handle
		f.bindSymbols()
		break
	}
	return f
}

func libraryName() string {
	switch runtime.GOOS {
	case "windows":
		return "oo2core_9_win64.dll"
	case "darwin":
		return "liboo2coremac64.dylib"
	default:
		return "liboo2corelinux64.so"
	}
}

func (f *Facade) bindSymbols() {
	sym, err := purego.Dlsym(f.handle, "OodleLZ_Decompress")
	if err != nil {
		return
	}
	purego.RegisterFunc(&f.decomp, sym)
	f.hasDecmp = true
}

// IsAvailable reports whether the library was located and its
// decompression entry point resolved.
func (f *Facade) IsAvailable() bool {
	return f != nil && f.handle != 0 && f.hasDecmp
}

// Decompress validates the 8-byte {magic:'KRAK', uncompressed_size}
// header prefixing src, refuses a dst whose length doesn't match the
// declared uncompressed size, and invokes the library with a scratch
// decoder buffer of 2*OodleLZBlockLen (§4.4).
func (f *Facade) Decompress(src []byte, dst []byte, checkCRC bool) error {
	if len(src) < 8 {
		return ErrBadHeader
	}
	if src[0] != krakenMagic[0] || src[1] != krakenMagic[1] ||
		src[2] != krakenMagic[2] || src[3] != krakenMagic[3] {
		return ErrBadHeader
	}
	uncompressedSize := binary.LittleEndian.Uint32(src[4:8])
	if uint32(len(dst)) != uncompressedSize {
		return ErrSizeMismatch
	}
	if !f.IsAvailable() {
		return ErrNotAvailable
	}

	payload := src[8:]
	scratch := make([]byte, 2*OodleLZBlockLen)

	f.mu.Lock()
	defer f.mu.Unlock()

	crc := int32(0)
	if checkCRC {
		crc = 1
	}
	n := f.decomp(
		sliceAddr(payload), int64(len(payload)),
		sliceAddr(dst), int64(len(dst)),
		1, crc, 0,
		0, 0,
		sliceAddr(scratch), int64(len(scratch)),
		3,
	)
	if n != int64(len(dst)) {
		return fmt.Errorf("oodle: decompress returned %d bytes, want %d", n, len(dst))
	}
	return nil
}

// sliceAddr returns the address of b's backing array, or 0 for an
// empty slice — the sentinel the C entry point expects for "no data".
func sliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}
