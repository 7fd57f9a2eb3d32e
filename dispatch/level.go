// Package dispatch selects kernel implementations by CPU instruction-set level.
//
// A Level is detected once per process with golang.org/x/sys/cpu. Kernels
// register one variant per level they support in a Table, and Resolve picks
// the best variant the running CPU can execute. This replaces per-variant
// compile-time specialization with a runtime lookup done once at setup.
package dispatch

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// Level is an instruction-set level.
type Level int

const (
	// Generic is portable Go code and is always supported.
	Generic Level = iota
	// SSE42 is x86-64 with SSE4.2 and POPCNT.
	SSE42
	// AVX2 is x86-64 with AVX2 and FMA.
	AVX2
	// AVX512 is x86-64 with AVX-512 F/BW/DQ/VL.
	AVX512
	// NEON is arm64 Advanced SIMD.
	NEON
	// SVE is arm64 Scalable Vector Extension.
	SVE

	numLevels
)

var levelNames = [numLevels]string{
	Generic: "generic",
	SSE42:   "sse42",
	AVX2:    "avx2",
	AVX512:  "avx512",
	NEON:    "neon",
	SVE:     "sve",
}

func (l Level) String() string {
	if l < 0 || l >= numLevels {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel parses a level name as returned by String. Matching is case-insensitive.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return Generic, fmt.Errorf("dispatch: unknown level %q", s)
}

// family groups levels that form a chain of supersets.
func (l Level) family() int {
	switch l {
	case SSE42, AVX2, AVX512:
		return 1
	case NEON, SVE:
		return 2
	default:
		return 0
	}
}

// Supports reports whether code built for other can run on a CPU at level l.
func (l Level) Supports(other Level) bool {
	if other == Generic {
		return true
	}
	return l.family() == other.family() && other <= l
}

// Cap lowers l to max when max is a lower level of the same family. A cap from
// another family leaves only Generic.
func (l Level) Cap(max Level) Level {
	if l.Supports(max) {
		return max
	}
	if max.Supports(l) {
		return l
	}
	return Generic
}

// features is the subset of CPU flags that decides the level.
type features struct {
	sse42, popcnt  bool
	avx2, fma      bool
	avx512         bool
	asimd, sve     bool
	arm64, x86like bool
}

func hostFeatures() features {
	switch runtime.GOARCH {
	case "amd64":
		return features{
			x86like: true,
			sse42:   cpu.X86.HasSSE42,
			popcnt:  cpu.X86.HasPOPCNT,
			avx2:    cpu.X86.HasAVX2,
			fma:     cpu.X86.HasFMA,
			avx512: cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW &&
				cpu.X86.HasAVX512DQ && cpu.X86.HasAVX512VL,
		}
	case "arm64":
		return features{
			arm64: true,
			asimd: cpu.ARM64.HasASIMD,
			sve:   cpu.ARM64.HasSVE,
		}
	}
	return features{}
}

func (f features) level() Level {
	switch {
	case f.x86like:
		switch {
		case f.avx512 && f.avx2 && f.fma:
			return AVX512
		case f.avx2 && f.fma:
			return AVX2
		case f.sse42 && f.popcnt:
			return SSE42
		}
	case f.arm64:
		switch {
		case f.sve && f.asimd:
			return SVE
		case f.asimd:
			return NEON
		}
	}
	return Generic
}

// Detect reports the highest level supported by the running CPU.
func Detect() Level {
	return hostFeatures().level()
}
