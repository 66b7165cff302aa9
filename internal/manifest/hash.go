package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/Norgate-AV/buildenv/internal/profile"
)

// Fingerprint hashes a profile's toolchain and flags. Defines are sorted
// since their order does not change the build; other flag lists keep their
// order.
func Fingerprint(p *profile.Profile) string {
	h := sha256.New()

	write := func(label string, values ...string) {
		h.Write([]byte(label))
		h.Write([]byte{0})
		h.Write([]byte(strings.Join(values, "\x1f")))
		h.Write([]byte{0})
	}

	write("kind", string(p.Kind))
	write("toolchain", p.CC, p.CXX, p.Link, p.AR, p.Ranlib, p.SwiftC)

	defines := make([]string, len(p.CPPDefines))
	copy(defines, p.CPPDefines)
	sort.Strings(defines)
	write("cppdefines", defines...)

	write("cflags", p.CFlags...)
	write("cxxflags", p.CXXFlags...)
	write("ccflags", p.CCFlags...)
	write("cpppath", p.CPPPath...)
	write("linkflags", p.LinkFlags...)
	write("libpath", p.LibPath...)
	write("swiftflags", p.SwiftFlags...)

	return hex.EncodeToString(h.Sum(nil))
}

// HashFile creates a hash of a file's content
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
