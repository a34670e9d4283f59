package mapping

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/stsci-crds/crds-go/internal/crdserrors"
)

// Checksum is implemented with the standard library's crypto/sha1
// rather than a third-party hashing library: the checksum format pins
// the algorithm itself (SHA-1) as part of the wire format, so there is
// no "which hash library" choice to make — any implementation must
// produce the exact same digest, which the standard library already
// guarantees bit-for-bit. cespare/xxhash (see internal/cache) fills
// the one hashing role in this system that IS a free implementation
// choice: the in-memory cache's fast change-detection fingerprint.

// Checksum computes the SHA-1 hex digest of content with every line
// containing the substring "sha1sum" elided.
func Checksum(content string) string {
	h := sha1.New()
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, "sha1sum") {
			continue
		}
		if !first {
			h.Write([]byte("\n"))
		}
		h.Write([]byte(line))
		first = false
	}
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChecksum compares the computed checksum of content against
// declared (header.sha1sum), returning *crdserrors.ChecksumError on
// mismatch.
func VerifyChecksum(file, content, declared string) error {
	got := Checksum(content)
	if !strings.EqualFold(got, declared) {
		return &crdserrors.ChecksumError{File: file, Expected: declared, Got: got}
	}
	return nil
}

var sha1sumFieldRE = regexp.MustCompile(`'sha1sum'\s*:\s*'[^']*'`)

// RewriteChecksum substitutes only the first `'sha1sum' : '...'` field
// in content with the freshly computed checksum, preserving every
// other byte — line order and comments included. It does not
// re-serialize the parsed AST, since this system makes no attempt to
// round-trip user comments.
func RewriteChecksum(content string) (string, error) {
	newSum := Checksum(stripForRewrite(content))
	loc := sha1sumFieldRE.FindStringIndex(content)
	if loc == nil {
		return "", fmt.Errorf("mapping: no 'sha1sum' field found to rewrite")
	}
	replacement := fmt.Sprintf("'sha1sum' : '%s'", newSum)
	return content[:loc[0]] + replacement + content[loc[1]:], nil
}

// stripForRewrite removes the sha1sum line(s) the same way Checksum
// does, so RewriteChecksum computes the digest of the file as it will
// read once the field is blanked, matching VerifyChecksum's own view.
func stripForRewrite(content string) string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if strings.Contains(line, "sha1sum") {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
