package templates

import (
	"slices"
	"strings"

	"github.com/inful/mdfp"
)

// fingerprint hashes template names and contents so unchanged sources can be
// detected without re-parsing.
func fingerprint(sources map[string]string) string {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	slices.Sort(names)

	var body strings.Builder
	for _, name := range names {
		body.WriteString(name)
		body.WriteByte(0)
		body.WriteString(sources[name])
		body.WriteByte(0)
	}
	return mdfp.CalculateFingerprintFromParts(strings.Join(names, "\n"), body.String())
}
