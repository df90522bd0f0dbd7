package megaraid

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
)

// ParseSize converts a storcli size such as "278.875 GB", "512B" or "4 KB" to
// bytes. storcli prints binary multiples with decimal unit names, so the
// units are read as KiB, MiB and so on.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	num := strings.TrimRightFunc(s, unicode.IsLetter)
	unit := strings.ToUpper(s[len(num):])
	num = strings.TrimSpace(num)

	if len(unit) == 2 && unit[1] == 'B' {
		unit = unit[:1] + "iB"
	}

	n, err := humanize.ParseBytes(num + " " + unit)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}

// toMiB rounds a byte count to whole mebibytes, the unit storcli takes for
// size=
func toMiB(bytes int64) int64 {
	const mib = 1 << 20
	return (bytes + mib/2) / mib
}
