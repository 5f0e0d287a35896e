package variables

import (
	"fmt"
	"strings"
)

// strftimeLayout converts a strftime-style pattern into a Go time layout.
// Only the codes below are supported; an unknown code is an error so the
// caller can fall back to the default format. No third-party strftime
// package appears anywhere in our dependency set, and the needed subset is
// a fixed table.
var strftimeCodes = map[byte]string{
	'Y': "2006",
	'y': "06",
	'm': "01",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'M': "04",
	'S': "05",
	'p': "PM",
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'Z': "MST",
	'z': "-0700",
}

func strftimeLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(pattern) {
			return "", fmt.Errorf("trailing %% in pattern %q", pattern)
		}
		code := pattern[i]
		if code == '%' {
			b.WriteByte('%')
			continue
		}
		layout, ok := strftimeCodes[code]
		if !ok {
			return "", fmt.Errorf("unsupported format code %%%c", code)
		}
		b.WriteString(layout)
	}
	return b.String(), nil
}
