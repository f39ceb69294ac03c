package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDims(value string) ([]uint64, error) {
	parts := splitList(value)
	dims := make([]uint64, 0, len(parts))
	for _, p := range parts {
		d, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid image dimension '%s': %w", p, err)
		}
		dims = append(dims, d)
	}
	return dims, nil
}

func errUnknownFormat(format string) error {
	return fmt.Errorf("unknown format '%s'; expected csv, text, recordio, image, or parquet", format)
}
