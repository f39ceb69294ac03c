package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/Doomsbay/FeedKit/feedkit/insights"
)

func runInsights(args []string) {
	fs := flag.NewFlagSet("insights", flag.ExitOnError)
	flags := addReaderFlags(fs)
	nullLike := fs.String("null-like", "", "Comma-separated values counted as missing")
	if err := fs.Parse(args); err != nil {
		fatalf("parse args failed: %v", err)
	}

	r, err := flags.buildReader()
	if err != nil {
		fatalf("build reader failed: %v", err)
	}
	defer func() {
		_ = r.Close()
	}()

	stats, err := insights.Analyze(r, insights.Options{
		NullLikeValues: splitList(*nullLike),
		MaxExampleLen:  64,
	})
	if err != nil {
		fatalf("analyze failed: %v", err)
	}

	for _, s := range stats {
		fmt.Fprintf(os.Stdout, "%s: rows=%d missing=%d", s.Name, s.Rows, s.Missing)
		if s.NumericCount > 0 {
			fmt.Fprintf(os.Stdout, " numeric=%d min=%g max=%g mean=%g",
				s.NumericCount, s.NumericMin, s.NumericMax, s.Mean())
		}
		if s.StrMaxLen > 0 {
			fmt.Fprintf(os.Stdout, " strlen=[%d,%d]", s.StrMinLen, s.StrMaxLen)
		}
		if s.ExampleValue != "" {
			fmt.Fprintf(os.Stdout, " example=%q", s.ExampleValue)
		}
		fmt.Fprintln(os.Stdout)
	}
}
