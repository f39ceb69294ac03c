package cmd

import (
	"flag"
	"fmt"
	"os"

	"github.com/Doomsbay/FeedKit/feedkit/arrowutil"
	"github.com/Doomsbay/FeedKit/feedkit/tensor"
)

func runCat(args []string) {
	fs := flag.NewFlagSet("cat", flag.ExitOnError)
	flags := addReaderFlags(fs)
	maxExamples := fs.Int("max", -1, "Maximum examples to print (-1 = all)")
	progressOn := fs.Bool("progress", false, "Show progress")
	asArrow := fs.Bool("arrow", false, "Print examples as Arrow record batches")
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

	schema, err := r.ReadSchema()
	if err != nil {
		fatalf("read schema failed: %v", err)
	}
	logf("schema: %s", schema)

	bar := newProgress(-1, *progressOn)
	var count int
	for *maxExamples < 0 || count < *maxExamples {
		ex, err := r.ReadExample()
		if err != nil {
			fatalf("read example failed: %v", err)
		}
		if ex == nil {
			break
		}
		printExample(count, ex, *asArrow)
		count++
		bar.increment()
	}
	bar.finish()
	logf("%d example(s), %d byte(s) read", count, r.NumBytesRead())
}

func printExample(idx int, ex *tensor.Example, asArrow bool) {
	if asArrow {
		rec, err := arrowutil.ExampleRecord(ex)
		if err != nil {
			fatalf("arrow conversion failed: %v", err)
		}
		fmt.Fprintf(os.Stdout, "example %d:\n%v\n", idx, rec)
		rec.Release()
		return
	}

	fmt.Fprintf(os.Stdout, "example %d (padding %d):\n", idx, ex.Padding)
	for i, attr := range ex.Schema.Attributes() {
		fmt.Fprintf(os.Stdout, "  %s = %s\n", attr.Name, formatTensor(ex.Features[i]))
	}
}

func formatTensor(t tensor.Tensor) string {
	switch t := t.(type) {
	case *tensor.Dense:
		data := t.Data()
		if data.Len() > 16 {
			return fmt.Sprintf("dense %v %v (%d values)", t.DataType(), t.Shape(), data.Len())
		}
		values := make([]any, data.Len())
		for i := range values {
			values[i] = data.Value(i)
		}
		return fmt.Sprintf("dense %v %v %v", t.DataType(), t.Shape(), values)
	case *tensor.COO:
		return fmt.Sprintf("coo %v %v (%d non-zero)", t.DataType(), t.Shape(), t.Values().Len())
	case *tensor.CSR:
		return fmt.Sprintf("csr %v %v (%d non-zero)", t.DataType(), t.Shape(), t.Values().Len())
	}
	return fmt.Sprintf("%v", t)
}
