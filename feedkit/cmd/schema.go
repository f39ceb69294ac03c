package cmd

import (
	"flag"
	"fmt"
	"os"
)

func runSchema(args []string) {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	flags := addReaderFlags(fs)
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

	for _, attr := range schema.Attributes() {
		fmt.Fprintf(os.Stdout, "%s\n", attr)
	}
}
