package main

import (
	"os"

	"github.com/Doomsbay/FeedKit/feedkit/cmd"
)

func main() {
	cmd.Execute(os.Args[1:])
}
