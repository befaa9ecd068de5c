// Command askdocs indexes a directory of documents (txt, md, pdf, docx) into
// a local embedding index and answers questions over them from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/askdocs/askdocs-go/cmd/askdocs/commands"
)

func main() {
	// A missing .env is fine; explicit env vars and the YAML config cover it.
	_ = godotenv.Load()

	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
