package main

import "github.com/execdash/execdash/internal/cli"

func main() {
	cli.Execute()
}
