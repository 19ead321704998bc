package main

import "segfetch/internal/cli"

func main() {
	cli.Execute()
}
