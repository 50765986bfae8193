package main

import "catalograg/internal/cli"

func main() {
	cli.Execute()
}
