package main

import "dais/internal/cli"

func main() {
	cli.Execute()
}
