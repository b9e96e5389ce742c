package main

import (
	"github.com/prakhar141/icici-direct/internal/cli"
)

func main() {
	cli.Execute()
}
