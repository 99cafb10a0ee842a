package main

import (
	"github.com/mathmaster/mathmaster-go/internal/cli"
)

func main() {
	cli.Execute()
}
