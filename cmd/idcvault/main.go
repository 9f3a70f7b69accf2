package main

import (
	"github.com/idcvault/idcvault/internal/cli"
)

func main() {
	cli.Execute()
}
