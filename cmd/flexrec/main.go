package main

import (
	"github.com/pavanmanishd/flexrec/cmd/flexrec/cmd"
)

func main() {
	cmd.Execute()
}
