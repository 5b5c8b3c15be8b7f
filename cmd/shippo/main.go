package main

import (
	"github.com/oshokin/shippo/cmd/shippo/cmd"
)

func main() {
	cmd.Execute()
}
