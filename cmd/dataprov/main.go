package main

import (
	"github.com/dataprov/dataprov/cmd/dataprov/cmd"
)

func main() {
	cmd.Execute()
}
