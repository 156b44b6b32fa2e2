package main

import (
	"github.com/magicat777/vocal-prime/cmd"
)

func main() {
	cmd.Execute()
}
