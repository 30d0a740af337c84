package main

import (
	"github.com/Storyloom-Labs/intrigue/cmd"
)

func main() {
	cmd.Execute()
}
