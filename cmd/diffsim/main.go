package main

import "github.com/LeJamon/txdiffusion/internal/cli"

func main() {
	cli.Execute()
}
