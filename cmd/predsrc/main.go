package main

import "github.com/mvp-joe/predsrc/internal/cli"

func main() {
	cli.Execute()
}
