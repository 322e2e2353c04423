package main

import "github.com/rauko1753/filch/cmd"

func main() {
	cmd.Execute()
}
