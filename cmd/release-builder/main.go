package main

import "github.com/retinalogix/release-builder/cmd/release-builder/cmd"

func main() {
	cmd.Execute()
}
