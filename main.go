package main

import "github.com/spritemill/spritemill/cmd"

func main() {
	cmd.Execute()
}
