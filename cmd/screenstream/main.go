package main

import (
	"screenstream/cmd/screenstream/commands"
)

func main() {
	commands.Execute()
}
