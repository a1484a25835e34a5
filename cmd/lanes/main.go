// Command lanes manages a file-backed kanban board.
package main

import "github.com/papapumpkin/lanes/cmd"

func main() {
	cmd.Execute()
}
