// Command qshmctl inspects and edits emulator shared memory regions through
// the qshm plugin.
package main

import "github.com/srediag/plugin-qshm/cmd/qshmctl/commands"

func main() {
	commands.Execute()
}
