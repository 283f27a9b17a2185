// Command git-rev-macro prints the firmware source revision as a compiler
// define. Wire it into the build as a build_flags script.
package main

import "github.com/rapidia/firmware-export/cmd/git-rev-macro/cmd"

func main() {
	cmd.Execute()
}
