// Command firmware-export publishes a built firmware image into the host
// application checkout and stamps its package manifest with the version.
package main

import "github.com/rapidia/firmware-export/cmd/firmware-export/cmd"

func main() {
	cmd.Execute()
}
