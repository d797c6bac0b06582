// depfix is a CLI tool that fixes dependency conflicts in package.json
// manifests using a remote analysis service, patching the file surgically
// so the user's formatting survives.
package main

import "github.com/depfix-cli/depfix/cmd/depfix/cmd"

func main() {
	cmd.Execute()
}
