// Command hlxctl is a thin interactive client for exercising the HLX
// client library end to end against an hlxproxyd or hlxserverd.
package main

import "github.com/gerickson-labs/hlxgo/cmd/hlxctl/cmd"

func main() {
	cmd.Execute()
}
