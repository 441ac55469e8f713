// Command hbmnoc simulates a 2D mesh network-on-chip in front of a banked
// HBM.
package main

import "github.com/sarchlab/hbmnoc/hbmnoc/cmd"

func main() {
	cmd.Execute()
}
