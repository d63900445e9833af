// Command whereami serves the cosmic displacement API and computes reports
// from the command line.
package main

func main() {
	Execute()
}
