// Command otbnrun links a manifest of accelerator applications, runs one
// function on the simulated accelerator and prints the requested data.
package main

import "github.com/tebeka/atexit"

func main() {
	if err := rootCmd.Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
