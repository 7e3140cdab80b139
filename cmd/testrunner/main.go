// testrunner plays scripted games against a running tictactoe-server and
// exits non-zero if any scenario fails.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/lawnchairsociety/tictactoe/test"
)

func main() {
	flags := pflag.NewFlagSet("testrunner", pflag.ExitOnError)
	serverAddr := flags.String("addr", "localhost:4000", "tic-tac-toe server address")
	verbose := flags.BoolP("verbose", "v", false, "Verbose output - show detailed actions for each test")
	flags.Parse(os.Args[1:])

	test.Verbose = *verbose

	fmt.Printf("Running integration tests against %s\n", *serverAddr)
	fmt.Println("Make sure the tic-tac-toe server is running!")
	if *verbose {
		fmt.Println("Verbose mode enabled - showing detailed test actions")
	}
	fmt.Println()

	results := test.RunAllTests(*serverAddr)
	test.PrintResults(results)

	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}
}
