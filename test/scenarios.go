// Package test holds end-to-end scenarios run against a live server, either
// by cmd/testrunner or in-process by the package tests.
package test

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/testclient"
)

// waitTimeout bounds every wait for a server line.
const waitTimeout = 2 * time.Second

// uniqueCounter provides unique client names within a single run
var uniqueCounter uint64

func uniqueName(base string) string {
	return fmt.Sprintf("%s%d", base, atomic.AddUint64(&uniqueCounter, 1))
}

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func fail(name, format string, args ...any) TestResult {
	return TestResult{Name: name, Passed: false, Message: fmt.Sprintf(format, args...)}
}

func pass(name, message string) TestResult {
	return TestResult{Name: name, Passed: true, Message: message}
}

// pair connects two players and returns them as X and O.
func pair(testName, serverAddr string) (x, o *testclient.TestClient, err error) {
	a, err := testclient.NewTestClient(uniqueName("Player"), serverAddr)
	if err != nil {
		return nil, nil, err
	}
	b, err := testclient.NewTestClient(uniqueName("Player"), serverAddr)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	logAction(testName, fmt.Sprintf("Connected %s and %s", a.Name, b.Name))

	deadline := time.Now().Add(waitTimeout)
	for a.GetToken() == "" || b.GetToken() == "" {
		if time.Now().After(deadline) {
			a.Close()
			b.Close()
			return nil, nil, errors.New("players were not paired")
		}
		time.Sleep(20 * time.Millisecond)
	}

	if a.GetToken() == "X" {
		return a, b, nil
	}
	return b, a, nil
}

// step plays one move and waits for the opponent to see it.
func step(testName string, mover, opp *testclient.TestClient, row, col int) error {
	opp.ClearMessages()
	logAction(testName, fmt.Sprintf("%s plays %d,%d", mover.GetToken(), row, col))
	if err := mover.Move(row, col); err != nil {
		return err
	}
	want := fmt.Sprintf("TURN %s %d %d", mover.GetToken(), row, col)
	if !opp.WaitForMessage(want, waitTimeout) {
		return fmt.Errorf("%s never saw %q, got %v", opp.GetToken(), want, opp.GetMessages())
	}
	return nil
}

// RunAllTests runs all integration tests
func RunAllTests(serverAddr string) []TestResult {
	return []TestResult{
		TestHandshake(serverAddr),
		TestHandshakeRejected(serverAddr),
		TestPairing(serverAddr),
		TestWinningGame(serverAddr),
		TestDrawGame(serverAddr),
		TestInvalidMoves(serverAddr),
		TestForfeit(serverAddr),
	}
}

// PrintResults prints a summary of the results
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
