package test

import (
	"fmt"

	"github.com/lawnchairsociety/tictactoe/internal/testclient"
)

// TestHandshake checks the server opens with TICTACTOE.
func TestHandshake(serverAddr string) TestResult {
	const testName = "Handshake"

	client, err := testclient.NewTestClientRaw(serverAddr)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	ok := client.WaitForMessage("TICTACTOE", waitTimeout)
	logResult(testName, ok, fmt.Sprintf("messages: %v", client.GetMessages()))
	if !ok {
		return fail(testName, "No TICTACTOE ping, got %v", client.GetMessages())
	}
	return pass(testName, "Server pinged with TICTACTOE")
}

// TestHandshakeRejected checks a wrong reply gets the connection closed.
func TestHandshakeRejected(serverAddr string) TestResult {
	const testName = "Handshake Rejected"

	client, err := testclient.NewTestClientRaw(serverAddr)
	if err != nil {
		return fail(testName, "Failed to connect: %v", err)
	}
	defer client.Close()

	if !client.WaitForMessage("TICTACTOE", waitTimeout) {
		return fail(testName, "No TICTACTOE ping")
	}
	logAction(testName, "Replying HELLO")
	client.SendCommand("HELLO")

	if !client.WaitForClose(waitTimeout) {
		return fail(testName, "Connection still open after a bad handshake")
	}
	return pass(testName, "Bad handshake closed the connection")
}

// TestPairing checks two players get X and O and X moves first.
func TestPairing(serverAddr string) TestResult {
	const testName = "Pairing"

	x, o, err := pair(testName, serverAddr)
	if err != nil {
		return fail(testName, "%v", err)
	}
	defer x.Close()
	defer o.Close()

	if o.GetToken() != "O" {
		return fail(testName, "Second token = %q, want O", o.GetToken())
	}
	if !x.WaitForMessage("MOVE", waitTimeout) {
		return fail(testName, "X was not asked to move")
	}
	return pass(testName, "Players paired as X and O")
}

// TestWinningGame plays X to a win on the top row.
func TestWinningGame(serverAddr string) TestResult {
	const testName = "Winning Game"

	x, o, err := pair(testName, serverAddr)
	if err != nil {
		return fail(testName, "%v", err)
	}
	defer x.Close()
	defer o.Close()

	moves := []struct {
		x   bool
		row int
		col int
	}{
		{true, 0, 0}, {false, 1, 0}, {true, 0, 1}, {false, 1, 1}, {true, 0, 2},
	}
	for _, m := range moves {
		mover, opp := x, o
		if !m.x {
			mover, opp = o, x
		}
		if err := step(testName, mover, opp, m.row, m.col); err != nil {
			return fail(testName, "%v", err)
		}
	}

	for _, c := range []*testclient.TestClient{x, o} {
		if !c.WaitForMessage("WINNER X", waitTimeout) {
			return fail(testName, "%s did not see WINNER X: %v", c.GetToken(), c.GetMessages())
		}
		if !c.WaitForClose(waitTimeout) {
			return fail(testName, "%s was not disconnected after the game", c.GetToken())
		}
	}
	return pass(testName, "X won with the top row")
}

// TestDrawGame fills the board without a line.
func TestDrawGame(serverAddr string) TestResult {
	const testName = "Draw Game"

	x, o, err := pair(testName, serverAddr)
	if err != nil {
		return fail(testName, "%v", err)
	}
	defer x.Close()
	defer o.Close()

	cells := [][2]int{{0, 0}, {0, 1}, {0, 2}, {1, 1}, {1, 0}, {1, 2}, {2, 1}, {2, 0}, {2, 2}}
	for i, c := range cells {
		mover, opp := x, o
		if i%2 == 1 {
			mover, opp = o, x
		}
		if err := step(testName, mover, opp, c[0], c[1]); err != nil {
			return fail(testName, "%v", err)
		}
	}

	for _, c := range []*testclient.TestClient{x, o} {
		if !c.WaitForMessage("WINNER NONE", waitTimeout) {
			return fail(testName, "%s did not see WINNER NONE", c.GetToken())
		}
	}
	return pass(testName, "Full board ended in a draw")
}

// TestInvalidMoves checks illegal moves are refused and the turn repeats.
func TestInvalidMoves(serverAddr string) TestResult {
	const testName = "Invalid Moves"

	x, o, err := pair(testName, serverAddr)
	if err != nil {
		return fail(testName, "%v", err)
	}
	defer x.Close()
	defer o.Close()

	if !x.WaitForMessage("MOVE", waitTimeout) {
		return fail(testName, "X was not asked to move")
	}

	for _, line := range []string{"TURN O 0 0", "TURN X 5 5", "NONSENSE"} {
		x.ClearMessages()
		logAction(testName, fmt.Sprintf("Sending %q", line))
		x.SendCommand(line)
		if !x.WaitForMessage("INVALID", waitTimeout) || !x.WaitForMessage("MOVE", waitTimeout) {
			return fail(testName, "%q was not rejected: %v", line, x.GetMessages())
		}
	}

	if err := step(testName, x, o, 1, 1); err != nil {
		return fail(testName, "%v", err)
	}
	if !o.WaitForMessage("MOVE", waitTimeout) {
		return fail(testName, "O was not asked to move")
	}
	o.ClearMessages()
	o.Move(1, 1)
	if !o.WaitForMessage("INVALID", waitTimeout) {
		return fail(testName, "Occupied cell accepted")
	}
	return pass(testName, "Illegal moves were rejected")
}

// TestForfeit checks that leaving mid-game hands the win to the opponent.
func TestForfeit(serverAddr string) TestResult {
	const testName = "Forfeit"

	x, o, err := pair(testName, serverAddr)
	if err != nil {
		return fail(testName, "%v", err)
	}
	defer o.Close()

	if !x.WaitForMessage("MOVE", waitTimeout) {
		x.Close()
		return fail(testName, "X was not asked to move")
	}
	logAction(testName, "X disconnects")
	x.Close()

	if !o.WaitForMessage("WINNER O", waitTimeout) {
		return fail(testName, "O did not win by forfeit: %v", o.GetMessages())
	}
	return pass(testName, "Disconnect forfeited the game")
}
