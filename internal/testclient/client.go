// Package testclient is a scripted player for integration tests against a
// running tic-tac-toe server.
package testclient

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/lawnchairsociety/tictactoe/internal/protocol"
)

// TestClient represents a test client connection to the server
type TestClient struct {
	Name     string
	Token    string
	conn     net.Conn
	reader   *bufio.Reader
	writer   *bufio.Writer
	messages []string
	mu       sync.Mutex
	done     chan struct{}
	closed   chan struct{} // reader hit end of stream
	echo     bool
}

// newClientConnection creates a basic client connection
func newClientConnection(address string, echo bool) (*TestClient, error) {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &TestClient{
		conn:     conn,
		reader:   bufio.NewReader(conn),
		writer:   bufio.NewWriter(conn),
		messages: make([]string, 0),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
		echo:     echo,
	}

	// Start reading messages in background
	go client.readMessages()

	return client, nil
}

// NewTestClient connects and answers the handshake like a real client.
func NewTestClient(name string, address string) (*TestClient, error) {
	client, err := newClientConnection(address, true)
	if err != nil {
		return nil, err
	}
	client.Name = name
	return client, nil
}

// NewTestClientRaw connects without answering the handshake. Use this for
// testing the handshake itself.
func NewTestClientRaw(address string) (*TestClient, error) {
	client, err := newClientConnection(address, false)
	if err != nil {
		return nil, err
	}
	client.Name = "RawClient"
	return client, nil
}

// readMessages continuously reads messages from the server
func (c *TestClient) readMessages() {
	defer close(c.closed)
	for {
		line, err := c.reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		if c.echo && line == string(protocol.Handshake) {
			c.SendCommand(line)
		}
		if msg := protocol.ParseMessage(line); msg.Action == protocol.Player && len(msg.Args) == 1 {
			c.mu.Lock()
			c.Token = msg.Args[0]
			c.mu.Unlock()
		}

		c.mu.Lock()
		c.messages = append(c.messages, line)
		c.mu.Unlock()
	}
}

// SendCommand sends one line to the server
func (c *TestClient) SendCommand(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := c.writer.WriteString(cmd + "\n")
	if err != nil {
		return err
	}
	return c.writer.Flush()
}

// Move sends TURN with this client's token.
func (c *TestClient) Move(row, col int) error {
	return c.SendCommand(strings.TrimSuffix(string(protocol.FormatTurn(c.GetToken(), row, col)), "\n"))
}

// GetToken returns the token from the PLAYER line, or "".
func (c *TestClient) GetToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Token
}

// GetMessages returns all messages received so far
func (c *TestClient) GetMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]string, len(c.messages))
	copy(result, c.messages)
	return result
}

// ClearMessages clears the message buffer
func (c *TestClient) ClearMessages() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = make([]string, 0)
}

// WaitForMessage waits for a line equal to text (with timeout)
func (c *TestClient) WaitForMessage(text string, timeout time.Duration) bool {
	_, ok := c.WaitForAnyMessage([]string{text}, timeout)
	return ok
}

// WaitForAnyMessage waits for a line equal to any of texts (with timeout)
func (c *TestClient) WaitForAnyMessage(texts []string, timeout time.Duration) (string, bool) {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		for _, msg := range c.GetMessages() {
			for _, text := range texts {
				if msg == text {
					return text, true
				}
			}
		}
		time.Sleep(20 * time.Millisecond)
	}

	return "", false
}

// WaitForClose waits until the server ends the stream.
func (c *TestClient) WaitForClose(timeout time.Duration) bool {
	select {
	case <-c.closed:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close closes the client connection
func (c *TestClient) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.conn.Close()
}

// GetLastMessage returns the most recent message
func (c *TestClient) GetLastMessage() string {
	messages := c.GetMessages()
	if len(messages) > 0 {
		return messages[len(messages)-1]
	}
	return ""
}

// PrintMessages prints all messages (for debugging)
func (c *TestClient) PrintMessages() {
	fmt.Printf("\n=== Messages for %s ===\n", c.Name)
	for i, msg := range c.GetMessages() {
		fmt.Printf("[%d] %s\n", i, msg)
	}
	fmt.Println("======================")
}
