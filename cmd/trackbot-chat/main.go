package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/diogoviieira/register-track-bot/internal/gateway"
)

const dialTimeout = 10 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run chats with the gateway until in is exhausted and returns the exit code.
func run(args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("trackbot-chat", flag.ContinueOnError)
	fs.SetOutput(errOut)
	url := fs.String("url", "ws://localhost:8081/ws", "chat gateway WebSocket URL")
	owner := fs.String("owner", os.Getenv("USER"), "owner id the entries are recorded under")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	client, err := gateway.Dial(ctx, *url, *owner)
	cancel()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer client.Close()

	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}
	if interactive {
		fmt.Fprintf(out, "Connected as %s. Send /help for commands, Ctrl-D to quit.\n", *owner)
	}

	scanner := bufio.NewScanner(in)
	for {
		if interactive {
			fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		reply, err := client.Send(line)
		if err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		if reply.Type == gateway.TypeError {
			fmt.Fprintf(out, "error (%s): %s\n", reply.Code, reply.Text)
			continue
		}
		fmt.Fprintln(out, reply.Text)
		if len(reply.Choices) > 0 {
			fmt.Fprintln(out, gateway.FormatChoices(reply.Choices))
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}
