package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/client"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/config"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
)

// console drives the interactive session: menus for authentication and
// room selection, then the chat prompt.
type console struct {
	cli   *client.Client
	stdin *bufio.Scanner
}

func main() {
	cfg := config.Load()

	cli, err := client.Dial(cfg.Server.Addr)
	if err != nil {
		fmt.Println("Could not connect to server:", err)
		os.Exit(1)
	}
	defer cli.Close()

	c := &console{
		cli:   cli,
		stdin: bufio.NewScanner(os.Stdin),
	}

	go c.printNotifications()

	fmt.Println("Welcome to our CSP system. To continue, select one of the following")
	if !c.initiateDialog() {
		return
	}
	c.chatConsole()
}

// printNotifications renders asynchronous broadcasts.
func (c *console) printNotifications() {
	for resp := range c.cli.Notifications() {
		switch resp.ResponseCode {
		case protocol.CodeMessage, protocol.CodeReady:
			fmt.Println(resp.Payload.Text)
		case protocol.CodeVersionMismatch:
			fmt.Println("****", resp.Payload.Text, "****")
			fmt.Println("Your connection has been terminated")
			os.Exit(1)
		default:
			if resp.Payload.Text != "" {
				fmt.Println("****", resp.Payload.Text, "****")
			}
		}
	}
}

func (c *console) prompt(label string) (string, bool) {
	fmt.Print(label)
	if !c.stdin.Scan() {
		return "", false
	}
	return c.stdin.Text(), true
}

// initiateDialog loops over the login/signup menu until the connection is
// authenticated. Returns false when input ends or the connection dies.
func (c *console) initiateDialog() bool {
	ctx := context.Background()
	for {
		fmt.Println("1 -> Login")
		fmt.Println("2 -> Sign up")
		choice, ok := c.prompt("-> ")
		if !ok {
			return false
		}

		switch choice {
		case "1":
			username, ok := c.prompt("username-> ")
			if !ok {
				return false
			}
			password, ok := c.prompt("password-> ")
			if !ok {
				return false
			}
			authed, err := c.cli.Login(ctx, username, password)
			if err != nil {
				fmt.Println("Connection error:", err)
				return false
			}
			if !authed {
				fmt.Println("Either your username or password is incorrect")
				continue
			}
			fmt.Println("Login successful")
			return c.createOrFetchGroups()

		case "2":
			username, ok := c.prompt("choose username-> ")
			if !ok {
				return false
			}
			password, ok := c.prompt("choose password-> ")
			if !ok {
				return false
			}
			created, err := c.cli.Signup(ctx, username, password)
			if err != nil {
				fmt.Println("Connection error:", err)
				return false
			}
			if !created {
				fmt.Println("Username already exists")
				continue
			}
			fmt.Println("Account created")
			return c.createOrFetchGroups()

		default:
			fmt.Println("Invalid input, try again.")
		}
	}
}

// createOrFetchGroups loops over the join-or-create menu until the client
// is in a room.
func (c *console) createOrFetchGroups() bool {
	ctx := context.Background()
	for {
		fmt.Println("1 -> Join available groups")
		fmt.Println("2 -> Create new group")
		choice, ok := c.prompt("-> ")
		if !ok {
			return false
		}

		switch choice {
		case "1":
			rooms, err := c.cli.Rooms(ctx)
			if errors.Is(err, client.ErrNoRooms) {
				fmt.Println("**** There are currently no groups ****")
				continue
			}
			if err != nil {
				fmt.Println("Connection error:", err)
				return false
			}
			if c.joinGroup(rooms) {
				return true
			}

		case "2":
			fmt.Println("Enter Group name")
			name, ok := c.prompt("-> ")
			if !ok {
				return false
			}
			if strings.TrimSpace(name) == "" {
				fmt.Println("Group name cannot be 0 characters")
				continue
			}
			created, err := c.cli.CreateRoom(ctx, name)
			if err != nil {
				fmt.Println("Connection error:", err)
				return false
			}
			if !created {
				fmt.Println("Group already exists")
				continue
			}
			fmt.Println("Group Created. You are the admin of this group. You have joined the group")
			return true

		default:
			fmt.Println("Invalid input")
		}
	}
}

// joinGroup presents the fetched room list and sends a join request for
// the selected room.
func (c *console) joinGroup(rooms []string) bool {
	fmt.Println("Choose Group")
	for i, name := range rooms {
		fmt.Printf("%d : %s\n", i+1, name)
	}

	for {
		choice, ok := c.prompt("-> ")
		if !ok {
			return false
		}
		number, err := strconv.Atoi(choice)
		if err != nil || number < 1 || number > len(rooms) {
			fmt.Println("Please enter a valid input")
			continue
		}
		if err := c.cli.Join(rooms[number-1]); err != nil {
			fmt.Println("Connection error:", err)
			return false
		}
		return true
	}
}

func (c *console) displayOptions() {
	fmt.Println("Help         : -help")
	fmt.Println("Logout       : -logout")
	if c.cli.ChatName() == "" {
		fmt.Println("Join group   : -join")
	} else {
		fmt.Println("Exit Group   : -moveout")
	}
	fmt.Println("Kick User    : -kick username")
	fmt.Println("Ban User     : -ban username")
}

// chatConsole is the main prompt loop once authenticated.
func (c *console) chatConsole() {
	ctx := context.Background()
	for {
		msg, ok := c.prompt("-> ")
		if !ok {
			return
		}

		switch {
		case msg == "-logout":
			c.cli.Close()
			fmt.Println("Your connection has been terminated")
			return

		case msg == "-help":
			c.displayOptions()

		case msg == "-moveout":
			if err := c.cli.Leave(ctx); err != nil {
				fmt.Println("Connection error:", err)
				return
			}
			fmt.Println()
			if !c.createOrFetchGroups() {
				return
			}

		case msg == "-join":
			if c.cli.ChatName() != "" {
				fmt.Println("First run -moveout")
				continue
			}
			if !c.createOrFetchGroups() {
				return
			}

		case strings.HasPrefix(msg, "-kick"):
			target, ok := c.moderationTarget(msg, "-kick")
			if !ok {
				continue
			}
			if err := c.cli.Kick(target); err != nil {
				fmt.Println("Connection error:", err)
				return
			}

		case strings.HasPrefix(msg, "-ban"):
			target, ok := c.moderationTarget(msg, "-ban")
			if !ok {
				continue
			}
			if err := c.cli.Ban(target); err != nil {
				fmt.Println("Connection error:", err)
				return
			}

		default:
			if c.cli.ChatName() == "" {
				fmt.Println("You are not connected to any group. Try -join to join another group")
				continue
			}
			if strings.TrimSpace(msg) == "" {
				continue
			}
			if err := c.cli.Send(msg); err != nil {
				fmt.Println("Connection error:", err)
				return
			}
		}
	}
}

// moderationTarget validates a "-kick user" / "-ban user" input line.
func (c *console) moderationTarget(msg, cmd string) (string, bool) {
	if c.cli.ChatName() == "" {
		fmt.Println("You are not part of a group right now. Join a group first")
		return "", false
	}
	args := strings.Fields(msg)[1:]
	switch {
	case len(args) == 0:
		fmt.Printf("Missing parameters. Syntax ==>  %s username\n", cmd)
		return "", false
	case len(args) > 1:
		fmt.Printf("Too many parameters. Syntax ==>  %s username\n", cmd)
		return "", false
	case args[0] == c.cli.Username():
		fmt.Printf("You cannot %s yourself\n", strings.TrimPrefix(cmd, "-"))
		return "", false
	}
	return args[0], true
}
