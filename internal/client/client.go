// Package client implements the client side of the chat protocol: it
// sends one request per user action and blocks until the matching
// response class arrives, while unrelated broadcasts are surfaced as
// notifications.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
)

// ErrClosed is returned by calls made after the connection terminated.
var ErrClosed = errors.New("connection closed")

// ErrNoRooms is returned by Rooms when the server has no rooms yet.
var ErrNoRooms = errors.New("no rooms available")

// waitClass identifies which pending call a response completes.
type waitClass int

const (
	waitAuth   waitClass = iota // 110 / 200
	waitList                    // 130 / 240
	waitCreate                  // 170 / 230
	waitLeave                   // 190
)

// Client drives a connection to the chat server. Each user-initiated
// call sends exactly one request and suspends on a per-class channel
// until the read loop fulfills it; a response of the wrong class never
// satisfies a wait.
type Client struct {
	conn net.Conn

	mu       sync.Mutex
	pending  map[waitClass]chan *protocol.Response
	username string
	chatName string
	token    string

	notifications chan *protocol.Response
	done          chan struct{}
	closeOnce     sync.Once
}

// Dial connects to the server's TCP address.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewClient(conn), nil
}

// NewClient runs the protocol over an established connection.
func NewClient(conn net.Conn) *Client {
	c := &Client{
		conn:          conn,
		pending:       make(map[waitClass]chan *protocol.Response),
		notifications: make(chan *protocol.Response, 64),
		done:          make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Notifications delivers responses not consumed by a pending call:
// chat messages, join/leave/kick/ban announcements and the fatal 330.
func (c *Client) Notifications() <-chan *protocol.Response {
	return c.notifications
}

// Done is closed when the connection terminates.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) ChatName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatName
}

// Token returns the session token issued on the last successful signup
// or login.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// Close terminates the connection and releases all waiters.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()
	})
	return nil
}

// Signup creates a new account and binds this connection to it. Returns
// false when the username is taken.
func (c *Client) Signup(ctx context.Context, username, password string) (bool, error) {
	return c.authenticate(ctx, protocol.CmdSignup, username, password, "")
}

// Login authenticates with username and password.
func (c *Client) Login(ctx context.Context, username, password string) (bool, error) {
	return c.authenticate(ctx, protocol.CmdLogin, username, password, "")
}

// LoginWithToken authenticates with a session token from a previous
// login.
func (c *Client) LoginWithToken(ctx context.Context, token string) (bool, error) {
	return c.authenticate(ctx, protocol.CmdLogin, "", "", token)
}

func (c *Client) authenticate(ctx context.Context, command, username, password, token string) (bool, error) {
	req := c.newRequest(command, map[string]string{
		protocol.ParamUsername: username,
		protocol.ParamPassword: password,
		protocol.ParamChatName: "",
	}, protocol.ChannelControl, protocol.TextPayload(""))
	if token != "" {
		req.Parameters[protocol.ParamToken] = token
	}

	resp, err := c.roundTrip(ctx, req, waitAuth)
	if err != nil {
		return false, err
	}
	if resp.ResponseCode != protocol.CodeAuthOK {
		return false, nil
	}

	c.mu.Lock()
	c.username = resp.Parameters[protocol.ParamUsername]
	if c.username == "" {
		c.username = username
	}
	c.token = resp.Parameters[protocol.ParamToken]
	c.mu.Unlock()
	return true, nil
}

// Rooms fetches the room list. ErrNoRooms means the server has none.
func (c *Client) Rooms(ctx context.Context) ([]string, error) {
	req := c.newRequest(protocol.CmdList, map[string]string{
		protocol.ParamUsername: c.Username(),
		protocol.ParamChatName: "",
	}, protocol.ChannelControl, protocol.TextPayload(""))

	resp, err := c.roundTrip(ctx, req, waitList)
	if err != nil {
		return nil, err
	}
	if resp.ResponseCode != protocol.CodeRoomList {
		return nil, ErrNoRooms
	}
	return resp.Payload.List, nil
}

// CreateRoom creates a room with the caller as sole member and admin.
// Returns false when the name is already taken.
func (c *Client) CreateRoom(ctx context.Context, name string) (bool, error) {
	req := c.newRequest(protocol.CmdCreate, map[string]string{
		protocol.ParamUsername: c.Username(),
		protocol.ParamChatName: name,
	}, protocol.ChannelControl, protocol.TextPayload(""))

	resp, err := c.roundTrip(ctx, req, waitCreate)
	if err != nil {
		return false, err
	}
	if resp.ResponseCode != protocol.CodeRoomCreated {
		return false, nil
	}

	c.mu.Lock()
	c.chatName = name
	c.mu.Unlock()
	return true, nil
}

// Join requests membership of a room. There is no completion wait: the
// outcome arrives as a 180 or 240 notification, and on 180 the local
// room state updates.
func (c *Client) Join(name string) error {
	req := c.newRequest(protocol.CmdJoin, map[string]string{
		protocol.ParamUsername: c.Username(),
		protocol.ParamChatName: name,
	}, protocol.ChannelControl, protocol.TextPayload(""))
	return c.send(req)
}

// Leave exits the current room, blocking until the confirming 190.
func (c *Client) Leave(ctx context.Context) error {
	req := c.newRequest(protocol.CmdLeave, map[string]string{
		protocol.ParamUsername: c.Username(),
		protocol.ParamChatName: c.ChatName(),
	}, protocol.ChannelControl, protocol.TextPayload(""))

	if _, err := c.roundTrip(ctx, req, waitLeave); err != nil {
		return err
	}
	c.mu.Lock()
	c.chatName = ""
	c.mu.Unlock()
	return nil
}

// Kick asks the server to remove a user from the caller's room. The
// outcome arrives as a 192 or 260 notification.
func (c *Client) Kick(target string) error {
	req := c.newRequest(protocol.CmdKick, map[string]string{
		protocol.ParamUsername:   c.Username(),
		protocol.ParamChatName:   c.ChatName(),
		protocol.ParamKickedUser: target,
	}, protocol.ChannelAdmin, protocol.TextPayload(""))
	return c.send(req)
}

// Ban asks the server to ban a user from the caller's room. The outcome
// arrives as a 191 or 250 notification.
func (c *Client) Ban(target string) error {
	req := c.newRequest(protocol.CmdBan, map[string]string{
		protocol.ParamUsername:   c.Username(),
		protocol.ParamChatName:   c.ChatName(),
		protocol.ParamBannedUser: target,
	}, protocol.ChannelAdmin, protocol.TextPayload(""))
	return c.send(req)
}

// Send broadcasts a chat message to the current room.
func (c *Client) Send(text string) error {
	c.mu.Lock()
	username, chatName := c.username, c.chatName
	c.mu.Unlock()
	if chatName == "" {
		return errors.New("not in a room")
	}

	req := c.newRequest(protocol.CmdMessage, map[string]string{
		protocol.ParamUsername: username,
		protocol.ParamChatName: chatName,
	}, protocol.ChannelData, protocol.TextPayload("("+username+") "+text))
	return c.send(req)
}

// Ready probes server liveness; the 100 reply arrives as a notification.
func (c *Client) Ready() error {
	req := c.newRequest(protocol.CmdReady, map[string]string{
		protocol.ParamUsername: c.Username(),
		protocol.ParamChatName: "",
	}, protocol.ChannelControl, protocol.TextPayload(""))
	return c.send(req)
}

func (c *Client) newRequest(command string, params map[string]string, channel string, payload protocol.Payload) *protocol.Request {
	return &protocol.Request{
		Version:    protocol.Version,
		Command:    command,
		Parameters: params,
		Channel:    channel,
		Payload:    payload,
	}
}

func (c *Client) send(req *protocol.Request) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	frame, err := protocol.EncodeRequest(req)
	if err != nil {
		return err
	}
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("send %s: %w", req.Command, err)
	}
	return nil
}

// roundTrip sends req and blocks until the read loop fulfills the given
// response class, the context is cancelled, or the connection dies.
func (c *Client) roundTrip(ctx context.Context, req *protocol.Request, class waitClass) (*protocol.Response, error) {
	ch := make(chan *protocol.Response, 1)

	c.mu.Lock()
	if _, exists := c.pending[class]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("a %s request is already pending", req.Command)
	}
	c.pending[class] = ch
	c.mu.Unlock()

	if err := c.send(req); err != nil {
		c.clearPending(class)
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		c.clearPending(class)
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrClosed
	}
}

func (c *Client) clearPending(class waitClass) {
	c.mu.Lock()
	delete(c.pending, class)
	c.mu.Unlock()
}

// fulfill releases the waiter for class, if any. Reports whether a
// waiter existed.
func (c *Client) fulfill(class waitClass, resp *protocol.Response) bool {
	c.mu.Lock()
	ch, ok := c.pending[class]
	if ok {
		delete(c.pending, class)
	}
	c.mu.Unlock()
	if ok {
		ch <- resp
	}
	return ok
}

func (c *Client) readLoop() {
	defer c.Close()

	frames := protocol.NewFrameScanner(c.conn)
	for {
		frame, err := frames.Next()
		if err != nil {
			if err != io.EOF {
				select {
				case <-c.done:
				default:
				}
			}
			return
		}

		resp, err := protocol.DecodeResponse(frame)
		if err != nil {
			// The server is speaking something else; give up.
			return
		}
		c.route(resp)

		if resp.ResponseCode == protocol.CodeVersionMismatch {
			// Fatal: stop processing and terminate.
			return
		}
	}
}

// route hands a response either to the pending call it completes or to
// the notifications channel.
func (c *Client) route(resp *protocol.Response) {
	switch resp.ResponseCode {
	case protocol.CodeAuthOK, protocol.CodeAuthFailed:
		if c.fulfill(waitAuth, resp) {
			return
		}

	case protocol.CodeRoomList:
		if c.forMe(resp) && c.fulfill(waitList, resp) {
			return
		}

	case protocol.CodeJoinFailed:
		// 240 doubles as list-empty and join-refused; only a pending
		// list call consumes it.
		if c.forMe(resp) && c.fulfill(waitList, resp) {
			return
		}

	case protocol.CodeRoomCreated, protocol.CodeRoomExists:
		if c.fulfill(waitCreate, resp) {
			return
		}

	case protocol.CodeLeft:
		if c.forMe(resp) {
			c.mu.Lock()
			c.chatName = ""
			c.mu.Unlock()
			if c.fulfill(waitLeave, resp) {
				return
			}
		}

	case protocol.CodeJoined:
		if c.forMe(resp) {
			c.mu.Lock()
			c.chatName = resp.Parameters[protocol.ParamChatName]
			c.mu.Unlock()
		}

	case protocol.CodeBanned:
		if resp.Parameters[protocol.ParamBannedUser] == c.Username() {
			c.mu.Lock()
			c.chatName = ""
			c.mu.Unlock()
		}

	case protocol.CodeKicked:
		if resp.Parameters[protocol.ParamKickedUser] == c.Username() {
			c.mu.Lock()
			c.chatName = ""
			c.mu.Unlock()
		}

	case protocol.CodeMessage:
		// Do not surface our own echo.
		if strings.HasPrefix(resp.Payload.Text, "("+c.Username()+") ") {
			return
		}
	}

	select {
	case c.notifications <- resp:
	default:
		// Slow consumer; broadcasts are best-effort.
	}
}

// forMe reports whether the response's username parameter names this
// client (or carries none).
func (c *Client) forMe(resp *protocol.Response) bool {
	u := resp.Parameters[protocol.ParamUsername]
	return u == "" || u == c.Username()
}
