package server_test

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/auth"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/client"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/config"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/dispatch"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/server"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/session"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/store"
)

// startServer brings up a full server on a loopback port with a fresh
// store and returns its address.
func startServer(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server: config.Server{
			Addr:         "127.0.0.1:0",
			WriteTimeout: 5 * time.Second,
		},
		Store: config.Store{
			AccountsFile: filepath.Join(dir, "user_accounts.txt"),
			RoomsFile:    filepath.Join(dir, "list.txt"),
		},
		JWT: config.JWT{Secret: []byte("test-secret"), ExpiresIn: time.Hour},
	}

	st := store.NewFileStore(cfg.Store.AccountsFile, cfg.Store.RoomsFile)
	registry := session.NewRegistry()
	dispatcher := dispatch.New(st, registry, auth.NewService(cfg))
	hub := server.NewHub(registry, dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := server.New(cfg, hub)
	if err := srv.Start(ctx); err != nil {
		cancel()
		t.Fatalf("server start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		srv.Shutdown(context.Background())
	})
	return srv.Addr().String()
}

func dial(t *testing.T, addr string) *client.Client {
	t.Helper()
	cli, err := client.Dial(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { cli.Close() })
	return cli
}

// waitCode reads notifications until one with the given response code
// arrives.
func waitCode(t *testing.T, cli *client.Client, code string) *protocol.Response {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case resp := <-cli.Notifications():
			if resp.ResponseCode == code {
				return resp
			}
		case <-deadline:
			t.Fatalf("timed out waiting for a %s response", code)
		}
	}
}

// TestEndToEndModeration runs the join / message / ban flow over real
// TCP connections.
func TestEndToEndModeration(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	alice := dial(t, addr)
	if ok, err := alice.Signup(ctx, "alice", "pw1"); err != nil || !ok {
		t.Fatalf("alice signup: ok=%v err=%v", ok, err)
	}
	if ok, err := alice.CreateRoom(ctx, "general"); err != nil || !ok {
		t.Fatalf("create room: ok=%v err=%v", ok, err)
	}

	bob := dial(t, addr)
	if ok, err := bob.Signup(ctx, "bob", "pw2"); err != nil || !ok {
		t.Fatalf("bob signup: ok=%v err=%v", ok, err)
	}
	if err := bob.Join("general"); err != nil {
		t.Fatalf("bob join: %v", err)
	}

	// The join announcement reaches both room members.
	join := waitCode(t, bob, protocol.CodeJoined)
	if join.Payload.Text != "bob has joined the group" {
		t.Errorf("join payload = %q", join.Payload.Text)
	}
	waitCode(t, alice, protocol.CodeJoined)
	if bob.ChatName() != "general" {
		t.Errorf("bob local room = %q, want general", bob.ChatName())
	}

	// A message from alice reaches bob but is not echoed back to her.
	if err := alice.Send("hello"); err != nil {
		t.Fatalf("send: %v", err)
	}
	msg := waitCode(t, bob, protocol.CodeMessage)
	if msg.Payload.Text != "(alice) hello" {
		t.Errorf("message payload = %q", msg.Payload.Text)
	}

	// Alice bans bob; bob's session leaves the room.
	if err := alice.Ban("bob"); err != nil {
		t.Fatalf("ban: %v", err)
	}
	waitCode(t, alice, protocol.CodeBanned)
	waitCode(t, bob, protocol.CodeBanned)

	deadline := time.Now().Add(2 * time.Second)
	for bob.ChatName() != "" && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if bob.ChatName() != "" {
		t.Fatal("bob still in the room after ban")
	}

	// A banned user cannot rejoin.
	if err := bob.Join("general"); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	refusal := waitCode(t, bob, protocol.CodeJoinFailed)
	if refusal.Payload.Text != "You are banned from joining this group" {
		t.Errorf("refusal payload = %q", refusal.Payload.Text)
	}
}

// TestEndToEndTokenResume verifies that the token issued at signup
// authenticates a later connection.
func TestEndToEndTokenResume(t *testing.T) {
	addr := startServer(t)
	ctx := context.Background()

	first := dial(t, addr)
	if ok, err := first.Signup(ctx, "alice", "pw1"); err != nil || !ok {
		t.Fatalf("signup: ok=%v err=%v", ok, err)
	}
	token := first.Token()
	if token == "" {
		t.Fatal("no token issued at signup")
	}
	first.Close()

	second := dial(t, addr)
	ok, err := second.LoginWithToken(ctx, token)
	if err != nil || !ok {
		t.Fatalf("token login: ok=%v err=%v", ok, err)
	}
	if second.Username() != "alice" {
		t.Errorf("resumed as %q, want alice", second.Username())
	}
}

// TestEndToEndVersionMismatch speaks a wrong protocol version over raw
// TCP and expects a 330 followed by connection close.
func TestEndToEndVersionMismatch(t *testing.T) {
	addr := startServer(t)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	frame, err := protocol.EncodeRequest(&protocol.Request{
		Version:    2.0,
		Command:    protocol.CmdReady,
		Parameters: map[string]string{},
		Channel:    protocol.ChannelControl,
		Payload:    protocol.TextPayload(""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatal(err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	frames := protocol.NewFrameScanner(conn)
	respFrame, err := frames.Next()
	if err != nil {
		t.Fatalf("no response before close: %v", err)
	}
	resp, err := protocol.DecodeResponse(respFrame)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ResponseCode != protocol.CodeVersionMismatch {
		t.Fatalf("code = %s, want 330", resp.ResponseCode)
	}

	// The server terminates the connection after the 330.
	if _, err := frames.Next(); err == nil {
		t.Error("connection still open after version mismatch")
	}
}
