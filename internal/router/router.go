// Package router decides which connected sessions receive a response.
//
// The decision is entirely state-based: the response's channel tag is
// client display context, not a recipient filter. Sessions are visited in
// registration order and every selected session receives the identical
// encoded frame.
package router

import (
	"fmt"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/session"
)

var anonymousCommands = map[string]bool{
	protocol.CmdSignup: true,
	protocol.CmdLogin:  true,
}

// idleCommands includes signup as well as login: the requester's session
// is bound to its username before routing runs, so its own 110 must be
// deliverable through this rule.
var idleCommands = map[string]bool{
	protocol.CmdSignup: true,
	protocol.CmdLogin:  true,
	protocol.CmdList:   true,
	protocol.CmdCreate: true,
	protocol.CmdReady:  true,
}

var departedCommands = map[string]bool{
	protocol.CmdJoin:  true,
	protocol.CmdKick:  true,
	protocol.CmdBan:   true,
	protocol.CmdLeave: true,
}

// Route encodes resp and fans it out per the delivery policy, keyed on
// the originating request's command and chat_name parameter. The token
// parameter is a credential for the requester alone: only origin's frame
// carries it, every other recipient gets a token-stripped copy.
func Route(registry *session.Registry, req *protocol.Request, resp *protocol.Response, origin *session.Session) error {
	frame, err := protocol.EncodeResponse(resp)
	if err != nil {
		return fmt.Errorf("route response: %w", err)
	}

	public := frame
	if _, ok := resp.Parameters[protocol.ParamToken]; ok {
		public, err = protocol.EncodeResponse(withoutToken(resp))
		if err != nil {
			return fmt.Errorf("route response: %w", err)
		}
	}

	room := req.Room()
	for _, s := range registry.All() {
		out := public
		if s == origin {
			out = frame
		}

		switch {
		case s.Username == "":
			// Not authenticated: only signup/login traffic is visible.
			if anonymousCommands[req.Command] {
				s.Handler.Push(out)
			}

		case s.ChatName == "" && room != "" && s.PrevChatName == room:
			// The session just left (or was removed from) the room this
			// request concerns; deliver the confirming response once and
			// drop the hint so later responses for the room skip it.
			if departedCommands[req.Command] {
				s.PrevChatName = ""
				s.Handler.Push(out)
			}

		case s.ChatName == "":
			// Idle outside any room.
			if idleCommands[req.Command] || resp.ResponseCode == protocol.CodeJoinFailed {
				s.Handler.Push(out)
			}

		case s.ChatName == room:
			// In the room the request concerns: broadcast.
			s.Handler.Push(out)
		}
	}
	return nil
}

// withoutToken clones resp with the token parameter removed.
func withoutToken(resp *protocol.Response) *protocol.Response {
	params := make(map[string]string, len(resp.Parameters))
	for k, v := range resp.Parameters {
		if k != protocol.ParamToken {
			params[k] = v
		}
	}
	clone := *resp
	clone.Parameters = params
	return &clone
}
