// Package protocol defines the PDUs exchanged between client and server
// and their line-delimited JSON framing.
package protocol

import (
	"encoding/json"
	"fmt"
)

// Version is the protocol version spoken by this implementation. Requests
// carrying any other version are answered with CodeVersionMismatch and the
// connection is terminated.
const Version = 1.0

// Four-character command tokens.
const (
	CmdSignup  = "NWUA"
	CmdLogin   = "AUTH"
	CmdList    = "LIST"
	CmdCreate  = "CHAT"
	CmdJoin    = "JOIN"
	CmdLeave   = "LEVE"
	CmdKick    = "KICK"
	CmdBan     = "BANN"
	CmdMessage = "MSSG"
	CmdReady   = "REDY"
	CmdVersion = "VRSN"
)

// Three-digit response codes.
const (
	CodeReady           = "100"
	CodeAuthOK          = "110"
	CodeRoomList        = "130"
	CodeMessage         = "140"
	CodeRoomCreated     = "170"
	CodeJoined          = "180"
	CodeLeft            = "190"
	CodeBanned          = "191"
	CodeKicked          = "192"
	CodeAuthFailed      = "200"
	CodeRoomExists      = "230"
	CodeJoinFailed      = "240"
	CodeBanFailed       = "250"
	CodeKickFailed      = "260"
	CodeVersionMismatch = "330"
)

// Channel tags carried on every PDU. They give the client display context;
// routing itself is decided from session state, not from the tag.
const (
	ChannelAdmin   = "AC" // admin / requester
	ChannelControl = "CC" // authenticating connection
	ChannelData    = "DC" // all room members
)

// Parameter keys used across commands.
const (
	ParamUsername   = "username"
	ParamPassword   = "password"
	ParamToken      = "token"
	ParamChatName   = "chat_name"
	ParamKickedUser = "kicked_user"
	ParamBannedUser = "banned_user"
)

// Payload is the free-form data field of a PDU: either chat text or, for
// the room list response, a list of room names.
type Payload struct {
	Text string
	List []string
}

func TextPayload(s string) Payload {
	return Payload{Text: s}
}

func ListPayload(names []string) Payload {
	if names == nil {
		names = []string{}
	}
	return Payload{List: names}
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.List != nil {
		return json.Marshal(p.List)
	}
	return json.Marshal(p.Text)
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Payload{Text: s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*p = Payload{List: list}
		return nil
	}
	return fmt.Errorf("payload is neither string nor string list: %s", data)
}

// Request is the PDU a client sends to fire a command.
type Request struct {
	Version    float64           `json:"version"`
	Command    string            `json:"command"`
	Parameters map[string]string `json:"parameters"`
	Channel    string            `json:"channel"`
	Payload    Payload           `json:"payload"`
}

// Response is the PDU the server produces for a command.
type Response struct {
	Version      float64           `json:"version"`
	ResponseCode string            `json:"response_code"`
	Parameters   map[string]string `json:"parameters"`
	Channel      string            `json:"channel"`
	Payload      Payload           `json:"payload"`
}

// NewResponse builds a response at the server's protocol version.
func NewResponse(code string, params map[string]string, channel string, payload Payload) *Response {
	if params == nil {
		params = map[string]string{}
	}
	return &Response{
		Version:      Version,
		ResponseCode: code,
		Parameters:   params,
		Channel:      channel,
		Payload:      payload,
	}
}

// Room returns the chat_name parameter of the request, if any. The router
// keys its delivery decisions on it.
func (r *Request) Room() string {
	return r.Parameters[ParamChatName]
}
