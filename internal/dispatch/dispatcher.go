// Package dispatch executes decoded commands against the persistent store
// and the session registry and produces the response PDU.
package dispatch

import (
	"context"
	"fmt"

	"github.com/shivsaxena91/ChatServiceProtocol/internal/auth"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/protocol"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/session"
	"github.com/shivsaxena91/ChatServiceProtocol/internal/store"
	"github.com/shivsaxena91/ChatServiceProtocol/pkg/logger"
)

type handlerFunc func(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error)

// Dispatcher validates business rules for each command, mutates store and
// registry, and assigns the response code. It runs inside the hub's
// single execution context; nothing here suspends mid-command.
type Dispatcher struct {
	store    store.Store
	registry *session.Registry
	auth     *auth.Service
	handlers map[string]handlerFunc
}

func New(st store.Store, registry *session.Registry, authService *auth.Service) *Dispatcher {
	d := &Dispatcher{
		store:    st,
		registry: registry,
		auth:     authService,
	}
	d.handlers = map[string]handlerFunc{
		protocol.CmdSignup:  d.signup,
		protocol.CmdLogin:   d.login,
		protocol.CmdList:    d.listRooms,
		protocol.CmdCreate:  d.createRoom,
		protocol.CmdJoin:    d.joinRoom,
		protocol.CmdLeave:   d.leaveRoom,
		protocol.CmdKick:    d.kick,
		protocol.CmdBan:     d.ban,
		protocol.CmdMessage: d.message,
		protocol.CmdReady:   d.ready,
		protocol.CmdVersion: d.versionMismatch,
	}
	return d
}

// Dispatch runs the handler registered for the request's command. Unknown
// commands are an error; the caller drops the request.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	h, ok := d.handlers[req.Command]
	if !ok {
		return nil, fmt.Errorf("unknown command %q", req.Command)
	}
	return h(ctx, req, sess)
}

func (d *Dispatcher) signup(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	username := req.Parameters[protocol.ParamUsername]

	accounts, err := d.store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	if accounts.Find(username) != nil {
		return protocol.NewResponse(protocol.CodeAuthFailed, nil, protocol.ChannelControl, protocol.TextPayload("")), nil
	}

	hash, err := d.auth.HashPassword(req.Parameters[protocol.ParamPassword])
	if err != nil {
		return nil, err
	}

	accounts = append(accounts, store.NewAccount(username, hash))
	if err := d.store.SaveAccounts(ctx, accounts); err != nil {
		return nil, err
	}

	return d.authenticated(sess, username)
}

func (d *Dispatcher) login(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	username := req.Parameters[protocol.ParamUsername]

	accounts, err := d.store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}

	if token := req.Parameters[protocol.ParamToken]; token != "" {
		claimed, err := d.auth.ValidateToken(token)
		if err != nil || accounts.Find(claimed) == nil {
			return protocol.NewResponse(protocol.CodeAuthFailed, nil, protocol.ChannelControl, protocol.TextPayload("")), nil
		}
		return d.authenticated(sess, claimed)
	}

	account := accounts.Find(username)
	if account == nil || !d.auth.VerifyPassword(account.Password, req.Parameters[protocol.ParamPassword]) {
		return protocol.NewResponse(protocol.CodeAuthFailed, nil, protocol.ChannelControl, protocol.TextPayload("")), nil
	}

	return d.authenticated(sess, username)
}

// authenticated binds the caller's session to username and builds the 110
// response carrying a fresh session token.
func (d *Dispatcher) authenticated(sess *session.Session, username string) (*protocol.Response, error) {
	d.registry.Bind(sess.Handler, username)

	params := map[string]string{protocol.ParamUsername: username}
	token, err := d.auth.GenerateToken(username)
	if err != nil {
		logger.Error("Failed to generate token for %s: %v", username, err)
	} else {
		params[protocol.ParamToken] = token
	}

	return protocol.NewResponse(protocol.CodeAuthOK, params, protocol.ChannelControl, protocol.TextPayload("")), nil
}

func (d *Dispatcher) listRooms(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	rooms, err := d.store.LoadRooms(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]string{protocol.ParamUsername: sess.Username}
	if len(rooms) == 0 {
		return protocol.NewResponse(protocol.CodeJoinFailed, params, "", protocol.TextPayload("There are currently no groups")), nil
	}
	return protocol.NewResponse(protocol.CodeRoomList, params, "", protocol.ListPayload(rooms.Names())), nil
}

func (d *Dispatcher) createRoom(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	name := req.Parameters[protocol.ParamChatName]

	rooms, err := d.store.LoadRooms(ctx)
	if err != nil {
		return nil, err
	}

	if name == "" || rooms.Find(name) != nil {
		return protocol.NewResponse(protocol.CodeRoomExists, nil, "", protocol.TextPayload("Group name already exists")), nil
	}

	rooms = append(rooms, store.NewRoom(name, sess.Username))
	if err := d.store.SaveRooms(ctx, rooms); err != nil {
		return nil, err
	}

	accounts, err := d.store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if account := accounts.Find(sess.Username); account != nil {
		account.GrantAdmin(name)
	}
	if err := d.store.SaveAccounts(ctx, accounts); err != nil {
		return nil, err
	}

	sess.ChatName = name
	sess.PrevChatName = ""

	return protocol.NewResponse(protocol.CodeRoomCreated, nil, "", protocol.TextPayload("")), nil
}

func (d *Dispatcher) joinRoom(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	name := req.Parameters[protocol.ParamChatName]
	params := map[string]string{
		protocol.ParamUsername: sess.Username,
		protocol.ParamChatName: name,
	}

	rooms, err := d.store.LoadRooms(ctx)
	if err != nil {
		return nil, err
	}

	room := rooms.Find(name)
	if room == nil {
		return protocol.NewResponse(protocol.CodeJoinFailed, params, protocol.ChannelControl, protocol.TextPayload("There is no such group")), nil
	}
	if room.IsBanned(sess.Username) {
		return protocol.NewResponse(protocol.CodeJoinFailed, params, protocol.ChannelControl, protocol.TextPayload("You are banned from joining this group")), nil
	}

	room.AddUser(sess.Username)
	if err := d.store.SaveRooms(ctx, rooms); err != nil {
		return nil, err
	}

	sess.EnterRoom(name)

	return protocol.NewResponse(protocol.CodeJoined, params, protocol.ChannelControl,
		protocol.TextPayload(sess.Username+" has joined the group")), nil
}

func (d *Dispatcher) leaveRoom(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	sess.LeaveRoom()

	params := map[string]string{protocol.ParamUsername: sess.Username}
	return protocol.NewResponse(protocol.CodeLeft, params, "",
		protocol.TextPayload(sess.Username+" has left the chat room")), nil
}

func (d *Dispatcher) kick(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	name := req.Parameters[protocol.ParamChatName]
	target := req.Parameters[protocol.ParamKickedUser]

	rooms, err := d.store.LoadRooms(ctx)
	if err != nil {
		return nil, err
	}

	room := rooms.Find(name)
	if room == nil || !room.IsAdmin(sess.Username) {
		params := map[string]string{protocol.ParamUsername: sess.Username}
		return protocol.NewResponse(protocol.CodeKickFailed, params, protocol.ChannelControl,
			protocol.TextPayload("You are not the admin of this group")), nil
	}

	// Room membership is left untouched: a kicked user may rejoin.
	for _, targetSess := range d.registry.FindAll(target) {
		targetSess.LeaveRoom()
	}

	params := map[string]string{protocol.ParamKickedUser: target}
	return protocol.NewResponse(protocol.CodeKicked, params, protocol.ChannelControl,
		protocol.TextPayload(target+" has been kicked from the group")), nil
}

func (d *Dispatcher) ban(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	name := req.Parameters[protocol.ParamChatName]
	target := req.Parameters[protocol.ParamBannedUser]

	rooms, err := d.store.LoadRooms(ctx)
	if err != nil {
		return nil, err
	}

	room := rooms.Find(name)
	if room == nil || !room.IsAdmin(sess.Username) {
		params := map[string]string{protocol.ParamUsername: sess.Username}
		return protocol.NewResponse(protocol.CodeBanFailed, params, protocol.ChannelControl,
			protocol.TextPayload("You are not the admin of this group")), nil
	}

	room.Ban(target)
	if err := d.store.SaveRooms(ctx, rooms); err != nil {
		return nil, err
	}

	accounts, err := d.store.LoadAccounts(ctx)
	if err != nil {
		return nil, err
	}
	if account := accounts.Find(target); account != nil {
		account.RecordBan(name)
	}
	if err := d.store.SaveAccounts(ctx, accounts); err != nil {
		return nil, err
	}

	for _, targetSess := range d.registry.FindAll(target) {
		targetSess.LeaveRoom()
	}

	params := map[string]string{protocol.ParamBannedUser: target}
	return protocol.NewResponse(protocol.CodeBanned, params, protocol.ChannelControl,
		protocol.TextPayload(target+" has been banned from the group")), nil
}

func (d *Dispatcher) message(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	// No state change; the payload is echoed verbatim to the room.
	return protocol.NewResponse(protocol.CodeMessage, nil, protocol.ChannelData, req.Payload), nil
}

func (d *Dispatcher) ready(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	return protocol.NewResponse(protocol.CodeReady, nil, protocol.ChannelControl, protocol.TextPayload("Ready")), nil
}

func (d *Dispatcher) versionMismatch(ctx context.Context, req *protocol.Request, sess *session.Session) (*protocol.Response, error) {
	return VersionMismatch(), nil
}

// VersionMismatch builds the fatal 330 response. The hub also uses it
// directly when an incoming request's version does not match.
func VersionMismatch() *protocol.Response {
	return protocol.NewResponse(protocol.CodeVersionMismatch, nil, protocol.ChannelControl,
		protocol.TextPayload("Server is running on a different protocol version"))
}
