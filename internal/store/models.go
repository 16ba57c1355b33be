package store

// Account is one registered user. The password field holds a bcrypt hash
// of the credential chosen at signup. Field names are part of the on-disk
// format and must not change.
type Account struct {
	Username     string   `json:"username"`
	Password     string   `json:"password"`
	AdminGroups  []string `json:"adminGroups"`
	BannedGroups []string `json:"bannedGroups"`
}

// Room is one chat room. The creator is seeded as the sole member and
// admin. BlackUsers is reserved and unused by current behavior.
type Room struct {
	ChatName    string   `json:"chat_name"`
	Users       []string `json:"users"`
	Admins      []string `json:"admins"`
	BannedUsers []string `json:"banned_users"`
	BlackUsers  []string `json:"black_users"`
}

// NewAccount creates an account with empty group sets, so the collections
// marshal as [] rather than null.
func NewAccount(username, passwordHash string) *Account {
	return &Account{
		Username:     username,
		Password:     passwordHash,
		AdminGroups:  []string{},
		BannedGroups: []string{},
	}
}

// NewRoom creates a room with the given user as sole member and admin.
func NewRoom(name, creator string) *Room {
	return &Room{
		ChatName:    name,
		Users:       []string{creator},
		Admins:      []string{creator},
		BannedUsers: []string{},
		BlackUsers:  []string{},
	}
}

func (r *Room) IsAdmin(username string) bool {
	return contains(r.Admins, username)
}

func (r *Room) IsBanned(username string) bool {
	return contains(r.BannedUsers, username)
}

func (r *Room) IsMember(username string) bool {
	return contains(r.Users, username)
}

// AddUser appends username to the member list if not already present.
func (r *Room) AddUser(username string) {
	if !r.IsMember(username) {
		r.Users = append(r.Users, username)
	}
}

// RemoveUser drops username from the member list, preserving order.
func (r *Room) RemoveUser(username string) {
	out := r.Users[:0]
	for _, u := range r.Users {
		if u != username {
			out = append(out, u)
		}
	}
	r.Users = out
}

// Ban adds username to the banned list and removes it from the member
// list. A banned user must never remain a member.
func (r *Room) Ban(username string) {
	if !r.IsBanned(username) {
		r.BannedUsers = append(r.BannedUsers, username)
	}
	r.RemoveUser(username)
}

// GrantAdmin records name in the account's administered groups.
func (a *Account) GrantAdmin(name string) {
	if !contains(a.AdminGroups, name) {
		a.AdminGroups = append(a.AdminGroups, name)
	}
}

// RecordBan records name in the account's banned-from groups.
func (a *Account) RecordBan(name string) {
	if !contains(a.BannedGroups, name) {
		a.BannedGroups = append(a.BannedGroups, name)
	}
}

// Accounts is the full accounts collection as loaded from disk.
type Accounts []*Account

func (as Accounts) Find(username string) *Account {
	for _, a := range as {
		if a.Username == username {
			return a
		}
	}
	return nil
}

// Rooms is the full rooms collection as loaded from disk.
type Rooms []*Room

func (rs Rooms) Find(name string) *Room {
	for _, r := range rs {
		if r.ChatName == name {
			return r
		}
	}
	return nil
}

// Names returns the room names in collection order.
func (rs Rooms) Names() []string {
	names := make([]string, 0, len(rs))
	for _, r := range rs {
		names = append(names, r.ChatName)
	}
	return names
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
