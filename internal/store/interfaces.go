package store

import "context"

// AccountStore is whole-file snapshot access to the accounts collection.
// Every mutation is load, modify in memory, save; there is no partial
// update. Safe only from a single execution context.
type AccountStore interface {
	LoadAccounts(ctx context.Context) (Accounts, error)
	SaveAccounts(ctx context.Context, accounts Accounts) error
}

// RoomStore is whole-file snapshot access to the rooms collection.
type RoomStore interface {
	LoadRooms(ctx context.Context) (Rooms, error)
	SaveRooms(ctx context.Context, rooms Rooms) error
}

type Store interface {
	AccountStore
	RoomStore
}
