package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// accountsFile and roomsFile mirror the on-disk document shapes:
// {"users":[...]} and {"chats":[...]}.
type accountsFile struct {
	Users Accounts `json:"users"`
}

type roomsFile struct {
	Chats Rooms `json:"chats"`
}

// FileStore persists both collections as whole-file JSON snapshots.
// Loading a missing file materializes an empty collection and creates the
// backing file; saving rewrites the file in full via a temp-file rename.
type FileStore struct {
	accountsPath string
	roomsPath    string
}

func NewFileStore(accountsPath, roomsPath string) *FileStore {
	return &FileStore{
		accountsPath: accountsPath,
		roomsPath:    roomsPath,
	}
}

func (s *FileStore) LoadAccounts(ctx context.Context) (Accounts, error) {
	var doc accountsFile
	if err := s.load(ctx, s.accountsPath, &doc, &accountsFile{Users: Accounts{}}); err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	return doc.Users, nil
}

func (s *FileStore) SaveAccounts(ctx context.Context, accounts Accounts) error {
	if accounts == nil {
		accounts = Accounts{}
	}
	if err := s.save(ctx, s.accountsPath, &accountsFile{Users: accounts}); err != nil {
		return fmt.Errorf("save accounts: %w", err)
	}
	return nil
}

func (s *FileStore) LoadRooms(ctx context.Context) (Rooms, error) {
	var doc roomsFile
	if err := s.load(ctx, s.roomsPath, &doc, &roomsFile{Chats: Rooms{}}); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	return doc.Chats, nil
}

func (s *FileStore) SaveRooms(ctx context.Context, rooms Rooms) error {
	if rooms == nil {
		rooms = Rooms{}
	}
	if err := s.save(ctx, s.roomsPath, &roomsFile{Chats: rooms}); err != nil {
		return fmt.Errorf("save rooms: %w", err)
	}
	return nil
}

// load reads path into doc. A missing or empty file yields empty and the
// backing file is created so subsequent saves have a home.
func (s *FileStore) load(ctx context.Context, path string, doc, empty interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := s.save(ctx, path, empty); err != nil {
			return err
		}
		data, err = json.Marshal(empty)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, doc)
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		data, err = json.Marshal(empty)
		if err != nil {
			return err
		}
	}
	return json.Unmarshal(data, doc)
}

// save rewrites path with the full serialized collection. The write goes
// to a temp file in the same directory followed by a rename, so readers
// never observe a torn snapshot.
func (s *FileStore) save(ctx context.Context, path string, doc interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
