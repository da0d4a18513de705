package peercache

import (
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/tidwall/buntdb"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	keyPrefixByID   = "peer:id:"
	keyPrefixByName = "peer:name:"
)

// BuntCache is a Cache backed by an embedded tidwall/buntdb store, so
// peer records and their expected-join state survive process restarts
// without standing up a separate database.
type BuntCache struct {
	mu sync.Mutex
	db *buntdb.DB
}

// NewBuntCache opens (or creates) a buntdb store at path. Pass ":memory:"
// for an ephemeral, in-process cache suitable for tests.
func NewBuntCache(path string) (*BuntCache, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening peer cache at %s", path)
	}
	return &BuntCache{db: db}, nil
}

// Close releases the underlying store.
func (c *BuntCache) Close() error {
	return c.db.Close()
}

func idKey(id uint32) string   { return fmt.Sprintf("%s%d", keyPrefixByID, id) }
func nameKey(uname string) string { return keyPrefixByName + strings.ToLower(uname) }

func (c *BuntCache) Put(p *Peer) error {
	if p == nil {
		return errors.New("cannot store a nil peer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshaling peer record")
	}
	return c.db.Update(func(tx *buntdb.Tx) error {
		if p.ID != 0 {
			if _, _, err := tx.Set(idKey(p.ID), string(data), nil); err != nil {
				return err
			}
		}
		if p.UName != "" {
			if _, _, err := tx.Set(nameKey(p.UName), string(data), nil); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *BuntCache) Get(id uint32, uname string) (*Peer, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var raw string
	err := c.db.View(func(tx *buntdb.Tx) error {
		var verr error
		if id != 0 {
			raw, verr = tx.Get(idKey(id))
			if verr == nil {
				return nil
			}
		}
		if uname != "" {
			raw, verr = tx.Get(nameKey(uname))
		}
		return verr
	})
	if err != nil {
		return nil, false
	}
	return decodePeer(raw)
}

func (c *BuntCache) GetByUUID(uuid string) (*Peer, bool) {
	for _, p := range c.All() {
		if p.UUID == uuid {
			return p, true
		}
	}
	return nil, false
}

func (c *BuntCache) UpdateState(id uint32, uname string, state State) error {
	p, ok := c.Get(id, uname)
	if !ok {
		return errors.Errorf("unknown peer id=%d uname=%s", id, uname)
	}
	p.State = state
	return c.Put(p)
}

func (c *BuntCache) UpdateExpected(id uint32, uname string, expected string) error {
	p, ok := c.Get(id, uname)
	if !ok {
		return errors.Errorf("unknown peer id=%d uname=%s", id, uname)
	}
	p.Expected = expected
	return c.Put(p)
}

func (c *BuntCache) Remove(id uint32, uname string) error {
	p, ok := c.Get(id, uname)
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Update(func(tx *buntdb.Tx) error {
		if p.ID != 0 {
			tx.Delete(idKey(p.ID))
		}
		if p.UName != "" {
			tx.Delete(nameKey(p.UName))
		}
		return nil
	})
}

func (c *BuntCache) All() []*Peer {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]bool)
	var peers []*Peer
	_ = c.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(keyPrefixByID+"*", func(key, value string) bool {
			if p, ok := decodePeer(value); ok && !seen[p.UUID+p.UName] {
				seen[p.UUID+p.UName] = true
				peers = append(peers, p)
			}
			return true
		})
	})
	return peers
}

func decodePeer(raw string) (*Peer, bool) {
	if raw == "" {
		return nil, false
	}
	p := &Peer{}
	if err := json.Unmarshal([]byte(raw), p); err != nil {
		return nil, false
	}
	return p, true
}
