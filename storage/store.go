package storage

import (
	"errors"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Tier identifies one of the three persistence classes described by the
// pool's storage model. Each tier carries its own time-to-live policy; an
// implementer must bump an entry's TTL every transaction that reads or
// writes it, or the entry is free to expire between transactions.
type Tier int

const (
	// Instance entries are pool-wide singletons (admin, config, emissions
	// share map). Bumped on every mutating call.
	Instance Tier = iota
	// Persistent entries are reserves, user positions, and emissions
	// records. Bumped on read or write.
	Persistent
	// Temporary entries are auctions. They are NOT bumped automatically;
	// a caller that wants one to survive must extend it explicitly, and a
	// lapsed temporary entry is treated as absent on read.
	Temporary
)

// TTL policy, expressed in ledger-sequence units (the same clock the
// auction pricing schedule uses). A real host ties these to its own
// sequence counter; tests can drive them directly.
const (
	InstanceLiveUntilBump   = 3_110_400 // ~180 days at 5s/ledger
	InstanceExtendThreshold = 518_400   // ~30 days
	PersistentLiveUntilBump = 3_110_400
	PersistentExtendThresh  = 518_400
	TemporaryLiveUntilBump  = 17_280 // ~1 day
)

var errExpired = errors.New("storage: entry expired")

// ErrNotFound is returned by Get when no live entry exists for the key.
var ErrNotFound = errors.New("storage: not found")

type entryMeta struct {
	ExpiresAt uint64
}

// Store is the tiered persistence layer the pool engine is built on. It
// hashes every logical key with Keccak256 and RLP-encodes values, mirroring
// the encoding discipline the teacher's state trie uses for every persisted
// struct (see core/state/manager.go's KVPut/KVGet).
type Store struct {
	db  Database
	seq func() uint64
}

// New constructs a Store over db. seq reports the current ledger sequence
// (or, off-ledger, a monotonic logical clock) used to evaluate and extend
// TTLs.
func New(db Database, seq func() uint64) *Store {
	return &Store{db: db, seq: seq}
}

func kvKey(namespace string, key []byte) []byte {
	buf := make([]byte, 0, len(namespace)+1+len(key))
	buf = append(buf, namespace...)
	buf = append(buf, ':')
	buf = append(buf, key...)
	return ethcrypto.Keccak256(buf)
}

func metaKey(namespace string, key []byte) []byte {
	return kvKey(namespace+"#ttl", key)
}

// Put encodes value and stores it under key in the given tier, extending
// the entry's TTL to the tier's live-until-bump window.
func (s *Store) Put(tier Tier, namespace string, key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", namespace, err)
	}
	hashed := kvKey(namespace, key)
	if err := s.db.Put(hashed, encoded); err != nil {
		return err
	}
	return s.bump(tier, namespace, key)
}

// Get decodes the value stored under key into out. For Temporary entries,
// an expired entry is treated as absent (ok=false) rather than an error.
// Live Persistent/Instance entries are extended to the tier's threshold as
// a side effect, matching the "touch extends TTL" persistence discipline.
func (s *Store) Get(tier Tier, namespace string, key []byte, out interface{}) (bool, error) {
	if tier == Temporary {
		live, err := s.isLive(namespace, key)
		if err != nil {
			return false, err
		}
		if !live {
			return false, nil
		}
	}
	hashed := kvKey(namespace, key)
	data, ok, err := s.db.Get(hashed)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if out != nil {
		if err := rlp.DecodeBytes(data, out); err != nil {
			return false, fmt.Errorf("storage: decode %s: %w", namespace, err)
		}
	}
	if tier != Temporary {
		if err := s.extendIfNeeded(tier, namespace, key); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Delete removes the value and TTL bookkeeping for key.
func (s *Store) Delete(namespace string, key []byte) error {
	if err := s.db.Delete(kvKey(namespace, key)); err != nil {
		return err
	}
	return s.db.Delete(metaKey(namespace, key))
}

// Extend refreshes key's TTL to the tier's live-until-bump window without
// rewriting its value. Temporary entries call this explicitly on every
// fill/update per spec; Instance/Persistent entries are extended
// automatically by Get/Put but may also be bumped directly (e.g. a
// mutating operation that reads through a cache rather than calling Get).
func (s *Store) Extend(tier Tier, namespace string, key []byte) error {
	return s.bump(tier, namespace, key)
}

func (s *Store) bump(tier Tier, namespace string, key []byte) error {
	window := liveUntilBump(tier)
	meta := entryMeta{ExpiresAt: s.seq() + window}
	encoded, err := rlp.EncodeToBytes(meta)
	if err != nil {
		return err
	}
	return s.db.Put(metaKey(namespace, key), encoded)
}

func (s *Store) extendIfNeeded(tier Tier, namespace string, key []byte) error {
	threshold := extendThreshold(tier)
	data, ok, err := s.db.Get(metaKey(namespace, key))
	if err != nil {
		return err
	}
	if !ok {
		return s.bump(tier, namespace, key)
	}
	var meta entryMeta
	if err := rlp.DecodeBytes(data, &meta); err != nil {
		return err
	}
	now := s.seq()
	if meta.ExpiresAt <= now+threshold {
		return s.bump(tier, namespace, key)
	}
	return nil
}

func (s *Store) isLive(namespace string, key []byte) (bool, error) {
	data, ok, err := s.db.Get(metaKey(namespace, key))
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	var meta entryMeta
	if err := rlp.DecodeBytes(data, &meta); err != nil {
		return false, err
	}
	return s.seq() <= meta.ExpiresAt, nil
}

func liveUntilBump(tier Tier) uint64 {
	switch tier {
	case Instance:
		return InstanceLiveUntilBump
	case Temporary:
		return TemporaryLiveUntilBump
	default:
		return PersistentLiveUntilBump
	}
}

func extendThreshold(tier Tier) uint64 {
	switch tier {
	case Instance:
		return InstanceExtendThreshold
	default:
		return PersistentExtendThresh
	}
}
