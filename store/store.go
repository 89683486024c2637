// Package store implements the durable, height-keyed record of execution
// payloads and commit certificates Emerald needs to answer catch-up
// requests and to re-anchor after a restart.
package store

import (
	"encoding/binary"
	"fmt"
	"sync"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/emerald-consensus/emerald/codec"
	"github.com/emerald-consensus/emerald/types"
)

// Store persists decided headers, bodies, and commit certificates keyed
// by height, buffers assembled-but-undecided payloads under undecided/,
// and independently prunes bodies and certificates to bound disk usage.
type Store interface {
	// SaveDecided atomically writes header/body/cert for the decided
	// height and clears any undecided/ entries at that height.
	SaveDecided(header *types.BlockHeader, body *types.BlockBody, cert *types.CommitCertificate) error
	LoadHeader(height types.Height) (*types.BlockHeader, error)
	LoadBody(height types.Height) (*types.BlockBody, error)
	LoadCertificate(height types.Height) (*types.CommitCertificate, error)
	LoadHeaders(from, to types.Height) ([]*types.BlockHeader, error)
	GetLatestHeight() (types.Height, error)

	// SaveUndecided durably stages an assembled payload for (height,
	// round) awaiting Decided, surviving a crash/restart.
	SaveUndecided(height types.Height, round types.Round, payload *types.ExecutionPayload) error
	LoadUndecided(height types.Height, round types.Round) (*types.ExecutionPayload, error)
	DeleteUndecided(height types.Height, round types.Round) error

	// PruneBodiesBelow removes body records for heights < keepFrom, and
	// clears any undecided/ entries at the same height as the pruned
	// body (an undecided slot that old has no path to decide anymore).
	PruneBodiesBelow(keepFrom types.Height) error
	// PruneCertificatesBelow removes certificate and header records for
	// heights < keepFrom. Independent of body pruning: a peer can still
	// need a certificate after its body has been pruned, or vice versa.
	PruneCertificatesBelow(keepFrom types.Height) error

	Close() error
}

const (
	prefixHeader    = 'h'
	prefixBody      = 'b'
	prefixCert      = 'c'
	prefixUndecided = 'u'
	keyLatest       = "meta:latest"
)

func heightKey(prefix byte, height types.Height) []byte {
	key := make([]byte, 9)
	key[0] = prefix
	binary.BigEndian.PutUint64(key[1:], uint64(height))
	return key
}

// undecidedKey keys an undecided payload by (height, round); a height may
// have multiple in-flight rounds buffered at once.
func undecidedKey(height types.Height, round types.Round) []byte {
	key := make([]byte, 17)
	key[0] = prefixUndecided
	binary.BigEndian.PutUint64(key[1:9], uint64(height))
	binary.BigEndian.PutUint64(key[9:17], uint64(round))
	return key
}

func undecidedHeightRange(height types.Height) (start, end []byte) {
	start = make([]byte, 9)
	start[0] = prefixUndecided
	binary.BigEndian.PutUint64(start[1:], uint64(height))
	end = make([]byte, 9)
	end[0] = prefixUndecided
	binary.BigEndian.PutUint64(end[1:], uint64(height)+1)
	return start, end
}

// LevelDBStore is backed by github.com/cometbft/cometbft-db's goleveldb
// implementation, the embedded ordered-key-value store used throughout
// the CometBFT ecosystem.
type LevelDBStore struct {
	db dbm.DB
}

// Open opens (creating if necessary) a goleveldb-backed store named
// name under dir.
func Open(name, dir string) (*LevelDBStore, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &LevelDBStore{db: db}, nil
}

// SaveDecided atomically writes a height's header, body, and
// certificate, and advances the latest-height marker, via a single
// write batch.
func (s *LevelDBStore) SaveDecided(header *types.BlockHeader, body *types.BlockBody, cert *types.CommitCertificate) error {
	height := types.Height(header.Number)

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(heightKey(prefixHeader, height), codec.EncodeHeader(header)); err != nil {
		return fmt.Errorf("batch set header: %w", err)
	}
	if err := batch.Set(heightKey(prefixBody, height), codec.EncodeBody(body)); err != nil {
		return fmt.Errorf("batch set body: %w", err)
	}
	if err := batch.Set(heightKey(prefixCert, height), codec.EncodeCertificate(cert)); err != nil {
		return fmt.Errorf("batch set certificate: %w", err)
	}
	if err := s.batchDeleteUndecidedAt(batch, height); err != nil {
		return err
	}

	latest, err := s.GetLatestHeight()
	if err != nil {
		return err
	}
	if height > latest {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(height))
		if err := batch.Set([]byte(keyLatest), buf[:]); err != nil {
			return fmt.Errorf("batch set latest height: %w", err)
		}
	}

	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("write decided batch: %w", err)
	}
	return nil
}

func (s *LevelDBStore) LoadHeader(height types.Height) (*types.BlockHeader, error) {
	raw, err := s.db.Get(heightKey(prefixHeader, height))
	if err != nil {
		return nil, fmt.Errorf("load header: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	header, _, err := codec.DecodeHeader(raw)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	return header, nil
}

func (s *LevelDBStore) LoadBody(height types.Height) (*types.BlockBody, error) {
	raw, err := s.db.Get(heightKey(prefixBody, height))
	if err != nil {
		return nil, fmt.Errorf("load body: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	body, _, err := codec.DecodeBody(raw)
	if err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	return body, nil
}

func (s *LevelDBStore) LoadCertificate(height types.Height) (*types.CommitCertificate, error) {
	raw, err := s.db.Get(heightKey(prefixCert, height))
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	cert, err := codec.DecodeCertificate(raw)
	if err != nil {
		return nil, fmt.Errorf("decode certificate: %w", err)
	}
	return cert, nil
}

func (s *LevelDBStore) LoadHeaders(from, to types.Height) ([]*types.BlockHeader, error) {
	var headers []*types.BlockHeader
	for h := from; h <= to; h++ {
		header, err := s.LoadHeader(h)
		if err != nil {
			return nil, err
		}
		if header != nil {
			headers = append(headers, header)
		}
	}
	return headers, nil
}

func (s *LevelDBStore) GetLatestHeight() (types.Height, error) {
	raw, err := s.db.Get([]byte(keyLatest))
	if err != nil {
		return 0, fmt.Errorf("get latest height: %w", err)
	}
	if raw == nil {
		return 0, nil
	}
	return types.Height(binary.BigEndian.Uint64(raw)), nil
}

func (s *LevelDBStore) SaveUndecided(height types.Height, round types.Round, payload *types.ExecutionPayload) error {
	return s.db.SetSync(undecidedKey(height, round), codec.EncodePayload(payload))
}

func (s *LevelDBStore) LoadUndecided(height types.Height, round types.Round) (*types.ExecutionPayload, error) {
	raw, err := s.db.Get(undecidedKey(height, round))
	if err != nil {
		return nil, fmt.Errorf("load undecided: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	payload, err := codec.DecodePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("decode undecided payload: %w", err)
	}
	return payload, nil
}

func (s *LevelDBStore) DeleteUndecided(height types.Height, round types.Round) error {
	return s.db.DeleteSync(undecidedKey(height, round))
}

// batchDeleteUndecidedAt deletes every undecided/ entry at height (any
// round) as part of batch, matching the "delete undecided for H" clause
// of the decide commit batch.
func (s *LevelDBStore) batchDeleteUndecidedAt(batch dbm.Batch, height types.Height) error {
	start, end := undecidedHeightRange(height)
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return fmt.Errorf("undecided iterator: %w", err)
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("batch delete undecided: %w", err)
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("undecided iterator error: %w", err)
	}
	return nil
}

func (s *LevelDBStore) PruneBodiesBelow(keepFrom types.Height) error {
	if err := s.pruneBelow(prefixBody, keepFrom); err != nil {
		return err
	}
	return s.pruneUndecidedBelow(keepFrom)
}

func (s *LevelDBStore) pruneUndecidedBelow(keepFrom types.Height) error {
	if keepFrom == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	start := []byte{prefixUndecided, 0, 0, 0, 0, 0, 0, 0, 0}
	_, end := undecidedHeightRange(keepFrom - 1)
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return fmt.Errorf("prune undecided iterator: %w", err)
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("batch delete undecided: %w", err)
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("prune undecided iterator error: %w", err)
	}
	return batch.WriteSync()
}

func (s *LevelDBStore) PruneCertificatesBelow(keepFrom types.Height) error {
	if err := s.pruneBelow(prefixCert, keepFrom); err != nil {
		return err
	}
	return s.pruneBelow(prefixHeader, keepFrom)
}

func (s *LevelDBStore) pruneBelow(prefix byte, keepFrom types.Height) error {
	if keepFrom == 0 {
		return nil
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	start := []byte{prefix, 0, 0, 0, 0, 0, 0, 0, 0}
	end := heightKey(prefix, keepFrom)
	it, err := s.db.Iterator(start, end)
	if err != nil {
		return fmt.Errorf("prune iterator: %w", err)
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key := make([]byte, len(it.Key()))
		copy(key, it.Key())
		if err := batch.Delete(key); err != nil {
			return fmt.Errorf("batch delete: %w", err)
		}
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("prune iterator error: %w", err)
	}
	return batch.WriteSync()
}

func (s *LevelDBStore) Close() error {
	return s.db.Close()
}

// MemoryStore is an in-memory Store used by component and adapter
// tests, adapted from the teacher's file/memory persistence split —
// kept as the in-memory test double rather than discarded, per the same
// interface this package's durable implementation satisfies.
type MemoryStore struct {
	mu        sync.RWMutex
	headers   map[types.Height]*types.BlockHeader
	bodies    map[types.Height]*types.BlockBody
	certs     map[types.Height]*types.CommitCertificate
	undecided map[types.Height]map[types.Round]*types.ExecutionPayload
	latest    types.Height
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		headers:   make(map[types.Height]*types.BlockHeader),
		bodies:    make(map[types.Height]*types.BlockBody),
		certs:     make(map[types.Height]*types.CommitCertificate),
		undecided: make(map[types.Height]map[types.Round]*types.ExecutionPayload),
	}
}

func (m *MemoryStore) SaveDecided(header *types.BlockHeader, body *types.BlockBody, cert *types.CommitCertificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	height := types.Height(header.Number)
	m.headers[height] = header
	m.bodies[height] = body
	m.certs[height] = cert
	delete(m.undecided, height)
	if height > m.latest {
		m.latest = height
	}
	return nil
}

func (m *MemoryStore) SaveUndecided(height types.Height, round types.Round, payload *types.ExecutionPayload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.undecided[height] == nil {
		m.undecided[height] = make(map[types.Round]*types.ExecutionPayload)
	}
	m.undecided[height][round] = payload
	return nil
}

func (m *MemoryStore) LoadUndecided(height types.Height, round types.Round) (*types.ExecutionPayload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.undecided[height][round], nil
}

func (m *MemoryStore) DeleteUndecided(height types.Height, round types.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.undecided[height], round)
	return nil
}

func (m *MemoryStore) LoadHeader(height types.Height) (*types.BlockHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.headers[height], nil
}

func (m *MemoryStore) LoadBody(height types.Height) (*types.BlockBody, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bodies[height], nil
}

func (m *MemoryStore) LoadCertificate(height types.Height) (*types.CommitCertificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.certs[height], nil
}

func (m *MemoryStore) LoadHeaders(from, to types.Height) ([]*types.BlockHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var headers []*types.BlockHeader
	for h := from; h <= to; h++ {
		if header, ok := m.headers[h]; ok {
			headers = append(headers, header)
		}
	}
	return headers, nil
}

func (m *MemoryStore) GetLatestHeight() (types.Height, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, nil
}

func (m *MemoryStore) PruneBodiesBelow(keepFrom types.Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.bodies {
		if h < keepFrom {
			delete(m.bodies, h)
		}
	}
	for h := range m.undecided {
		if h < keepFrom {
			delete(m.undecided, h)
		}
	}
	return nil
}

func (m *MemoryStore) PruneCertificatesBelow(keepFrom types.Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for h := range m.certs {
		if h < keepFrom {
			delete(m.certs, h)
		}
	}
	for h := range m.headers {
		if h < keepFrom {
			delete(m.headers, h)
		}
	}
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
