package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pixelrelay/vote-system/internal/metrics"
	"github.com/pixelrelay/vote-system/internal/model"
	"github.com/pixelrelay/vote-system/pkg/hash"
)

const voteRecordKeyPrefix = "talentvote:vote-record:"

// VoteRecordKey is the fixed key holding the vote record for clientID.
func VoteRecordKey(clientID string) string {
	return voteRecordKeyPrefix + hash.ClientKey(clientID)
}

// VoteRecordRepo is the durable vote store: the only code that reads or
// writes the vote record on the persistence medium.
type VoteRecordRepo struct {
	kv  KVStore
	key string
	log zerolog.Logger
}

func NewVoteRecordRepo(kv KVStore, clientID string, logger zerolog.Logger) *VoteRecordRepo {
	return &VoteRecordRepo{
		kv:  kv,
		key: VoteRecordKey(clientID),
		log: logger.With().Str("component", "vote-store").Logger(),
	}
}

// Read returns the persisted record, or nil when none was cast.
// Absent keys, corrupt values and medium failures all read as "not voted".
func (r *VoteRecordRepo) Read(ctx context.Context) *model.VoteRecord {
	rec, err := r.ReadStrict(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("read failed, treating as not voted")
		return nil
	}
	return rec
}

// ReadStrict is Read but reports medium failures as ErrStorage.
// Corrupt data is still treated as absent.
func (r *VoteRecordRepo) ReadStrict(ctx context.Context) (*model.VoteRecord, error) {
	data, ok, err := r.kv.Get(ctx, r.key)
	if err != nil {
		metrics.StorageErrors.WithLabelValues("read").Inc()
		return nil, fmt.Errorf("%w: read vote record: %v", ErrStorage, err)
	}
	if !ok {
		return nil, nil
	}
	return r.decode(data), nil
}

func (r *VoteRecordRepo) decode(data []byte) *model.VoteRecord {
	var rec model.VoteRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		metrics.CorruptRecords.Inc()
		r.log.Warn().Err(err).Int("bytes", len(data)).Msg("corrupt vote record ignored")
		return nil
	}
	if !rec.Valid() {
		metrics.CorruptRecords.Inc()
		r.log.Warn().Str("contestant_id", rec.ContestantID).Msg("invalid vote record ignored")
		return nil
	}
	return &rec
}

// Write persists rec. On failure the previously stored value is untouched.
func (r *VoteRecordRepo) Write(ctx context.Context, rec *model.VoteRecord) error {
	if !rec.Valid() {
		return fmt.Errorf("write vote record: invalid record %+v", rec)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal vote record: %w", err)
	}
	if err := r.kv.Put(ctx, r.key, data); err != nil {
		metrics.StorageErrors.WithLabelValues("write").Inc()
		return fmt.Errorf("%w: write vote record: %v", ErrStorage, err)
	}
	r.log.Info().Str("contestant_id", rec.ContestantID).Msg("vote record persisted")
	return nil
}

// Clear removes the record entirely.
func (r *VoteRecordRepo) Clear(ctx context.Context) error {
	if err := r.kv.Delete(ctx, r.key); err != nil {
		metrics.StorageErrors.WithLabelValues("clear").Inc()
		return fmt.Errorf("%w: clear vote record: %v", ErrStorage, err)
	}
	r.log.Info().Msg("vote record cleared")
	return nil
}

// Ping checks the underlying medium.
func (r *VoteRecordRepo) Ping(ctx context.Context) error {
	return r.kv.Ping(ctx)
}
