// Package storage persists subsystem states to SQLite. Records carry the
// register map alongside the packed density matrix so a load can rebuild the
// exact Hilbert space; any inconsistency between the two is a hard failure
// rather than a best-effort repair.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dudecon/SpaceWheat-sub021/internal/biome"
	"github.com/dudecon/SpaceWheat-sub021/internal/database"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/qmat"
	"github.com/dudecon/SpaceWheat-sub021/internal/quantum/register"
)

// ErrNotFound is returned when no record exists for a subsystem name.
var ErrNotFound = errors.New("storage: subsystem not found")

// ErrCorruptRecord is returned when a stored record fails validation.
var ErrCorruptRecord = errors.New("storage: corrupt record")

const schema = `
CREATE TABLE IF NOT EXISTS subsystems (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	payload    BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_subsystems_name ON subsystems(name);
`

// PairRecord is one register entry in a stored record.
type PairRecord struct {
	A string `msgpack:"a"`
	B string `msgpack:"b"`
}

// Record is the serialized form of one subsystem.
type Record struct {
	Name      string       `msgpack:"name"`
	Dimension int          `msgpack:"dimension"`
	Pairs     []PairRecord `msgpack:"pairs"`
	Rho       []float64    `msgpack:"rho"` // row-major (re, im) interleaved
}

// Store reads and writes subsystem records.
type Store struct {
	db  *database.DB
	log zerolog.Logger
}

// New creates a store and applies the schema.
func New(db *database.DB, log zerolog.Logger) (*Store, error) {
	if _, err := db.Conn().Exec(schema); err != nil {
		return nil, fmt.Errorf("storage: failed to apply schema: %w", err)
	}
	return &Store{
		db:  db,
		log: log.With().Str("component", "storage").Logger(),
	}, nil
}

// Save upserts one record per subsystem inside a single transaction.
func (s *Store) Save(subs []*biome.Subsystem) error {
	start := time.Now()

	tx, err := s.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("storage: failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, sub := range subs {
		rec := snapshot(sub)
		payload, err := msgpack.Marshal(rec)
		if err != nil {
			return fmt.Errorf("storage: failed to encode %s: %w", rec.Name, err)
		}
		_, err = tx.Exec(`
			INSERT INTO subsystems (id, name, payload, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(name) DO UPDATE SET
				payload = excluded.payload,
				updated_at = CURRENT_TIMESTAMP`,
			uuid.New().String(), rec.Name, payload)
		if err != nil {
			return fmt.Errorf("storage: failed to write %s: %w", rec.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: failed to commit: %w", err)
	}

	s.log.Info().
		Int("subsystems", len(subs)).
		Dur("duration_ms", time.Since(start)).
		Msg("Saved subsystem states")
	return nil
}

// Load returns the validated record for a subsystem name.
func (s *Store) Load(name string) (*Record, error) {
	var payload []byte
	err := s.db.Conn().QueryRow(
		`SELECT payload FROM subsystems WHERE name = ?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: failed to read %s: %w", name, err)
	}

	var rec Record
	if err := msgpack.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, name, err)
	}
	if err := validate(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the stored subsystem names, newest first.
func (s *Store) List() ([]string, error) {
	rows, err := s.db.Conn().Query(
		`SELECT name FROM subsystems ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to list subsystems: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("storage: failed to scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Restore rebuilds a subsystem from its stored record: the register map is
// replayed in order, then the operators are sized to the restored dimension
// and the saved state is installed.
func (s *Store) Restore(name string, log zerolog.Logger) (*biome.Subsystem, error) {
	rec, err := s.Load(name)
	if err != nil {
		return nil, err
	}

	sub := biome.New(rec.Name, log)
	for _, p := range rec.Pairs {
		if _, err := sub.AllocateQubit(p.A, p.B); err != nil {
			return nil, fmt.Errorf("storage: failed to rebuild register for %s: %w", name, err)
		}
	}
	if sub.Dimension() != rec.Dimension {
		return nil, fmt.Errorf("%w: %s: rebuilt dimension %d does not match stored %d",
			ErrCorruptRecord, name, sub.Dimension(), rec.Dimension)
	}

	rho, err := qmat.Unpack(rec.Dimension, rec.Rho)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptRecord, name, err)
	}
	if err := sub.SetRho(rho); err != nil {
		return nil, fmt.Errorf("storage: failed to install state for %s: %w", name, err)
	}
	return sub, nil
}

func snapshot(sub *biome.Subsystem) Record {
	pairs := sub.Registers().Pairs()
	rec := Record{
		Name:      sub.Name(),
		Dimension: sub.Dimension(),
		Pairs:     make([]PairRecord, len(pairs)),
		Rho:       sub.Rho().Pack(),
	}
	for i, p := range pairs {
		rec.Pairs[i] = PairRecord{A: p.A, B: p.B}
	}
	return rec
}

// validate enforces the structural invariants every record must satisfy.
// The dimension must match the register count and the packed state length.
func validate(rec *Record) error {
	if rec.Dimension != 1<<len(rec.Pairs) {
		return fmt.Errorf("%w: %s: dimension %d inconsistent with %d registers",
			ErrCorruptRecord, rec.Name, rec.Dimension, len(rec.Pairs))
	}
	if want := rec.Dimension * rec.Dimension * 2; len(rec.Rho) != want {
		return fmt.Errorf("%w: %s: state has %d values, want %d",
			ErrCorruptRecord, rec.Name, len(rec.Rho), want)
	}
	seen := make(map[register.Pair]bool, len(rec.Pairs))
	for _, p := range rec.Pairs {
		key := register.NewPair(p.A, p.B)
		if seen[key] {
			return fmt.Errorf("%w: %s: duplicate register (%s, %s)",
				ErrCorruptRecord, rec.Name, p.A, p.B)
		}
		seen[key] = true
	}
	return nil
}
