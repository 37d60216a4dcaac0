// Package id generates ULID trade identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues ULIDs stamped with a caller-supplied time, so IDs issued
// during a simulation sort by simulated time. IDs within the same millisecond
// stay lexicographically increasing.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator returns a generator seeded with seed. Equal seeds and equal
// times produce equal IDs.
func NewGenerator(seed int64) *Generator {
	return &Generator{entropy: ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)}
}

// Next returns a ULID for time t.
func (g *Generator) Next(t time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), g.entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

var std *Generator

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	std = NewGenerator(seed)
}

// New returns a ULID stamped with the wall clock.
func New() string {
	id, err := std.Next(time.Now())
	if err != nil {
		// only on clock or entropy failure
		panic(err)
	}
	return id
}

// Time returns the timestamp encoded in a ULID.
func Time(s string) (time.Time, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(id.Time()).UTC(), nil
}
