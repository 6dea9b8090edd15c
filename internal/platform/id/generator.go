package id

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generator creates opaque IDs suitable for external references.
type Generator interface {
	NewID() (string, error)
}

// UUIDGenerator issues random v4 UUIDs for entity keys.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	v, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}
	return v.String(), nil
}

const slugAlphabet = "23456789abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ"

// SlugGenerator issues short URL-safe slugs for share links.
type SlugGenerator struct {
	size int
}

func NewSlugGenerator(size int) *SlugGenerator {
	if size <= 0 {
		size = 10
	}
	return &SlugGenerator{size: size}
}

func (g *SlugGenerator) NewID() (string, error) {
	slug, err := gonanoid.Generate(slugAlphabet, g.size)
	if err != nil {
		return "", fmt.Errorf("generate slug: %w", err)
	}
	return slug, nil
}

// Sequence is a deterministic generator for tests and fixtures.
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%d", s.prefix, s.next), nil
}
