package service

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	studentIDAttempts = 100
	studentIDMin      = 1000
	studentIDSpan     = 9000
)

type studentIDChecker interface {
	ExistsByStudentID(ctx context.Context, studentID string) (bool, error)
}

// StudentIDGenerator issues human-readable identifiers of the form YYYY-NNNN.
type StudentIDGenerator struct {
	checker studentIDChecker
	now     func() time.Time
	intn    func(n int) int
}

// NewStudentIDGenerator constructs a generator backed by the student store.
func NewStudentIDGenerator(checker studentIDChecker) *StudentIDGenerator {
	return &StudentIDGenerator{checker: checker, now: time.Now, intn: rand.Intn}
}

// Generate draws random suffixes until one is unused. After every draw collides it
// falls back to the last four digits of the current unix millis without a further
// check, so the fallback may collide with an issued identifier.
func (g *StudentIDGenerator) Generate(ctx context.Context) (string, error) {
	now := g.now()
	year := now.Year()
	for attempt := 0; attempt < studentIDAttempts; attempt++ {
		candidate := fmt.Sprintf("%04d-%04d", year, studentIDMin+g.intn(studentIDSpan))
		exists, err := g.checker.ExistsByStudentID(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return fmt.Sprintf("%04d-%04d", year, now.UnixMilli()%10000), nil
}
