package orders

import (
	"context"
	"fmt"
	"time"

	"trendaryo/repository"
)

const numberPrefix = "TR"

// Numberer hands out human-readable order numbers: TR, the creation date as
// yymmdd and a per-day counter of at least four digits.
type Numberer struct {
	Sequences repository.SequenceRepository
}

func (n *Numberer) Generate(ctx context.Context, createdAt time.Time) (string, error) {
	day := createdAt.UTC().Format("060102")
	seq, err := n.Sequences.Next(ctx, "orders:"+day)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s%04d", numberPrefix, day, seq), nil
}
