package extraction_engine

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vish4lsharma/extractor/internal/models"
)

// ChunkConfig tunes content chunking.
//
// TargetTokens:  approximate tokens per chunk (e.g., 500).
// OverlapTokens: tokens carried from the end of one chunk into the next (e.g., 50).
type ChunkConfig struct {
	TargetTokens  int
	OverlapTokens int
}

func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{TargetTokens: 500, OverlapTokens: 50}
}

// Chunk splits extracted content into token-bounded chunks. Non-empty lines
// are the fragments; a chunk never splits a line.
func Chunk(ctx context.Context, content string, cfg ChunkConfig) ([]models.Chunk, error) {
	if cfg.TargetTokens <= 0 {
		cfg.TargetTokens = DefaultChunkConfig().TargetTokens
	}
	if cfg.OverlapTokens < 0 || cfg.OverlapTokens >= cfg.TargetTokens {
		cfg.OverlapTokens = 0
	}

	g, gctx := errgroup.WithContext(ctx)

	frags := make(chan string, 32)
	g.Go(func() error {
		defer close(frags)
		for _, line := range strings.Split(content, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case frags <- line:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	chunks := streamChunk(gctx, g, frags, cfg.TargetTokens, cfg.OverlapTokens)

	var out []models.Chunk
	g.Go(func() error {
		for ch := range chunks {
			out = append(out, ch)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// streamChunk groups incoming fragments into token-bounded chunks with optional overlap.
//
// frags:          upstream fragments channel.
// targetTokens:   approximate tokens per chunk.
// overlapTokens:  tokens to retain from the end of the previous chunk as seed of the next.
func streamChunk(
	ctx context.Context,
	g *errgroup.Group,
	frags <-chan string,
	targetTokens int,
	overlapTokens int,
) <-chan models.Chunk {
	out := make(chan models.Chunk, 8)

	g.Go(func() error {
		defer close(out)

		var (
			buf    []string
			tokSum int
			pos    int
			fresh  int // fragments added since the last emit
		)

		// flush emits the buffer and keeps an overlap tail for the next chunk.
		flush := func() error {
			if fresh == 0 {
				return nil
			}
			ch := models.Chunk{Position: pos, Text: strings.Join(buf, "\n"), TokenCount: tokSum}
			pos++

			select {
			case out <- ch:
			case <-ctx.Done():
				return ctx.Err()
			}

			fresh = 0
			if overlapTokens > 0 {
				keep := []string{}
				remain := overlapTokens
				for j := len(buf) - 1; j >= 0 && remain > 0; j-- {
					t := approxTokens(buf[j])
					if t > remain && len(keep) > 0 {
						break
					}
					keep = append([]string{buf[j]}, keep...)
					remain -= t
				}
				// A tail as large as a whole chunk would repeat forever.
				if len(keep) == len(buf) {
					keep = keep[:0]
				}
				buf = keep
				tokSum = 0
				for _, s := range buf {
					tokSum += approxTokens(s)
				}
			} else {
				buf = buf[:0]
				tokSum = 0
			}
			return nil
		}

		for frag := range frags {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			buf = append(buf, frag)
			tokSum += approxTokens(frag)
			fresh++

			if tokSum >= targetTokens {
				if err := flush(); err != nil {
					return err
				}
			}
		}

		return flush()
	})

	return out
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
