package fhir

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// EntryResult is the outcome of parsing one Bundle entry.
type EntryResult struct {
	// Index is the position of the entry in Bundle.entry, or -1 for
	// failures reading the bundle itself.
	Index int

	FullURL      string
	ResourceType string
	Resource     Resource
	Err          error
}

type bundleEntry struct {
	FullURL  string          `json:"fullUrl"`
	Resource json.RawMessage `json:"resource"`
}

// StreamBundle reads a FHIR Bundle from r and parses its entries one at a
// time, in order, without loading the whole bundle. Entries whose resource
// is missing or of an unhandled type are emitted with a nil Resource. The
// channel is closed when the bundle ends, a read error occurs or ctx is
// done.
func StreamBundle(ctx context.Context, r io.Reader) <-chan *EntryResult {
	results := make(chan *EntryResult, 16)

	go func() {
		defer close(results)

		emit := func(res *EntryResult) bool {
			select {
			case results <- res:
				return true
			case <-ctx.Done():
				return false
			}
		}

		dec := json.NewDecoder(r)
		if err := expectDelim(dec, '{'); err != nil {
			emit(&EntryResult{Index: -1, Err: fmt.Errorf("read bundle: %w", err)})
			return
		}

		for dec.More() {
			if ctx.Err() != nil {
				return
			}
			tok, err := dec.Token()
			if err != nil {
				emit(&EntryResult{Index: -1, Err: fmt.Errorf("read bundle field: %w", err)})
				return
			}
			name, _ := tok.(string)
			if name == "entry" {
				streamEntries(ctx, dec, emit)
				return
			}
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				emit(&EntryResult{Index: -1, Err: fmt.Errorf("skip bundle field %s: %w", name, err)})
				return
			}
		}
	}()

	return results
}

func streamEntries(ctx context.Context, dec *json.Decoder, emit func(*EntryResult) bool) {
	if err := expectDelim(dec, '['); err != nil {
		emit(&EntryResult{Index: -1, Err: fmt.Errorf("read bundle entries: %w", err)})
		return
	}

	for index := 0; dec.More(); index++ {
		if ctx.Err() != nil {
			return
		}
		var entry bundleEntry
		if err := dec.Decode(&entry); err != nil {
			// The decoder cannot resynchronize after a syntax error.
			emit(&EntryResult{Index: index, Err: fmt.Errorf("decode entry %d: %w", index, err)})
			return
		}

		res := &EntryResult{Index: index, FullURL: entry.FullURL}
		if len(entry.Resource) > 0 {
			res.ResourceType, _ = DetectResourceType(entry.Resource)
			res.Resource, res.Err = ParseResource(entry.Resource)
		}
		if !emit(res) {
			return
		}
	}
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %v, got %v", want, tok)
	}
	return nil
}
