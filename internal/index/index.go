package index

import (
	"context"
	"fmt"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/google/uuid"

	"github.com/avolkova/chatline-server/internal/activity"
)

// Indexer writes activity events into a local bluge index so they can be
// searched after the fact. It is the downstream half of the activity
// pipeline; the chat server itself never reads from here.
type Indexer struct {
	writer *bluge.Writer
}

// Entry is one indexed activity record as returned by Search.
type Entry struct {
	Type   string
	UserID string
	Room   string
	Text   string
	At     time.Time
}

// Open opens (or creates) the index at path.
func Open(path string) (*Indexer, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Indexer{writer: writer}, nil
}

// Index stores one activity event.
func (i *Indexer) Index(ev activity.Event) error {
	doc := bluge.NewDocument(uuid.NewString()).
		AddField(bluge.NewTextField("type", ev.Type).StoreValue()).
		AddField(bluge.NewTextField("user", ev.UserID).StoreValue()).
		AddField(bluge.NewTextField("room", ev.RoomKey).StoreValue()).
		AddField(bluge.NewTextField("text", ev.Text).StoreValue()).
		AddField(bluge.NewDateTimeField("at", ev.At).StoreValue())

	if err := i.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("index activity event: %w", err)
	}
	return nil
}

// Search returns up to n entries whose text matches term.
func (i *Indexer) Search(ctx context.Context, term string, n int) ([]Entry, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("index reader: %w", err)
	}
	defer reader.Close()

	query := bluge.NewMatchQuery(term).SetField("text")
	it, err := reader.Search(ctx, bluge.NewTopNSearch(n, query))
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	var entries []Entry
	for {
		match, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("iterate matches: %w", err)
		}
		if match == nil {
			break
		}

		var entry Entry
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "type":
				entry.Type = string(value)
			case "user":
				entry.UserID = string(value)
			case "room":
				entry.Room = string(value)
			case "text":
				entry.Text = string(value)
			case "at":
				if at, err := bluge.DecodeDateTime(value); err == nil {
					entry.At = at
				}
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("load stored fields: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Close flushes and closes the index.
func (i *Indexer) Close() error {
	return i.writer.Close()
}
