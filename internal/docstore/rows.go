package docstore

import (
	"database/sql"
	"time"
)

type documentRow struct {
	Seq       int64     `db:"seq"`
	ID        string    `db:"id"`
	Workspace string    `db:"workspace"`
	CreatedAt time.Time `db:"-"`
	Created   string    `db:"created_at"`
}

type blockRow struct {
	DocumentID string `db:"document_id"`
	Position   int    `db:"position"`
	Text       string `db:"text"`
}

type tagRow struct {
	Seq           int64         `db:"seq"`
	ID            string        `db:"id"`
	DocumentID    string        `db:"document_id"`
	BlockPosition sql.NullInt64 `db:"block_position"`
	Kind          string        `db:"kind"`
	Name          string        `db:"name"`
	Value         string        `db:"value"`
	CreatedAt     time.Time     `db:"-"`
	Created       string        `db:"created_at"`
}

func (r tagRow) toTag() Tag {
	tag := Tag{
		ID:         r.ID,
		DocumentID: r.DocumentID,
		Kind:       r.Kind,
		Name:       r.Name,
		Value:      r.Value,
		CreatedAt:  r.CreatedAt,
	}
	if r.BlockPosition.Valid {
		pos := int(r.BlockPosition.Int64)
		tag.BlockPosition = &pos
	}
	return tag
}

// assemble joins rows loaded in separate queries into documents, keeping the
// order of docs. blocks must be ordered by position and tags by seq.
func assemble(docs []documentRow, blocks []blockRow, tags []tagRow) []Document {
	out := make([]Document, len(docs))
	index := make(map[string]int, len(docs))
	for i, row := range docs {
		out[i] = Document{
			ID:        row.ID,
			Workspace: row.Workspace,
			CreatedAt: row.CreatedAt,
			Blocks:    []Block{},
			Tags:      []Tag{},
		}
		index[row.ID] = i
	}
	for _, row := range blocks {
		i, ok := index[row.DocumentID]
		if !ok {
			continue
		}
		out[i].Blocks = append(out[i].Blocks, Block{Position: row.Position, Text: row.Text})
	}
	for _, row := range tags {
		i, ok := index[row.DocumentID]
		if !ok {
			continue
		}
		tag := row.toTag()
		if tag.BlockPosition == nil {
			out[i].Tags = append(out[i].Tags, tag)
			continue
		}
		for b := range out[i].Blocks {
			if out[i].Blocks[b].Position == *tag.BlockPosition {
				out[i].Blocks[b].Tags = append(out[i].Blocks[b].Tags, tag)
				break
			}
		}
	}
	return out
}

func nullablePosition(pos *int) sql.NullInt64 {
	if pos == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*pos), Valid: true}
}
