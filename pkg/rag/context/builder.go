// Package context assembles retrieved notes into a bounded prompt context.
package context

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/lexical"

	"github.com/google/uuid"
)

const blockSeparator = "\n"

// NoteLookup resolves a note for an owner. It returns nil when the note is
// gone or belongs to someone else.
type NoteLookup interface {
	Resolve(ctx context.Context, ownerId, noteId uuid.UUID) (*entity.NoteView, error)
}

// Assembled is the context handed to generation. IncludedNoteIds lists the
// notes behind Blocks, in order, and is what the answer cites.
type Assembled struct {
	ContextText     string
	IncludedNoteIds []uuid.UUID
	Blocks          []string
}

type Builder struct {
	logger logger.ILogger
}

func NewBuilder(log logger.ILogger) *Builder {
	return &Builder{logger: log}
}

// FormatBlock renders one note as a context block.
func FormatBlock(view *entity.NoteView) string {
	return fmt.Sprintf("[note:%s] Subject: %s\n%s\n", view.Note.Id, view.SubjectName, lexical.PlainText(view.Note.Text))
}

// Assemble walks hits in rank order and appends whole blocks until the next
// one would push the context past maxLength bytes. Assembly stops at the
// first block that does not fit; lower-ranked blocks are never used as
// fillers.
func (b *Builder) Assemble(ctx context.Context, ownerId uuid.UUID, hits []entity.RetrievalHit, lookup NoteLookup, maxLength int) (*Assembled, error) {
	out := &Assembled{IncludedNoteIds: []uuid.UUID{}, Blocks: []string{}}
	if maxLength <= 0 || len(hits) == 0 {
		return out, nil
	}

	ordered := slices.Clone(hits)
	slices.SortStableFunc(ordered, func(a, b entity.RetrievalHit) int {
		return a.Rank - b.Rank
	})

	seen := make(map[uuid.UUID]bool, len(ordered))
	length := 0
	for _, hit := range ordered {
		if seen[hit.NoteId] {
			continue
		}
		seen[hit.NoteId] = true

		view, err := lookup.Resolve(ctx, ownerId, hit.NoteId)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve note %s: %w", hit.NoteId, err)
		}
		if view == nil {
			b.logger.Debug("ContextBuilder", "Skipping unresolved note", map[string]interface{}{
				"note_id": hit.NoteId.String(),
			})
			continue
		}

		block := FormatBlock(view)
		added := len(block)
		if len(out.Blocks) > 0 {
			added += len(blockSeparator)
		}
		if length+added > maxLength {
			break
		}

		length += added
		out.Blocks = append(out.Blocks, block)
		out.IncludedNoteIds = append(out.IncludedNoteIds, hit.NoteId)
	}

	out.ContextText = strings.Join(out.Blocks, blockSeparator)
	return out, nil
}

// StoreLookup resolves notes and their subject names from the repositories.
type StoreLookup struct {
	notes    contract.NoteRepository
	subjects contract.SubjectRepository
}

func NewStoreLookup(notes contract.NoteRepository, subjects contract.SubjectRepository) *StoreLookup {
	return &StoreLookup{notes: notes, subjects: subjects}
}

func (l *StoreLookup) Resolve(ctx context.Context, ownerId, noteId uuid.UUID) (*entity.NoteView, error) {
	note, err := l.notes.FindByID(ctx, ownerId, noteId)
	if err != nil || note == nil {
		return nil, err
	}

	view := &entity.NoteView{Note: note, SubjectName: constant.SubjectUncategorized}
	if note.SubjectId == nil {
		return view, nil
	}
	subject, err := l.subjects.FindByID(ctx, ownerId, *note.SubjectId)
	if err != nil {
		return nil, err
	}
	if subject != nil {
		view.SubjectName = subject.Name
	}
	return view, nil
}
