// Package indexer keeps the per-owner vector index consistent with the note
// store.
package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/embedding"
	"notes-rag-be/pkg/keylock"
	"notes-rag-be/pkg/lexical"
	"notes-rag-be/pkg/rag"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const module = "EmbeddingIndexer"

type Options struct {
	EmbedTimeout time.Duration
	Concurrency  int // reconcile workers

	// OnCommit runs after a record is written and the note lock released.
	OnCommit func(ctx context.Context, rec *entity.EmbeddingRecord)
}

// Report summarizes a reconcile pass.
type Report struct {
	Scanned   int `json:"scanned"`
	Refreshed int `json:"refreshed"`
	Failed    int `json:"failed"`
	Removed   int `json:"removed"`
}

type Indexer struct {
	notes    contract.NoteRepository
	records  contract.NoteEmbeddingRepository
	embedder embedding.EmbeddingProvider
	locker   keylock.Locker
	logger   logger.ILogger
	opts     Options

	mu           sync.RWMutex
	modelVersion string
}

func New(
	notes contract.NoteRepository,
	records contract.NoteEmbeddingRepository,
	embedder embedding.EmbeddingProvider,
	locker keylock.Locker,
	log logger.ILogger,
	opts Options,
) *Indexer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.EmbedTimeout <= 0 {
		opts.EmbedTimeout = 30 * time.Second
	}
	return &Indexer{
		notes:    notes,
		records:  records,
		embedder: embedder,
		locker:   locker,
		logger:   log,
		opts:     opts,
	}
}

// ContentHash fingerprints the text that gets embedded for a note.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// embedInput is the plain rendering of the note body. It falls back to the
// title for notes without body text, e.g. a scan whose extraction failed.
func embedInput(note *entity.Note) string {
	text := lexical.PlainText(note.Text)
	if strings.TrimSpace(text) != "" {
		return text
	}
	return note.Title
}

// ModelVersion is the embedding model records are expected to carry. Empty
// until the first successful embedding or Realign.
func (i *Indexer) ModelVersion() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.modelVersion
}

func (i *Indexer) setModelVersion(v string) {
	i.mu.Lock()
	i.modelVersion = v
	i.mu.Unlock()
}

func (i *Indexer) upToDate(rec *entity.EmbeddingRecord, hash string) bool {
	if rec == nil || rec.Stale || rec.ContentHash != hash {
		return false
	}
	current := i.ModelVersion()
	return current == "" || rec.ModelVersion == current
}

// Upsert embeds the note and commits its record. Unchanged content is a
// no-op. On embedding failure the prior record is kept, flagged stale, and
// an error wrapping rag.ErrEmbeddingFailure is returned.
func (i *Indexer) Upsert(ctx context.Context, note *entity.Note) error {
	_, err := i.upsert(ctx, note)
	return err
}

// upsert returns the committed record, or nil when nothing was written.
func (i *Indexer) upsert(ctx context.Context, note *entity.Note) (*entity.EmbeddingRecord, error) {
	rec, err := i.commit(ctx, note)
	if rec != nil && i.opts.OnCommit != nil {
		i.opts.OnCommit(ctx, rec)
	}
	return rec, err
}

func (i *Indexer) commit(ctx context.Context, note *entity.Note) (*entity.EmbeddingRecord, error) {
	input := embedInput(note)
	hash := ContentHash(input)

	prior, err := i.records.FindByNote(ctx, note.OwnerId, note.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding record: %w", err)
	}
	if i.upToDate(prior, hash) {
		i.logger.Debug(module, "Embedding up to date, skipping", map[string]interface{}{
			"note_id": note.Id.String(),
		})
		return nil, nil
	}

	// The model call stays outside the critical section.
	embedCtx, cancel := context.WithTimeout(ctx, i.opts.EmbedTimeout)
	res, embedErr := i.embedder.Embed(embedCtx, input, embedding.TaskRetrievalDocument)
	cancel()
	if embedErr == nil && (res == nil || len(res.Values) == 0) {
		embedErr = fmt.Errorf("empty embedding vector")
	}
	if embedErr != nil {
		i.markStale(ctx, note, embedErr)
		return nil, fmt.Errorf("%w: note %s: %v", rag.ErrEmbeddingFailure, note.Id, embedErr)
	}

	unlock, err := i.locker.Lock(ctx, keylock.NoteKey(note.OwnerId.String(), note.Id.String()))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire note lock: %w", err)
	}
	defer unlock()

	live, err := i.notes.FindByID(ctx, note.OwnerId, note.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load note: %w", err)
	}
	if live == nil {
		i.logger.Info(module, "Note deleted before commit, dropping embedding", map[string]interface{}{
			"note_id": note.Id.String(),
		})
		return nil, nil
	}

	current, err := i.records.FindByNote(ctx, note.OwnerId, note.Id)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding record: %w", err)
	}
	if current != nil && current.NoteUpdatedAt.After(note.UpdatedAt) {
		i.logger.Info(module, "Newer embedding already committed, dropping", map[string]interface{}{
			"note_id":   note.Id.String(),
			"committed": current.NoteUpdatedAt,
			"incoming":  note.UpdatedAt,
		})
		return nil, nil
	}

	rec := &entity.EmbeddingRecord{
		NoteId:        note.Id,
		OwnerId:       note.OwnerId,
		Vector:        embedding.NormalizeVector(res.Values),
		ModelVersion:  res.ModelVersion,
		ContentHash:   hash,
		NoteUpdatedAt: note.UpdatedAt,
		ComputedAt:    time.Now().UTC(),
	}
	if err := i.records.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store embedding record: %w", err)
	}
	i.setModelVersion(res.ModelVersion)

	i.logger.Info(module, "Embedding committed", map[string]interface{}{
		"note_id":       note.Id.String(),
		"model_version": res.ModelVersion,
		"dimension":     rec.Dimension(),
	})
	return rec, nil
}

func (i *Indexer) markStale(ctx context.Context, note *entity.Note, cause error) {
	i.logger.Warn(module, "Embedding failed, keeping prior record as stale", map[string]interface{}{
		"note_id": note.Id.String(),
		"error":   cause.Error(),
	})

	unlock, err := i.locker.Lock(ctx, keylock.NoteKey(note.OwnerId.String(), note.Id.String()))
	if err != nil {
		return
	}
	defer unlock()

	current, err := i.records.FindByNote(ctx, note.OwnerId, note.Id)
	if err != nil || current == nil {
		return
	}
	// A newer edit owns the record now.
	if current.NoteUpdatedAt.After(note.UpdatedAt) {
		return
	}
	if err := i.records.MarkStale(ctx, note.OwnerId, note.Id, note.UpdatedAt); err != nil {
		i.logger.Error(module, "Failed to mark record stale", map[string]interface{}{
			"note_id": note.Id.String(),
			"error":   err.Error(),
		})
	}
}

// Invalidate records an edit before it is re-embedded. A record whose text
// no longer matches the note is flagged stale; in both cases the record takes
// the note's updatedAt, so older in-flight commits are dropped and ranking
// ties follow the latest edit. Notes without a record are left to Upsert.
func (i *Indexer) Invalidate(ctx context.Context, note *entity.Note) error {
	unlock, err := i.locker.Lock(ctx, keylock.NoteKey(note.OwnerId.String(), note.Id.String()))
	if err != nil {
		return fmt.Errorf("failed to acquire note lock: %w", err)
	}
	defer unlock()

	rec, err := i.records.FindByNote(ctx, note.OwnerId, note.Id)
	if err != nil {
		return fmt.Errorf("failed to load embedding record: %w", err)
	}
	if rec == nil {
		return nil
	}

	if rec.ContentHash == ContentHash(embedInput(note)) {
		err = i.records.Touch(ctx, note.OwnerId, note.Id, note.UpdatedAt)
	} else {
		err = i.records.MarkStale(ctx, note.OwnerId, note.Id, note.UpdatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to invalidate embedding record: %w", err)
	}
	return nil
}

// Delete removes the note's record. Missing records are not an error.
func (i *Indexer) Delete(ctx context.Context, ownerId, noteId uuid.UUID) error {
	unlock, err := i.locker.Lock(ctx, keylock.NoteKey(ownerId.String(), noteId.String()))
	if err != nil {
		return fmt.Errorf("failed to acquire note lock: %w", err)
	}
	defer unlock()

	if err := i.records.Delete(ctx, ownerId, noteId); err != nil {
		return fmt.Errorf("failed to delete embedding record: %w", err)
	}
	return nil
}

// Reconcile repairs the owner's index: missing, stale, outdated, or
// foreign-model records are recomputed and orphans are removed.
func (i *Indexer) Reconcile(ctx context.Context, ownerId uuid.UUID) (*Report, error) {
	notes, err := i.notes.FindAllByOwner(ctx, ownerId)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	records, err := i.records.FindAllByOwner(ctx, ownerId)
	if err != nil {
		return nil, fmt.Errorf("failed to list embedding records: %w", err)
	}

	report := &Report{Scanned: len(notes)}
	live := make(map[uuid.UUID]*entity.Note, len(notes))
	for _, n := range notes {
		live[n.Id] = n
	}

	for _, rec := range records {
		if _, ok := live[rec.NoteId]; ok {
			continue
		}
		if err := i.Delete(ctx, ownerId, rec.NoteId); err != nil {
			return report, err
		}
		report.Removed++
	}

	byNote := make(map[uuid.UUID]*entity.EmbeddingRecord, len(records))
	for _, rec := range records {
		byNote[rec.NoteId] = rec
	}

	var refreshed, failed atomic.Int64
	g := new(errgroup.Group)
	g.SetLimit(i.opts.Concurrency)

	for _, n := range notes {
		if i.upToDate(byNote[n.Id], ContentHash(embedInput(n))) {
			continue
		}
		note := n
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rec, err := i.upsert(ctx, note)
			if err != nil {
				failed.Add(1)
				return nil
			}
			if rec != nil {
				refreshed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Refreshed = int(refreshed.Load())
	report.Failed = int(failed.Load())

	i.logger.Info(module, "Reconcile finished", map[string]interface{}{
		"owner_id":  ownerId.String(),
		"scanned":   report.Scanned,
		"refreshed": report.Refreshed,
		"failed":    report.Failed,
		"removed":   report.Removed,
	})

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Realign adopts modelVersion as current and reconciles the owner so every
// record moves to it.
func (i *Indexer) Realign(ctx context.Context, ownerId uuid.UUID, modelVersion string) (*Report, error) {
	if modelVersion != "" {
		i.setModelVersion(modelVersion)
	}
	i.logger.Warn(module, "Realigning owner index", map[string]interface{}{
		"owner_id":      ownerId.String(),
		"model_version": modelVersion,
	})
	return i.Reconcile(ctx, ownerId)
}
