package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"notes-rag-be/internal/constant"
	"notes-rag-be/internal/dto"
	"notes-rag-be/internal/entity"
	"notes-rag-be/internal/pkg/logger"
	"notes-rag-be/internal/repository/contract"
	"notes-rag-be/pkg/lexical"
	"notes-rag-be/pkg/ocr"
	"notes-rag-be/pkg/rag"

	"github.com/google/uuid"
)

const noteModule = "NoteService"

const (
	searchLimit    = 10
	similarLimit   = 5
	excerptRunes   = 200
	imageTitleMax  = 60
	imageTitleDate = "2006-01-02 15:04"
)

type INoteService interface {
	Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error)
	CreateFromImage(ctx context.Context, ownerId uuid.UUID, title string, subjectId *uuid.UUID, image []byte) (*dto.CreateNoteFromImageResponse, error)
	Show(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error)
	List(ctx context.Context, ownerId uuid.UUID) ([]*dto.ShowNoteResponse, error)
	Update(ctx context.Context, ownerId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error)
	Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error
	SuggestSubject(ctx context.Context, ownerId uuid.UUID, content string) (*dto.SubjectSuggestionResponse, error)
	SemanticSearch(ctx context.Context, ownerId uuid.UUID, search string) ([]*dto.SemanticSearchResponse, error)
	Similar(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) ([]*dto.SemanticSearchResponse, error)
}

// NoteIndex keeps embeddings in step with note edits and deletes.
type NoteIndex interface {
	Invalidate(ctx context.Context, note *entity.Note) error
	Delete(ctx context.Context, ownerId, noteId uuid.UUID) error
}

type NoteSearcher interface {
	Query(ctx context.Context, ownerId uuid.UUID, queryText string, k int, minScore float64) ([]entity.RetrievalHit, error)
	QueryWithin(ctx context.Context, ownerId uuid.UUID, noteIds []uuid.UUID, queryText string, k int, minScore float64) ([]entity.RetrievalHit, error)
	Similar(ctx context.Context, ownerId, noteId uuid.UUID, k int, minScore float64) ([]entity.RetrievalHit, error)
}

type SubjectAdvisor interface {
	Classify(ctx context.Context, noteId uuid.UUID, text string, candidates []string) (*entity.SubjectSuggestion, error)
}

type noteService struct {
	notes     contract.NoteRepository
	subjects  contract.SubjectRepository
	publisher IPublisherService
	index     NoteIndex
	searcher  NoteSearcher
	advisor   SubjectAdvisor
	extractor ocr.TextExtractor
	logger    logger.ILogger
	minScore  float64
	now       func() time.Time
}

func NewNoteService(
	notes contract.NoteRepository,
	subjects contract.SubjectRepository,
	publisher IPublisherService,
	index NoteIndex,
	searcher NoteSearcher,
	advisor SubjectAdvisor,
	extractor ocr.TextExtractor,
	log logger.ILogger,
	minScore float64,
) INoteService {
	return &noteService{
		notes:     notes,
		subjects:  subjects,
		publisher: publisher,
		index:     index,
		searcher:  searcher,
		advisor:   advisor,
		extractor: extractor,
		logger:    log,
		minScore:  minScore,
		now:       time.Now,
	}
}

func (c *noteService) Create(ctx context.Context, ownerId uuid.UUID, req *dto.CreateNoteRequest) (*dto.CreateNoteResponse, error) {
	if err := c.checkSubject(ctx, ownerId, req.SubjectId); err != nil {
		return nil, err
	}

	note, err := c.save(ctx, ownerId, req.Title, req.Content, req.SubjectId)
	if err != nil {
		return nil, err
	}

	res := &dto.CreateNoteResponse{Id: note.Id}
	if note.SubjectId == nil {
		res.SuggestedSubject = c.suggest(ctx, note.OwnerId, note.Id, note.Text)
	}
	return res, nil
}

// CreateFromImage saves a note from a photo. Extraction failure still saves
// the note, with whatever text came back, flagged for a manual edit.
func (c *noteService) CreateFromImage(ctx context.Context, ownerId uuid.UUID, title string, subjectId *uuid.UUID, image []byte) (*dto.CreateNoteFromImageResponse, error) {
	if err := c.checkSubject(ctx, ownerId, subjectId); err != nil {
		return nil, err
	}

	extraction, err := c.extractor.ExtractText(ctx, image)
	needsEdit := false
	if err != nil {
		if !errors.Is(err, rag.ErrExtractionFailure) {
			return nil, err
		}
		c.logger.Warn(noteModule, "Text extraction failed, saving note for manual edit", map[string]interface{}{
			"owner_id": ownerId.String(),
			"error":    err.Error(),
		})
		needsEdit = true
	}
	if extraction == nil {
		extraction = &ocr.Extraction{}
	}
	if extraction.Confidence < ocr.MinConfidence {
		needsEdit = true
	}

	if strings.TrimSpace(title) == "" {
		title = c.imageTitle(extraction.Text)
	}

	note, err := c.save(ctx, ownerId, title, extraction.Text, subjectId)
	if err != nil {
		return nil, err
	}

	res := &dto.CreateNoteFromImageResponse{
		Id:              note.Id,
		Title:           note.Title,
		Content:         note.Text,
		Confidence:      extraction.Confidence,
		NeedsManualEdit: needsEdit,
	}
	if note.SubjectId == nil && note.Text != "" {
		res.SuggestedSubject = c.suggest(ctx, ownerId, note.Id, note.Text)
	}
	return res, nil
}

func (c *noteService) imageTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			if runes := []rune(line); len(runes) > imageTitleMax {
				line = string(runes[:imageTitleMax])
			}
			return line
		}
	}
	return "Scanned note " + c.now().Format(imageTitleDate)
}

func (c *noteService) save(ctx context.Context, ownerId uuid.UUID, title, content string, subjectId *uuid.UUID) (*entity.Note, error) {
	now := c.now().UTC().Truncate(time.Microsecond)
	note := &entity.Note{
		Id:        uuid.New(),
		OwnerId:   ownerId,
		SubjectId: subjectId,
		Title:     title,
		Text:      content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.notes.Create(ctx, note); err != nil {
		return nil, err
	}

	c.requestIndex(ctx, note)
	return note, nil
}

// requestIndex queues the note for embedding. A lost message is repaired by
// reconcile, so failures are only logged.
func (c *noteService) requestIndex(ctx context.Context, note *entity.Note) {
	msgJson, err := json.Marshal(dto.PublishEmbedNoteMessage{NoteId: note.Id, OwnerId: note.OwnerId})
	if err == nil {
		err = c.publisher.Publish(ctx, msgJson)
	}
	if err != nil {
		c.logger.Error(noteModule, "Failed to queue note for indexing", map[string]interface{}{
			"note_id": note.Id.String(),
			"error":   err.Error(),
		})
	}
}

func (c *noteService) checkSubject(ctx context.Context, ownerId uuid.UUID, subjectId *uuid.UUID) error {
	if subjectId == nil {
		return nil
	}
	subject, err := c.subjects.FindByID(ctx, ownerId, *subjectId)
	if err != nil {
		return err
	}
	if subject == nil {
		return rag.ErrSubjectNotFound
	}
	return nil
}

func (c *noteService) Show(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) (*dto.ShowNoteResponse, error) {
	note, err := c.notes.FindByID(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, rag.ErrNoteNotFound
	}

	names, err := c.subjectNames(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	return toShowNoteResponse(note, names), nil
}

func (c *noteService) List(ctx context.Context, ownerId uuid.UUID) ([]*dto.ShowNoteResponse, error) {
	notes, err := c.notes.FindAllByOwner(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	names, err := c.subjectNames(ctx, ownerId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ShowNoteResponse, 0, len(notes))
	for _, note := range notes {
		res = append(res, toShowNoteResponse(note, names))
	}
	return res, nil
}

func (c *noteService) Update(ctx context.Context, ownerId uuid.UUID, req *dto.UpdateNoteRequest) (*dto.UpdateNoteResponse, error) {
	note, err := c.notes.FindByID(ctx, ownerId, req.Id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, rag.ErrNoteNotFound
	}
	if err := c.checkSubject(ctx, ownerId, req.SubjectId); err != nil {
		return nil, err
	}

	// updatedAt orders embedding commits, so it must move forward.
	now := c.now().UTC().Truncate(time.Microsecond)
	if !now.After(note.UpdatedAt) {
		now = note.UpdatedAt.Add(time.Microsecond)
	}

	note.Title = req.Title
	note.Text = req.Content
	note.SubjectId = req.SubjectId
	note.UpdatedAt = now
	if err := c.notes.Update(ctx, note); err != nil {
		return nil, err
	}

	// The old record stays searchable until the job lands, but flagged.
	if err := c.index.Invalidate(ctx, note); err != nil {
		c.logger.Error(noteModule, "Failed to invalidate note embedding", map[string]interface{}{
			"note_id": note.Id.String(),
			"error":   err.Error(),
		})
	}
	c.requestIndex(ctx, note)
	return &dto.UpdateNoteResponse{Id: note.Id, UpdatedAt: note.UpdatedAt}, nil
}

func (c *noteService) Delete(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) error {
	note, err := c.notes.FindByID(ctx, ownerId, id)
	if err != nil {
		return err
	}
	if note == nil {
		return rag.ErrNoteNotFound
	}

	if err := c.notes.Delete(ctx, ownerId, id); err != nil {
		return err
	}
	return c.index.Delete(ctx, ownerId, id)
}

func (c *noteService) SuggestSubject(ctx context.Context, ownerId uuid.UUID, content string) (*dto.SubjectSuggestionResponse, error) {
	return c.suggest(ctx, ownerId, uuid.Nil, content), nil
}

// suggest never fails the caller; classifier trouble yields Uncategorized.
func (c *noteService) suggest(ctx context.Context, ownerId, noteId uuid.UUID, content string) *dto.SubjectSuggestionResponse {
	fallback := &dto.SubjectSuggestionResponse{Label: constant.SubjectUncategorized}

	subjects, err := c.subjects.FindAllByOwner(ctx, ownerId)
	if err != nil {
		c.logger.Error(noteModule, "Failed to list subjects", map[string]interface{}{"error": err.Error()})
		return fallback
	}
	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Name)
	}

	suggestion, err := c.advisor.Classify(ctx, noteId, lexical.PlainText(content), names)
	if err != nil {
		c.logger.Warn(noteModule, "Subject suggestion unavailable", map[string]interface{}{"error": err.Error()})
	}
	if suggestion == nil {
		return fallback
	}

	res := &dto.SubjectSuggestionResponse{Label: suggestion.Label, Confidence: suggestion.Confidence}
	for _, s := range subjects {
		if s.Name == suggestion.Label {
			id := s.Id
			res.SubjectId = &id
			break
		}
	}
	return res
}

func (c *noteService) SemanticSearch(ctx context.Context, ownerId uuid.UUID, search string) ([]*dto.SemanticSearchResponse, error) {
	hits, err := c.searcher.Query(ctx, ownerId, search, searchLimit, c.minScore)
	if err != nil {
		return nil, err
	}
	return c.toSearchResults(ctx, ownerId, hits)
}

// Similar lists the notes closest to the given one, excluding itself.
func (c *noteService) Similar(ctx context.Context, ownerId uuid.UUID, id uuid.UUID) ([]*dto.SemanticSearchResponse, error) {
	note, err := c.notes.FindByID(ctx, ownerId, id)
	if err != nil {
		return nil, err
	}
	if note == nil {
		return nil, rag.ErrNoteNotFound
	}

	hits, err := c.searcher.Similar(ctx, ownerId, id, similarLimit, c.minScore)
	if err != nil {
		return nil, err
	}
	return c.toSearchResults(ctx, ownerId, hits)
}

func (c *noteService) toSearchResults(ctx context.Context, ownerId uuid.UUID, hits []entity.RetrievalHit) ([]*dto.SemanticSearchResponse, error) {
	names, err := c.subjectNames(ctx, ownerId)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.SemanticSearchResponse, 0, len(hits))
	for _, hit := range hits {
		note, err := c.notes.FindByID(ctx, ownerId, hit.NoteId)
		if err != nil {
			return nil, err
		}
		if note == nil {
			continue // deleted after ranking
		}
		res = append(res, &dto.SemanticSearchResponse{
			Id:             note.Id,
			Title:          note.Title,
			Excerpt:        excerpt(note.Text),
			SubjectName:    subjectName(note, names),
			UpdatedAt:      note.UpdatedAt,
			Rank:           hit.Rank,
			RelevanceScore: hit.Score,
		})
	}
	return res, nil
}

func (c *noteService) subjectNames(ctx context.Context, ownerId uuid.UUID) (map[uuid.UUID]string, error) {
	subjects, err := c.subjects.FindAllByOwner(ctx, ownerId)
	if err != nil {
		return nil, err
	}
	names := make(map[uuid.UUID]string, len(subjects))
	for _, s := range subjects {
		names[s.Id] = s.Name
	}
	return names, nil
}

func subjectName(note *entity.Note, names map[uuid.UUID]string) string {
	if note.SubjectId != nil {
		if name, ok := names[*note.SubjectId]; ok {
			return name
		}
	}
	return constant.SubjectUncategorized
}

func excerpt(text string) string {
	text = strings.Join(strings.Fields(lexical.PlainText(text)), " ")
	if runes := []rune(text); len(runes) > excerptRunes {
		return string(runes[:excerptRunes]) + "..."
	}
	return text
}

func toShowNoteResponse(note *entity.Note, names map[uuid.UUID]string) *dto.ShowNoteResponse {
	return &dto.ShowNoteResponse{
		Id:          note.Id,
		Title:       note.Title,
		Content:     note.Text,
		SubjectId:   note.SubjectId,
		SubjectName: subjectName(note, names),
		CreatedAt:   note.CreatedAt,
		UpdatedAt:   note.UpdatedAt,
	}
}
