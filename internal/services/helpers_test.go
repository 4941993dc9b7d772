package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"ragcorpus/internal/models"
	"ragcorpus/internal/services/events"

	"github.com/segmentio/ksuid"
)

// stubEmbedder lets tests inject provider behavior per call.
type stubEmbedder struct {
	dim     int
	calls   int
	embedFn func(texts []string) ([][]float32, error)
}

func (s *stubEmbedder) Dimension() int { return s.dim }

func (s *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	return s.embedFn(texts)
}

// fakeProjects is an in-memory ProjectRepository.
type fakeProjects struct {
	mu      sync.Mutex
	byID    map[string]*models.Project
	byName  map[string]*models.Project
	ordered []*models.Project
}

func newFakeProjects() *fakeProjects {
	return &fakeProjects{
		byID:   make(map[string]*models.Project),
		byName: make(map[string]*models.Project),
	}
}

func (f *fakeProjects) Create(ctx context.Context, name, description string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == "" {
		return nil, fmt.Errorf("%w: project name must not be empty", models.ErrValidation)
	}
	if _, ok := f.byName[name]; ok {
		return nil, fmt.Errorf("%w: project %q already exists", models.ErrConflict, name)
	}
	p := &models.Project{ID: ksuid.New().String(), Name: name, Description: description}
	f.byID[p.ID] = p
	f.byName[name] = p
	f.ordered = append(f.ordered, p)
	return p, nil
}

func (f *fakeProjects) GetOrCreate(ctx context.Context, name, description string) (*models.Project, error) {
	f.mu.Lock()
	if p, ok := f.byName[name]; ok {
		f.mu.Unlock()
		return p, nil
	}
	f.mu.Unlock()
	return f.Create(ctx, name, description)
}

func (f *fakeProjects) GetByID(ctx context.Context, id string) (*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[id]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: project %s", models.ErrNotFound, id)
}

func (f *fakeProjects) List(ctx context.Context) ([]*models.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Project(nil), f.ordered...), nil
}

// fakeFiles is an in-memory FileRepository with brute-force cosine search
// over the stored chunk vectors. Canned matches, when set, bypass the
// cosine path so ranking tests can prescribe exact scores.
type fakeFiles struct {
	mu           sync.Mutex
	files        map[string]*models.File
	order        []string
	chunksByFile map[string][]*models.Chunk
	createErr    error
	createCalls  int
	canned       []*models.SearchResult
	lastLimit    int

	// precheckMisses makes FindByFingerprint report NotFound that many
	// times, simulating a row committed between dedup check and insert.
	precheckMisses int
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{
		files:        make(map[string]*models.File),
		chunksByFile: make(map[string][]*models.Chunk),
	}
}

func (f *fakeFiles) FindByFingerprint(ctx context.Context, projectID, fingerprint string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.precheckMisses > 0 {
		f.precheckMisses--
		return nil, fmt.Errorf("%w: fingerprint %s", models.ErrNotFound, fingerprint)
	}
	for _, id := range f.order {
		file := f.files[id]
		if file.ProjectID == projectID && file.Fingerprint == fingerprint {
			return file, nil
		}
	}
	return nil, fmt.Errorf("%w: fingerprint %s", models.ErrNotFound, fingerprint)
}

func (f *fakeFiles) GetByID(ctx context.Context, id string) (*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if file, ok := f.files[id]; ok {
		return file, nil
	}
	return nil, fmt.Errorf("%w: file %s", models.ErrNotFound, id)
}

func (f *fakeFiles) CreateWithChunks(ctx context.Context, file *models.File, chunks []*models.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	for _, id := range f.order {
		stored := f.files[id]
		if stored.ProjectID == file.ProjectID && stored.Fingerprint == file.Fingerprint {
			return fmt.Errorf("%w: fingerprint %s already present", models.ErrConflict, file.Fingerprint)
		}
	}
	file.ID = ksuid.New().String()
	f.files[file.ID] = file
	f.order = append(f.order, file.ID)
	for _, chunk := range chunks {
		chunk.FileID = file.ID
		chunk.ID = ksuid.New().String()
	}
	f.chunksByFile[file.ID] = chunks
	return nil
}

func (f *fakeFiles) Delete(ctx context.Context, fileID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[fileID]; !ok {
		return false, nil
	}
	delete(f.files, fileID)
	delete(f.chunksByFile, fileID)
	for i, id := range f.order {
		if id == fileID {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (f *fakeFiles) ListByProject(ctx context.Context, projectID string) ([]*models.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.File
	for _, id := range f.order {
		if f.files[id].ProjectID == projectID {
			out = append(out, f.files[id])
		}
	}
	return out, nil
}

func (f *fakeFiles) SimilaritySearch(ctx context.Context, projectID string, query []float32, threshold float64, limit int) ([]*models.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit

	var scored []*models.SearchResult
	if f.canned != nil {
		scored = append(scored, f.canned...)
	} else {
		for _, id := range f.order {
			if f.files[id].ProjectID != projectID {
				continue
			}
			for _, chunk := range f.chunksByFile[id] {
				scored = append(scored, &models.SearchResult{
					Chunk: *chunk,
					Score: cosine(chunk.Embedding.Slice(), query),
				})
			}
		}
	}

	var kept []*models.SearchResult
	for _, m := range scored {
		if m.Score >= threshold {
			kept = append(kept, m)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		if kept[i].Chunk.FileID != kept[j].Chunk.FileID {
			return kept[i].Chunk.FileID < kept[j].Chunk.FileID
		}
		return kept[i].Chunk.ChunkIndex < kept[j].Chunk.ChunkIndex
	})
	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// eventRecorder captures published events.
type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}
