package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"leafscan/internal/domain/entity"
	"leafscan/internal/domain/port"
)

const (
	originalDir  = "leaf_images/original"
	annotatedDir = "leaf_images/annotated"
	documentDir  = "disease_detections"
)

// recordDocument JSON-документ проверки на диске
type recordDocument struct {
	ID                 string             `json:"id"`
	Timestamp          time.Time          `json:"timestamp"`
	Predictions        []entity.Detection `json:"predictions"`
	OriginalImagePath  string             `json:"original_image_path,omitempty"`
	AnnotatedImagePath string             `json:"annotated_image_path,omitempty"`
}

// FileRecordRepository хранит снимки и JSON-документы в каталоге.
//
// Раскладка:
//
//	<root>/leaf_images/original/<id>.jpg
//	<root>/leaf_images/annotated/<id>.jpg
//	<root>/disease_detections/<id>.json
type FileRecordRepository struct {
	root string
	mu   sync.RWMutex
}

// NewFileRecordRepository создаёт каталоги хранилища при необходимости.
func NewFileRecordRepository(root string) (*FileRecordRepository, error) {
	for _, dir := range []string{originalDir, annotatedDir, documentDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	return &FileRecordRepository{root: root}, nil
}

// Save пишет снимки и документ проверки
func (r *FileRecordRepository) Save(ctx context.Context, record *entity.Record) error {
	if !validID(record.ID) {
		return fmt.Errorf("invalid record id %q", record.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc := recordDocument{
		ID:          record.ID,
		Timestamp:   record.CreatedAt,
		Predictions: record.Detections,
	}

	if len(record.Original) > 0 {
		doc.OriginalImagePath = filepath.ToSlash(filepath.Join(originalDir, record.ID+".jpg"))
		if err := r.writeFile(doc.OriginalImagePath, record.Original); err != nil {
			return err
		}
	}
	if len(record.Annotated) > 0 {
		doc.AnnotatedImagePath = filepath.ToSlash(filepath.Join(annotatedDir, record.ID+".jpg"))
		if err := r.writeFile(doc.AnnotatedImagePath, record.Annotated); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return r.writeFile(filepath.Join(documentDir, record.ID+".json"), data)
}

// Get читает документ и снимки проверки
func (r *FileRecordRepository) Get(ctx context.Context, id string) (*entity.Record, error) {
	if !validID(id) {
		return nil, port.ErrRecordNotFound
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	doc, err := r.readDocument(id)
	if err != nil {
		return nil, err
	}

	record := &entity.Record{
		ID:         doc.ID,
		CreatedAt:  doc.Timestamp,
		Detections: doc.Predictions,
	}
	if doc.OriginalImagePath != "" {
		if record.Original, err = os.ReadFile(filepath.Join(r.root, doc.OriginalImagePath)); err != nil {
			return nil, fmt.Errorf("read original image: %w", err)
		}
	}
	if doc.AnnotatedImagePath != "" {
		if record.Annotated, err = os.ReadFile(filepath.Join(r.root, doc.AnnotatedImagePath)); err != nil {
			return nil, fmt.Errorf("read annotated image: %w", err)
		}
	}
	return record, nil
}

// List возвращает последние записи без снимков
func (r *FileRecordRepository) List(ctx context.Context, limit int) ([]*entity.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := os.ReadDir(filepath.Join(r.root, documentDir))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	records := make([]*entity.Record, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		doc, err := r.readDocument(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		records = append(records, &entity.Record{
			ID:         doc.ID,
			CreatedAt:  doc.Timestamp,
			Detections: doc.Predictions,
		})
	}

	return newestFirst(records, limit), nil
}

func (r *FileRecordRepository) readDocument(id string) (*recordDocument, error) {
	data, err := os.ReadFile(filepath.Join(r.root, documentDir, id+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, port.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read record: %w", err)
	}

	var doc recordDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", id, err)
	}
	return &doc, nil
}

// writeFile пишет через временный файл, чтобы не оставлять обрывков.
func (r *FileRecordRepository) writeFile(rel string, data []byte) error {
	path := filepath.Join(r.root, rel)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}

// validID не даёт выйти за пределы каталога хранилища
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\.`)
}

var _ port.RecordRepository = (*FileRecordRepository)(nil)
