package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/2xkl/PeerFlow/internal/domain"
	"github.com/2xkl/PeerFlow/internal/domain/ports"
)

// Repository persists sessions in a single collection with file metadata
// embedded in the session document, so session deletion cascades to files.
type Repository struct {
	collection *mongo.Collection
}

var _ ports.SessionRepository = (*Repository)(nil)

type fileDoc struct {
	ID         string `bson:"id"`
	Path       string `bson:"path"`
	SizeBytes  int64  `bson:"sizeBytes"`
	MimeType   string `bson:"mimeType,omitempty"`
	Playable   bool   `bson:"playable"`
	StorageKey string `bson:"storageKey,omitempty"`
}

type sessionDoc struct {
	ID              string    `bson:"_id"`
	InfoHash        string    `bson:"infoHash"`
	Name            string    `bson:"name"`
	MagnetURI       string    `bson:"magnetUri,omitempty"`
	Status          string    `bson:"status"`
	Progress        float64   `bson:"progress"`
	SizeBytes       int64     `bson:"sizeBytes"`
	DownloadedBytes int64     `bson:"downloadedBytes"`
	SavePath        string    `bson:"savePath"`
	Files           []fileDoc `bson:"files"`
	CreatedAt       int64     `bson:"createdAt"`
	UpdatedAt       int64     `bson:"updatedAt"`
}

func NewRepository(client *mongo.Client, dbName, collectionName string) *Repository {
	return &Repository{collection: client.Database(dbName).Collection(collectionName)}
}

func Connect(ctx context.Context, uri string, extra ...*options.ClientOptions) (*mongo.Client, error) {
	opts := append([]*options.ClientOptions{options.Client().ApplyURI(uri)}, extra...)
	client, err := mongo.Connect(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (r *Repository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.collection == nil {
		return nil
	}
	unique := true
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "infoHash", Value: 1}}, Options: &options.IndexOptions{Unique: &unique}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "files.id", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

func (r *Repository) Create(ctx context.Context, s domain.SessionRecord) error {
	_, err := r.collection.InsertOne(ctx, toDoc(s))
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *Repository) Get(ctx context.Context, id domain.SessionID) (domain.SessionRecord, error) {
	var doc sessionDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.SessionRecord{}, domain.ErrNotFound
		}
		return domain.SessionRecord{}, err
	}
	return fromDoc(doc), nil
}

func (r *Repository) GetByInfoHash(ctx context.Context, h domain.InfoHash) (domain.SessionRecord, error) {
	var doc sessionDoc
	if err := r.collection.FindOne(ctx, bson.M{"infoHash": string(h)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.SessionRecord{}, domain.ErrNotFound
		}
		return domain.SessionRecord{}, err
	}
	return fromDoc(doc), nil
}

func (r *Repository) List(ctx context.Context) ([]domain.SessionRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []sessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs), nil
}

func (r *Repository) ListByStatus(ctx context.Context, statuses ...domain.SessionStatus) ([]domain.SessionRecord, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}

	cursor, err := r.collection.Find(ctx, bson.M{"status": bson.M{"$in": values}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []sessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs), nil
}

func (r *Repository) Update(ctx context.Context, s domain.SessionRecord) error {
	doc := toDoc(s)
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{
		"infoHash":        doc.InfoHash,
		"name":            doc.Name,
		"magnetUri":       doc.MagnetURI,
		"status":          doc.Status,
		"progress":        doc.Progress,
		"sizeBytes":       doc.SizeBytes,
		"downloadedBytes": doc.DownloadedBytes,
		"savePath":        doc.SavePath,
		"files":           doc.Files,
		"updatedAt":       time.Now().UTC().Unix(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id domain.SessionID, status domain.SessionStatus) error {
	res, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": string(id)},
		bson.M{"$set": bson.M{
			"status":    string(status),
			"updatedAt": time.Now().UTC().Unix(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id domain.SessionID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) GetFile(ctx context.Context, fileID domain.SessionID) (domain.SessionFile, domain.SessionRecord, error) {
	var doc sessionDoc
	if err := r.collection.FindOne(ctx, bson.M{"files.id": string(fileID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.SessionFile{}, domain.SessionRecord{}, domain.ErrNotFound
		}
		return domain.SessionFile{}, domain.SessionRecord{}, err
	}
	record := fromDoc(doc)
	for _, f := range record.Files {
		if f.ID == fileID {
			return f, record, nil
		}
	}
	return domain.SessionFile{}, domain.SessionRecord{}, domain.ErrNotFound
}

func toDoc(s domain.SessionRecord) sessionDoc {
	files := make([]fileDoc, 0, len(s.Files))
	for _, f := range s.Files {
		files = append(files, fileDoc{
			ID:         string(f.ID),
			Path:       f.Path,
			SizeBytes:  f.SizeBytes,
			MimeType:   f.MimeType,
			Playable:   f.Playable,
			StorageKey: f.StorageKey,
		})
	}
	return sessionDoc{
		ID:              string(s.ID),
		InfoHash:        string(s.InfoHash),
		Name:            s.Name,
		MagnetURI:       s.MagnetURI,
		Status:          string(s.Status),
		Progress:        s.Progress,
		SizeBytes:       s.SizeBytes,
		DownloadedBytes: s.DownloadedBytes,
		SavePath:        s.SavePath,
		Files:           files,
		CreatedAt:       s.CreatedAt.Unix(),
		UpdatedAt:       s.UpdatedAt.Unix(),
	}
}

func fromDoc(doc sessionDoc) domain.SessionRecord {
	files := make([]domain.SessionFile, 0, len(doc.Files))
	for _, f := range doc.Files {
		files = append(files, domain.SessionFile{
			ID:         domain.SessionID(f.ID),
			SessionID:  domain.SessionID(doc.ID),
			Path:       f.Path,
			SizeBytes:  f.SizeBytes,
			MimeType:   f.MimeType,
			Playable:   f.Playable,
			StorageKey: f.StorageKey,
		})
	}
	return domain.SessionRecord{
		ID:              domain.SessionID(doc.ID),
		InfoHash:        domain.InfoHash(doc.InfoHash),
		Name:            doc.Name,
		MagnetURI:       doc.MagnetURI,
		Status:          domain.SessionStatus(doc.Status),
		Progress:        doc.Progress,
		SizeBytes:       doc.SizeBytes,
		DownloadedBytes: doc.DownloadedBytes,
		SavePath:        doc.SavePath,
		Files:           files,
		CreatedAt:       timeFromUnix(doc.CreatedAt),
		UpdatedAt:       timeFromUnix(doc.UpdatedAt),
	}
}

func fromDocs(docs []sessionDoc) []domain.SessionRecord {
	records := make([]domain.SessionRecord, 0, len(docs))
	for _, doc := range docs {
		records = append(records, fromDoc(doc))
	}
	return records
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}
