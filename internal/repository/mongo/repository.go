package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mediafetch/internal/domain"
)

// defaultListLimit caps unbounded history listings.
const defaultListLimit = 100

type Repository struct {
	collection *mongo.Collection
}

type historyDoc struct {
	ID         string `bson:"_id"`
	URL        string `bson:"url"`
	Title      string `bson:"title,omitempty"`
	Channel    string `bson:"channel,omitempty"`
	Mode       string `bson:"mode"`
	Quality    string `bson:"quality,omitempty"`
	Format     string `bson:"format,omitempty"`
	Status     string `bson:"status"`
	Error      string `bson:"error,omitempty"`
	FilePath   string `bson:"filePath,omitempty"`
	FileName   string `bson:"fileName,omitempty"`
	FileSize   string `bson:"fileSize,omitempty"`
	TotalBytes int64  `bson:"totalBytes"`
	StartedAt  int64  `bson:"startedAt"`
	FinishedAt int64  `bson:"finishedAt"`
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
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "finishedAt", Value: -1}}},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, models)
	return err
}

// Append stores the outcome of a finished job. The job id is the document
// key: a retried job id after a service restart replaces the stale record
// instead of failing on a duplicate key.
func (r *Repository) Append(ctx context.Context, e domain.HistoryEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	doc := toDoc(e)
	_, err := r.collection.ReplaceOne(
		ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *Repository) Get(ctx context.Context, jobID string) (domain.HistoryEntry, error) {
	var doc historyDoc
	if err := r.collection.FindOne(ctx, bson.M{"_id": jobID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.HistoryEntry{}, domain.ErrNotFound
		}
		return domain.HistoryEntry{}, err
	}
	return fromDoc(doc), nil
}

func (r *Repository) List(ctx context.Context, filter domain.HistoryFilter) ([]domain.HistoryEntry, error) {
	query := bson.M{}
	if filter.Status != nil {
		query["status"] = string(*filter.Status)
	}

	search := strings.TrimSpace(filter.Search)
	if search != "" {
		pattern := bson.M{
			"$regex":   regexp.QuoteMeta(search),
			"$options": "i",
		}
		query["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"channel": pattern},
		}
	}

	direction := -1
	if filter.SortOrder == domain.SortAsc {
		direction = 1
	}

	opts := options.Find()
	opts.SetSort(bson.D{{Key: "finishedAt", Value: direction}})
	if filter.Offset > 0 {
		opts.SetSkip(int64(filter.Offset))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	opts.SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []historyDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return fromDocs(docs), nil
}

func (r *Repository) Delete(ctx context.Context, jobID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": jobID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) Clear(ctx context.Context) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{})
	return err
}

func toDoc(e domain.HistoryEntry) historyDoc {
	return historyDoc{
		ID:         e.JobID,
		URL:        e.URL,
		Title:      e.Title,
		Channel:    e.Channel,
		Mode:       string(e.Mode),
		Quality:    e.Quality,
		Format:     e.Format,
		Status:     string(e.Status),
		Error:      e.Error,
		FilePath:   e.FilePath,
		FileName:   e.FileName,
		FileSize:   e.FileSize,
		TotalBytes: e.TotalBytes,
		StartedAt:  e.StartedAt.Unix(),
		FinishedAt: e.FinishedAt.Unix(),
	}
}

func fromDoc(doc historyDoc) domain.HistoryEntry {
	return domain.HistoryEntry{
		JobID:      doc.ID,
		URL:        doc.URL,
		Title:      doc.Title,
		Channel:    doc.Channel,
		Mode:       domain.DownloadMode(doc.Mode),
		Quality:    doc.Quality,
		Format:     doc.Format,
		Status:     domain.DownloadStatus(doc.Status),
		Error:      doc.Error,
		FilePath:   doc.FilePath,
		FileName:   doc.FileName,
		FileSize:   doc.FileSize,
		TotalBytes: doc.TotalBytes,
		StartedAt:  timeFromUnix(doc.StartedAt),
		FinishedAt: timeFromUnix(doc.FinishedAt),
	}
}

func fromDocs(docs []historyDoc) []domain.HistoryEntry {
	entries := make([]domain.HistoryEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, fromDoc(doc))
	}
	return entries
}

func timeFromUnix(value int64) time.Time {
	return time.Unix(value, 0).UTC()
}
