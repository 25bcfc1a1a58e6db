package storage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"canvasnotes/internal/domain"
)

// MongoStore keeps pages in a "pages" collection and each page's elements
// as one JSON document in "scenes", keyed by page id.
type MongoStore struct {
	client   *mongo.Client
	pages    *mongo.Collection
	scenes   *mongo.Collection
	settings *mongo.Collection
}

type pageDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Zoom      float64   `bson:"zoom"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type sceneDoc struct {
	PageID    string    `bson:"_id"`
	Elements  string    `bson:"elements"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// OpenMongo connects to uri and verifies the server is reachable.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Printf("[MONGO] Connected, database: %s", dbName)

	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		pages:    db.Collection("pages"),
		scenes:   db.Collection("scenes"),
		settings: db.Collection("settings"),
	}, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) CreatePage(ctx context.Context, p *domain.Page) error {
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Zoom == 0 {
		p.Zoom = 1
	}
	if _, err := s.pages.InsertOne(ctx, toPageDoc(p)); err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	return nil
}

func (s *MongoStore) GetPage(ctx context.Context, id string) (*domain.Page, error) {
	var doc pageDoc
	err := s.pages.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get page %s: %w", id, ErrPageNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get page: %w", err)
	}
	return doc.page(), nil
}

func (s *MongoStore) ListPages(ctx context.Context) ([]domain.Page, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.pages.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	var docs []pageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	pages := make([]domain.Page, 0, len(docs))
	for _, d := range docs {
		pages = append(pages, *d.page())
	}
	return pages, nil
}

func (s *MongoStore) UpdatePage(ctx context.Context, p *domain.Page) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.pages.UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{
		"name":      p.Name,
		"zoom":      p.Zoom,
		"updatedAt": p.UpdatedAt,
	}})
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update page %s: %w", p.ID, ErrPageNotFound)
	}
	return nil
}

func (s *MongoStore) DeletePage(ctx context.Context, id string) error {
	if _, err := s.scenes.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete scene: %w", err)
	}
	if _, err := s.pages.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}

func (s *MongoStore) LoadElements(ctx context.Context, pageID string) ([]domain.Element, error) {
	var doc sceneDoc
	err := s.scenes.FindOne(ctx, bson.M{"_id": pageID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []domain.Element{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load elements: %w", err)
	}
	return domain.DecodeElements([]byte(doc.Elements))
}

// SaveElements upserts the page's scene document in one write.
func (s *MongoStore) SaveElements(ctx context.Context, pageID string, els []domain.Element) error {
	data, err := domain.EncodeElements(els)
	if err != nil {
		return err
	}
	doc := sceneDoc{PageID: pageID, Elements: string(data), UpdatedAt: time.Now().UTC()}
	opts := options.Replace().SetUpsert(true)
	if _, err := s.scenes.ReplaceOne(ctx, bson.M{"_id": pageID}, doc, opts); err != nil {
		return fmt.Errorf("save elements: %w", err)
	}
	return nil
}

func (s *MongoStore) GetSetting(ctx context.Context, name string) (string, bool, error) {
	var doc struct {
		Value string `bson:"value"`
	}
	err := s.settings.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", name, err)
	}
	return doc.Value, true, nil
}

func (s *MongoStore) SetSetting(ctx context.Context, name, value string) error {
	opts := options.UpdateOne().SetUpsert(true)
	_, err := s.settings.UpdateOne(ctx, bson.M{"_id": name}, bson.M{"$set": bson.M{"value": value}}, opts)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}

func toPageDoc(p *domain.Page) pageDoc {
	return pageDoc{ID: p.ID, Name: p.Name, Zoom: p.Zoom, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt}
}

func (d pageDoc) page() *domain.Page {
	return &domain.Page{ID: d.ID, Name: d.Name, Zoom: d.Zoom, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt}
}
