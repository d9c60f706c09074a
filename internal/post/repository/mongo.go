package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sociopedia/sociopedia/server/internal/post"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrLikeConflict is returned when a like toggle keeps losing races with concurrent toggles.
var ErrLikeConflict = errors.New("like toggle conflict, retry")

// postDoc is the stored shape: a native ObjectID key plus the post fields.
type postDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	post.Post `bson:",inline"`
}

func (d *postDoc) toModel() *post.Post {
	p := d.Post
	p.ID = d.ID.Hex()
	p.Normalize()
	return &p
}

// MongoRepo implements Repository on the "posts" collection.
type MongoRepo struct {
	col *mongo.Collection
}

func NewMongoRepo(col *mongo.Collection) *MongoRepo {
	return &MongoRepo{col: col}
}

// EnsureIndexes creates the indexes used by the feed and per-user listings.
func (m *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := m.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func (m *MongoRepo) Create(ctx context.Context, p *post.Post) (string, error) {
	p.Normalize()
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	doc := postDoc{ID: primitive.NewObjectID(), Post: *p}
	if _, err := m.col.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	p.ID = doc.ID.Hex()
	return p.ID, nil
}

func (m *MongoRepo) Get(ctx context.Context, id string) (*post.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	var d postDoc
	if err := m.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return d.toModel(), nil
}

func (m *MongoRepo) List(ctx context.Context) ([]*post.Post, error) {
	return m.find(ctx, bson.M{})
}

func (m *MongoRepo) ListByUser(ctx context.Context, userID string) ([]*post.Post, error) {
	return m.find(ctx, bson.M{"userId": userID})
}

func (m *MongoRepo) find(ctx context.Context, filter bson.M) ([]*post.Post, error) {
	cur, err := m.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*post.Post{}
	for cur.Next(ctx) {
		var d postDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toModel())
	}
	return out, cur.Err()
}

// ToggleLike reads the current like state and applies the opposite with an
// update guarded on that state, so two concurrent toggles never collapse into one.
func (m *MongoRepo) ToggleLike(ctx context.Context, id, userID string) (*post.Post, error) {
	if userID == "" || strings.ContainsAny(userID, ".$") {
		return nil, fmt.Errorf("invalid like key %q", userID)
	}
	field := "likes." + userID
	for attempt := 0; attempt < 2; attempt++ {
		cur, err := m.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		oid, _ := primitive.ObjectIDFromHex(id)
		now := time.Now().UTC()

		var filter, update bson.M
		if cur.Liked(userID) {
			filter = bson.M{"_id": oid, field: true}
			update = bson.M{"$unset": bson.M{field: ""}, "$set": bson.M{"updatedAt": now}}
		} else {
			filter = bson.M{"_id": oid, field: bson.M{"$ne": true}}
			update = bson.M{"$set": bson.M{field: true, "updatedAt": now}}
		}

		var d postDoc
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		err = m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&d)
		if err == nil {
			return d.toModel(), nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
	}
	return nil, ErrLikeConflict
}
