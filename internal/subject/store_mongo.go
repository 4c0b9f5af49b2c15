package subject

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const subjectsCollection = "subjects"

// MongoStore persists subjects as documents in the "subjects" collection.
// Topics are embedded, matching how the aggregate is loaded and saved.
type MongoStore struct {
	col *mongo.Collection
}

// NewMongoStore creates a MongoDB-backed subject store.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection(subjectsCollection)}
}

func (s *MongoStore) Create(ctx context.Context, subj *Subject) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	subj.Version = 1
	if _, err := s.col.InsertOne(ctx, subj); err != nil {
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *MongoStore) FindAll(ctx context.Context) ([]*Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find subjects: %w", err)
	}
	defer cur.Close(ctx)

	var out []*Subject
	for cur.Next(ctx) {
		var subj Subject
		if err := cur.Decode(&subj); err != nil {
			return nil, fmt.Errorf("decode subject: %w", err)
		}
		out = append(out, &subj)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return out, nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*Subject, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var subj Subject
	err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&subj)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSubjectNotFound
		}
		return nil, fmt.Errorf("get subject: %w", err)
	}
	if subj.Progress.GrowthTrend == nil {
		subj.Progress.GrowthTrend = []TrendPoint{}
	}
	return &subj, nil
}

func (s *MongoStore) Save(ctx context.Context, subj *Subject) error {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	expected := subj.Version
	next := *subj
	next.Version = expected + 1

	res, err := s.col.ReplaceOne(ctx, bson.M{"_id": subj.ID, "version": expected}, &next)
	if err != nil {
		return fmt.Errorf("replace subject: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.col.CountDocuments(ctx, bson.M{"_id": subj.ID})
		if err != nil {
			return fmt.Errorf("check subject: %w", err)
		}
		if n == 0 {
			return ErrSubjectNotFound
		}
		return ErrVersionConflict
	}

	subj.Version = next.Version
	return nil
}
