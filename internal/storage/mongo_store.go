package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"complaintdesk/backend/internal/config"
	"complaintdesk/backend/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore maps the two collections one-to-one onto MongoDB collections and
// uses a change stream for the live subscription, so the deployment must be a
// replica set.
type MongoStore struct {
	Client     *mongo.Client
	Users      *mongo.Collection
	Complaints *mongo.Collection
}

// NewMongoStore connects and pings MongoDB.
func NewMongoStore(ctx context.Context, cfg *config.Config) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(cfg.Mongo.Database)
	return &MongoStore{
		Client:     client,
		Users:      db.Collection("users"),
		Complaints: db.Collection("complaints"),
	}, nil
}

func (s *MongoStore) GetUserProfile(ctx context.Context, userID string) (models.Fields, error) {
	var doc bson.M
	err := s.Users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load user %s: %v", models.ErrStoreRead, userID, err)
	}
	_, fields := fieldsFromBSON(doc)
	return fields, nil
}

func (s *MongoStore) SubscribeComplaints(ctx context.Context) (Subscription, error) {
	cs, err := s.Complaints.Watch(ctx, mongo.Pipeline{})
	if err != nil {
		return nil, fmt.Errorf("%w: watch complaints: %v", models.ErrStoreRead, err)
	}

	f := newFeed(ctx, func() error {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return cs.Close(closeCtx)
	})
	changes := make(chan struct{}, 1)
	errs := make(chan error, 1)
	go func() {
		for cs.Next(f.ctx) {
			select {
			case changes <- struct{}{}:
			default:
			}
		}
		if err := cs.Err(); err != nil && f.ctx.Err() == nil {
			// the stream is dead; no automatic retry
			errs <- fmt.Errorf("%w: complaints change stream: %v", models.ErrStoreRead, err)
		}
	}()
	f.run(s.loadComplaints, changes, errs)
	return f, nil
}

func (s *MongoStore) loadComplaints(ctx context.Context) (models.Snapshot, error) {
	cur, err := s.Complaints.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: load complaints: %v", models.ErrStoreRead, err)
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: decode complaints: %v", models.ErrStoreRead, err)
	}

	snap := make(models.Snapshot, 0, len(docs))
	for _, d := range docs {
		id, fields := fieldsFromBSON(d)
		snap = append(snap, models.Document{ID: id, Fields: fields})
	}
	sortSnapshot(snap)
	return snap, nil
}

func (s *MongoStore) SetComplaintField(ctx context.Context, complaintID, field, value string) error {
	if !allowedComplaintField(field) {
		return fmt.Errorf("%w: field %q is not writable", models.ErrStoreWrite, field)
	}
	var v interface{} = value
	if field == config.FieldTimestamp {
		ts, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: timestamp %q: %v", models.ErrStoreWrite, value, err)
		}
		v = ts
	}

	res, err := s.Complaints.UpdateOne(ctx, bson.M{"_id": complaintID}, bson.M{"$set": bson.M{field: v}})
	if err != nil {
		return fmt.Errorf("%w: set %s on %s: %v", models.ErrStoreWrite, field, complaintID, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrComplaintNotFound
	}
	return nil
}

func (s *MongoStore) SaveComplaint(ctx context.Context, complaint *models.Complaint) error {
	doc := bson.M{
		"_id":                   complaint.ID,
		config.FieldComplaintID: complaint.ID,
		config.FieldAuthorID:    complaint.AuthorID,
		config.FieldText:        complaint.Text,
		config.FieldTimestamp:   complaint.Timestamp,
		config.FieldDepartment:  string(complaint.Department),
	}
	if complaint.Feedback != nil {
		doc[config.FieldFeedback] = *complaint.Feedback
	}
	_, err := s.Complaints.ReplaceOne(ctx, bson.M{"_id": complaint.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: save complaint %s: %v", models.ErrStoreWrite, complaint.ID, err)
	}
	return nil
}

func (s *MongoStore) SaveUser(ctx context.Context, user *models.User) error {
	doc := bson.M{"_id": user.ID}
	for k, v := range user.Fields() {
		doc[k] = v
	}
	_, err := s.Users.ReplaceOne(ctx, bson.M{"_id": user.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: save user %s: %v", models.ErrStoreWrite, user.ID, err)
	}
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Client.Disconnect(ctx)
}

// fieldsFromBSON flattens scalar values to strings. Nested values are dropped,
// which makes a record malformed if a required field was nested.
func fieldsFromBSON(doc bson.M) (string, models.Fields) {
	var id string
	fields := models.Fields{}
	for k, raw := range doc {
		s, ok := bsonScalar(raw)
		if !ok {
			continue
		}
		if k == "_id" {
			id = s
			continue
		}
		fields[k] = s
	}
	return id, fields
}

func bsonScalar(v interface{}) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case int32:
		return strconv.FormatInt(int64(t), 10), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case primitive.ObjectID:
		return t.Hex(), true
	case primitive.DateTime:
		return strconv.FormatInt(int64(t), 10), true
	default:
		return "", false
	}
}
