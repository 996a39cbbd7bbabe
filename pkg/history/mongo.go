package history

import (
	"context"
	"errors"
	"log/slog"
	"time"

	perrors "github.com/fitly/tryon/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a client and pings the server.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, perrors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, perrors.Wrap(err, "failed to ping mongodb")
	}

	slog.Info("mongo_connected")
	return client, nil
}

type blobDoc struct {
	Name      string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoBlob stores the blob as one document keyed by name.
type MongoBlob struct {
	coll *mongo.Collection
	name string
}

// NewMongoBlob returns a blob stored in coll under name.
func NewMongoBlob(coll *mongo.Collection, name string) *MongoBlob {
	return &MongoBlob{coll: coll, name: name}
}

func (m *MongoBlob) Read(ctx context.Context) ([]byte, error) {
	var doc blobDoc
	err := m.coll.FindOne(ctx, bson.M{"_id": m.name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, perrors.Wrap(err, "failed to read history document")
	}
	return doc.Data, nil
}

func (m *MongoBlob) Write(ctx context.Context, data []byte) error {
	doc := blobDoc{Name: m.name, Data: data, UpdatedAt: time.Now().UTC()}
	_, err := m.coll.ReplaceOne(ctx, bson.M{"_id": m.name}, doc, options.Replace().SetUpsert(true))
	return perrors.Wrap(err, "failed to write history document")
}
