// Package mongodb implements a document service on MongoDB. Where
// conditions must use the simple "field op ?" form.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"

	"github.com/preslavrachev/cloudkit/core"
	"github.com/preslavrachev/cloudkit/document"
)

// Adapter implements document.Adapter over a MongoDB database
type Adapter struct {
	db     *mongo.Database
	log    *zap.Logger
	strict bool
}

var _ document.Adapter = (*Adapter)(nil)

// New creates a MongoDB adapter. A nil logger discards output.
func New(db *mongo.Database, log *zap.Logger) *Adapter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Adapter{
		db:  db,
		log: log.Named("mongodb"),
	}
}

// SetStrict makes queries carrying unknown clause kinds fail with
// document.ErrUnsupportedClause instead of skipping those clauses.
func (a *Adapter) SetStrict(strict bool) {
	a.strict = strict
}

// Select starts a new query
func (a *Adapter) Select(fields any) (*document.Query, error) {
	return document.NewQuery().Select(fields)
}

// ListCollections returns the collection names of the database
func (a *Adapter) ListCollections(ctx context.Context) ([]string, error) {
	names, err := a.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	return names, nil
}

// Query finds the documents matching q
func (a *Adapter) Query(ctx context.Context, collection string, q document.Assembler) ([]document.Document, error) {
	spec, err := a.Translate(collection, q)
	if err != nil {
		return nil, err
	}

	a.log.Debug("find",
		zap.String("collection", spec.Collection),
		zap.Stringer("filter", bsonString(spec.Filter)))

	cursor, err := a.db.Collection(spec.Collection).Find(ctx, spec.Filter, spec.Options())
	if err != nil {
		return nil, fmt.Errorf("failed to execute query on %s: %w", spec.Collection, err)
	}
	defer cursor.Close(ctx)

	var rows []bson.M
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("error decoding documents: %w", err)
	}

	docs := make([]document.Document, len(rows))
	for i, row := range rows {
		docs[i] = toDocument(row)
	}
	return docs, nil
}

// FetchDocument retrieves a single document by _id
func (a *Adapter) FetchDocument(ctx context.Context, collection string, id any) (*document.Document, error) {
	q, err := document.NewQuery().From(collection)
	if err != nil {
		return nil, err
	}
	if _, err := q.WhereID(id); err != nil {
		return nil, err
	}
	spec, err := a.Translate("", q)
	if err != nil {
		return nil, err
	}

	var row bson.M
	err = a.db.Collection(spec.Collection).FindOne(ctx, spec.Filter).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %v in %s", document.ErrDocumentNotFound, id, collection)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}

	doc := toDocument(row)
	return &doc, nil
}

// InsertDocument inserts doc; a non-nil doc.ID becomes its _id
func (a *Adapter) InsertDocument(ctx context.Context, collection string, doc document.Document) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name cannot be empty", core.ErrInvalidArgument)
	}

	row := bson.M(maps.Clone(doc.Fields))
	if row == nil {
		row = bson.M{}
	}
	if doc.ID != nil {
		row["_id"] = documentID(doc.ID)
	}

	if _, err := a.db.Collection(collection).InsertOne(ctx, row); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	return nil
}

// DeleteDocument deletes a document by _id
func (a *Adapter) DeleteDocument(ctx context.Context, collection string, id any) error {
	if collection == "" {
		return fmt.Errorf("%w: collection name cannot be empty", core.ErrInvalidArgument)
	}

	result, err := a.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: "_id", Value: documentID(id)}})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %v in %s", document.ErrDocumentNotFound, id, collection)
	}
	return nil
}

func toDocument(row bson.M) document.Document {
	fields := map[string]any(row)
	return document.Document{
		ID:     fields["_id"],
		Fields: fields,
	}
}

func zapKind(kind document.Kind) zap.Field {
	return zap.String("kind", kind.String())
}

type bsonString bson.D

func (b bsonString) String() string {
	out, err := bson.MarshalExtJSON(bson.D(b), false, false)
	if err != nil {
		return fmt.Sprintf("%v", bson.D(b))
	}
	return string(out)
}
