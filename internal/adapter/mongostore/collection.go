package mongostore

import (
	"context"
	"errors"
	"strings"

	"github.com/kolypto/missymongo/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection implements domain.Collection.
type Collection struct {
	db   *mongo.Database
	coll *mongo.Collection
}

// findAndModifyReply is the reply of the findAndModify command.
type findAndModifyReply struct {
	Value           bson.M `bson:"value"`
	LastErrorObject struct {
		N               int64 `bson:"n"`
		UpdatedExisting bool  `bson:"updatedExisting"`
	} `bson:"lastErrorObject"`
}

// FindOne implements domain.Collection.
func (c *Collection) FindOne(ctx context.Context, filter domain.Criteria, opts domain.FindOptions) (domain.Entity, error) {
	findOpts := options.FindOne()
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(projectionDoc(opts.Projection))
	}
	if len(opts.Sort) > 0 {
		findOpts.SetSort(sortDoc(opts.Sort))
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}

	var raw bson.M
	err := c.coll.FindOne(ctx, document(filter), findOpts).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return entity(raw), nil
}

// Find implements domain.Collection.
func (c *Collection) Find(ctx context.Context, filter domain.Criteria, opts domain.FindOptions) ([]domain.Entity, error) {
	findOpts := options.Find()
	if len(opts.Projection) > 0 {
		findOpts.SetProjection(projectionDoc(opts.Projection))
	}
	if len(opts.Sort) > 0 {
		findOpts.SetSort(sortDoc(opts.Sort))
	}
	if opts.Skip > 0 {
		findOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		findOpts.SetLimit(opts.Limit)
	}

	cur, err := c.coll.Find(ctx, document(filter), findOpts)
	if err != nil {
		return nil, err
	}
	var raw []bson.M
	if err := cur.All(ctx, &raw); err != nil {
		return nil, err
	}
	res := make([]domain.Entity, len(raw))
	for n, doc := range raw {
		res[n] = entity(doc)
	}
	return res, nil
}

// Count implements domain.Collection.
func (c *Collection) Count(ctx context.Context, filter domain.Criteria, opts domain.FindOptions) (int64, error) {
	countOpts := options.Count()
	if opts.Skip > 0 {
		countOpts.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		countOpts.SetLimit(opts.Limit)
	}
	return c.coll.CountDocuments(ctx, document(filter), countOpts)
}

// Insert implements domain.Collection. Identifiers are generated on the
// client so that docs carry them even when the insert fails midway.
func (c *Collection) Insert(ctx context.Context, docs []domain.Entity) error {
	batch := make([]any, len(docs))
	for n, doc := range docs {
		if doc[domain.DefaultPrimaryKey] == nil {
			doc[domain.DefaultPrimaryKey] = primitive.NewObjectID()
		}
		batch[n] = bson.M(doc)
	}

	_, err := c.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(true))
	if err == nil || !mongo.IsDuplicateKeyError(err) {
		return err
	}
	index := -1
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, we := range bwe.WriteErrors {
			if isDuplicateKeyCode(we.Code) {
				index = we.Index
				break
			}
		}
	}
	return &domain.ErrDuplicateKey{Index: index, Err: err}
}

// Update implements domain.Collection. An update without operators replaces
// a single document.
func (c *Collection) Update(ctx context.Context, filter domain.Criteria, update domain.Update, opts domain.UpdateOptions) (int64, error) {
	var (
		res *mongo.UpdateResult
		err error
	)
	switch {
	case !isOperatorDoc(update):
		if opts.Multi {
			return 0, errors.New("multi update requires update operators")
		}
		res, err = c.coll.ReplaceOne(ctx, document(filter), bson.M(update),
			options.Replace().SetUpsert(opts.Upsert))
	case opts.Multi:
		res, err = c.coll.UpdateMany(ctx, document(filter), bson.M(update),
			options.Update().SetUpsert(opts.Upsert))
	default:
		res, err = c.coll.UpdateOne(ctx, document(filter), bson.M(update),
			options.Update().SetUpsert(opts.Upsert))
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, &domain.ErrDuplicateKey{Index: -1, Err: err}
		}
		return 0, err
	}
	return res.MatchedCount, nil
}

// Remove implements domain.Collection.
func (c *Collection) Remove(ctx context.Context, filter domain.Criteria, opts domain.RemoveOptions) (int64, error) {
	var (
		res *mongo.DeleteResult
		err error
	)
	if opts.Multi {
		res, err = c.coll.DeleteMany(ctx, document(filter))
	} else {
		res, err = c.coll.DeleteOne(ctx, document(filter))
	}
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindAndModify implements domain.Collection through the findAndModify
// command, the only primitive reporting whether an existing document was
// matched.
func (c *Collection) FindAndModify(ctx context.Context, filter domain.Criteria, sort domain.Sort, replacement domain.Entity, opts domain.FindAndModifyOptions) (domain.FindAndModifyResult, error) {
	cmd := bson.D{
		{Key: "findAndModify", Value: c.coll.Name()},
		{Key: "query", Value: document(filter)},
	}
	if len(sort) > 0 {
		cmd = append(cmd, bson.E{Key: "sort", Value: sortDoc(sort)})
	}
	if opts.Remove {
		cmd = append(cmd, bson.E{Key: "remove", Value: true})
	} else {
		cmd = append(cmd,
			bson.E{Key: "update", Value: document(replacement)},
			bson.E{Key: "new", Value: opts.New},
			bson.E{Key: "upsert", Value: opts.Upsert},
		)
	}

	var reply findAndModifyReply
	if err := c.db.RunCommand(ctx, cmd).Decode(&reply); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.FindAndModifyResult{}, &domain.ErrDuplicateKey{Index: -1, Err: err}
		}
		return domain.FindAndModifyResult{}, err
	}

	res := domain.FindAndModifyResult{
		Matched: reply.LastErrorObject.UpdatedExisting,
	}
	if opts.Remove {
		res.Matched = reply.LastErrorObject.N > 0
	}
	if reply.Value != nil {
		res.Document = entity(reply.Value)
	}
	return res, nil
}

func isDuplicateKeyCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

func isOperatorDoc(update domain.Update) bool {
	for k := range update {
		if strings.HasPrefix(k, "$") {
			return true
		}
	}
	return false
}
