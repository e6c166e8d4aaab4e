// Package mongostore implements [domain.Client] and [domain.Collection] on top
// of the official MongoDB driver.
package mongostore

import (
	"context"
	"fmt"

	"github.com/kolypto/missymongo/domain"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

// Client implements domain.Client.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewConnector returns a domain.Connector dialing uri, a connection string in
// the mongodb://host:port/database format. The database is taken from the
// connection string unless set through [domain.WithMongoDatabase].
func NewConnector(uri string, options ...domain.MongoOption) domain.Connector {
	var opts domain.MongoOptions
	for _, option := range options {
		option(&opts)
	}
	return func(ctx context.Context) (domain.Client, error) {
		return Connect(ctx, uri, opts)
	}
}

// Connect dials the server and returns a client bound to a single database.
func Connect(ctx context.Context, uri string, opts domain.MongoOptions) (*Client, error) {
	dbName, err := database(uri, opts.Database)
	if err != nil {
		return nil, err
	}

	clientOpts := options.Client().ApplyURI(uri)
	if opts.AppName != "" {
		clientOpts.SetAppName(opts.AppName)
	}
	if opts.ConnectTimeout > 0 {
		clientOpts.SetConnectTimeout(opts.ConnectTimeout)
	}
	if opts.ServerSelectionTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(opts.ServerSelectionTimeout)
	}
	if err := clientOpts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client options: %w", err)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, err
	}
	return &Client{client: client, db: client.Database(dbName)}, nil
}

func database(uri, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("invalid connection string: %w", err)
	}
	if cs.Database == "" {
		return "", domain.ErrNoDatabase
	}
	return cs.Database, nil
}

// Database returns the name of the database the client is bound to.
func (c *Client) Database() string {
	return c.db.Name()
}

// Collection implements domain.Client.
func (c *Client) Collection(name string) domain.Collection {
	return &Collection{db: c.db, coll: c.db.Collection(name)}
}

// Ping implements domain.Client.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close implements domain.Client.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
