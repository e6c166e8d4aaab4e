// Package memstore contains an embedded, in-memory implementation of
// [domain.Client] that mirrors the semantics of the MongoDB primitives the
// driver relies on. It is meant for tests and local runs.
package memstore

import (
	"context"
	"sync"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/comparer"
)

// Client implements domain.Client.
type Client struct {
	mu          sync.Mutex
	comparer    domain.Comparer
	collections map[string]*Collection
}

// NewClient returns a new implementation of domain.Client.
func NewClient() domain.Client {
	return &Client{
		comparer:    comparer.NewComparer(),
		collections: make(map[string]*Collection),
	}
}

// NewConnector returns a domain.Connector that always yields client, so data
// survives a disconnect. A new client is created if client is nil.
func NewConnector(client domain.Client) domain.Connector {
	if client == nil {
		client = NewClient()
	}
	return func(ctx context.Context) (domain.Client, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Collection implements domain.Client.
func (c *Client) Collection(name string) domain.Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	coll, ok := c.collections[name]
	if !ok {
		coll = newCollection(name, c.comparer)
		c.collections[name] = coll
	}
	return coll
}

// Drop removes a collection and all of its documents.
func (c *Client) Drop(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.collections, name)
}

// Ping implements domain.Client.
func (c *Client) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements domain.Client. Documents are kept.
func (c *Client) Close(ctx context.Context) error {
	return ctx.Err()
}

// executor serializes every operation on a collection. Unlike sync.Mutex,
// waiting for it can be cancelled through the context.
type executor chan struct{}

func (e executor) lock(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case e <- struct{}{}:
		return nil
	}
}

func (e executor) unlock() {
	<-e
}
