// Package driver contains the default [domain.Driver] implementation.
package driver

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kolypto/missymongo/domain"
	"github.com/kolypto/missymongo/internal/adapter/objectid"
	"github.com/kolypto/missymongo/internal/adapter/reconciler"
	"github.com/kolypto/missymongo/internal/adapter/shape"
	"go.uber.org/zap"
)

// Name is returned by [Driver.String].
const Name = "mongodb"

// Driver implements domain.Driver.
type Driver struct {
	connector  domain.Connector
	shape      domain.ShapeAdapter
	reconciler domain.Reconciler
	logger     *zap.Logger

	mu     sync.RWMutex
	state  domain.State
	client domain.Client
	schema domain.Schema
}

// NewDriver returns a new implementation of domain.Driver.
func NewDriver(options ...domain.DriverOption) (domain.Driver, error) {
	opts := domain.DriverOptions{
		Logger: zap.NewNop(),
	}
	for _, option := range options {
		option(&opts)
	}
	if opts.Connector == nil {
		return nil, domain.ErrNoConnector
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ShapeAdapter == nil {
		opts.ShapeAdapter = shape.NewAdapter()
	}
	if opts.Reconciler == nil {
		opts.Reconciler = reconciler.NewReconciler(
			domain.WithReconcilerLogger(opts.Logger),
		)
	}

	d := &Driver{
		connector:  opts.Connector,
		shape:      opts.ShapeAdapter,
		reconciler: opts.Reconciler,
		logger:     opts.Logger.With(zap.String("driver", Name)),
		state:      domain.StateDisconnected,
	}
	if opts.Schema != nil {
		if err := d.BindSchema(opts.Schema); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Driver) String() string {
	return Name
}

// Connect implements domain.Driver.
func (d *Driver) Connect(ctx context.Context) (domain.Client, error) {
	d.mu.Lock()
	if d.state != domain.StateDisconnected {
		d.mu.Unlock()
		return nil, domain.ErrAlreadyConnected
	}
	d.state = domain.StateConnecting
	d.mu.Unlock()

	d.logger.Debug("connecting")
	client, err := d.connector(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.state = domain.StateDisconnected
		d.logger.Warn("connection failed", zap.Error(err))
		return nil, fmt.Errorf("connect: %w", err)
	}
	d.client = client
	d.state = domain.StateConnected
	d.logger.Info("connected")
	return client, nil
}

// Disconnect implements domain.Driver. The driver is disconnected even when
// closing the client fails.
func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	if d.state != domain.StateConnected {
		d.mu.Unlock()
		return domain.ErrNotConnected
	}
	client := d.client
	d.client = nil
	d.state = domain.StateDisconnected
	d.mu.Unlock()

	if err := client.Close(ctx); err != nil {
		d.logger.Warn("disconnect failed", zap.Error(err))
		return fmt.Errorf("disconnect: %w", err)
	}
	d.logger.Info("disconnected")
	return nil
}

// State implements domain.Driver.
func (d *Driver) State() domain.State {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Client implements domain.Driver.
func (d *Driver) Client() (domain.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.state != domain.StateConnected {
		return nil, domain.ErrNotConnected
	}
	return d.client, nil
}

// BindSchema implements domain.Driver.
func (d *Driver) BindSchema(schema domain.Schema) error {
	if schema == nil {
		return domain.ErrNoSchema
	}
	if err := schema.RegisterType(objectid.TypeName, objectid.NewHandler()); err != nil {
		return fmt.Errorf("bind schema: %w", err)
	}
	d.mu.Lock()
	d.schema = schema
	d.mu.Unlock()
	return nil
}

// Collection implements domain.Driver.
func (d *Driver) Collection(model domain.Model) (domain.Collection, error) {
	client, err := d.Client()
	if err != nil {
		return nil, err
	}
	return client.Collection(model.Collection()), nil
}

// begin resolves the collection of model and a logger scoped to op.
func (d *Driver) begin(model domain.Model, op string) (domain.Collection, *zap.Logger, error) {
	coll, err := d.Collection(model)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	logger := d.logger.With(
		zap.String("operation", op),
		zap.String("model", model.Name),
	)
	return coll, logger, nil
}

func (d *Driver) boundSchema() domain.Schema {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.schema
}

func newOptions(options []domain.Option) domain.Options {
	opts := domain.Options{New: true}
	for _, option := range options {
		option(&opts)
	}
	return opts
}

// existsError reclassifies a duplicate key signal from an insert of entities.
func existsError(model domain.Model, entities []domain.Entity, err error) error {
	var dup *domain.ErrDuplicateKey
	if !errors.As(err, &dup) {
		return err
	}
	entity := entities[0]
	if dup.Index >= 0 && dup.Index < len(entities) {
		entity = entities[dup.Index]
	}
	return &domain.ErrEntityExists{Model: model.Name, Entity: entity, Err: err}
}
