// Package mongo hosts the MongoDB client used by the execution store. The
// store splits each record into a row document (status, error, timestamps,
// visibility) and a trace blob (the serialized node executions); this client
// exposes exactly those operations behind a fakeable interface.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"goa.design/clue/health"

	"flowline.dev/flowline/engine/execution"
)

const (
	defaultRowsCollection  = "workflow_executions"
	defaultTraceCollection = "workflow_execution_traces"
	defaultOpTimeout       = 5 * time.Second
	clientName             = "execution-mongo"
)

type (
	// Client exposes Mongo-backed operations for execution persistence.
	Client interface {
		health.Pinger

		// UpsertRow writes the row fields of the record, replacing any previous row.
		UpsertRow(ctx context.Context, rec execution.Record) error
		// FindRow returns the record row by id within the organization.
		// Returns execution.ErrNotFound if no matching row exists.
		FindRow(ctx context.Context, id, organizationID string) (execution.Record, error)
		// MarkRowError forces the row into error state with the given message.
		MarkRowError(ctx context.Context, id, message string) error
		// UpsertTrace writes the serialized node executions for the record.
		UpsertTrace(ctx context.Context, id string, data []byte) error
		// FindTrace returns the serialized node executions, or nil if none exist.
		FindTrace(ctx context.Context, id string) ([]byte, error)
	}

	// Options configures the Mongo execution client.
	Options struct {
		// Client is the Mongo connection. Required.
		Client *mongodriver.Client
		// Database names the database. Required.
		Database string
		// Rows and Traces name the two collections. Defaulted when empty.
		Rows   string
		Traces string
		// Timeout bounds individual operations. Defaults to 5s.
		Timeout time.Duration
	}

	client struct {
		mongo   *mongodriver.Client
		rows    collection
		traces  collection
		timeout time.Duration
	}

	rowDocument struct {
		ID             string               `bson:"id"`
		WorkflowID     string               `bson:"workflow_id"`
		DeploymentID   string               `bson:"deployment_id,omitempty"`
		OrganizationID string               `bson:"organization_id"`
		Status         execution.Status     `bson:"status"`
		Error          string               `bson:"error,omitempty"`
		StartedAt      *time.Time           `bson:"started_at,omitempty"`
		EndedAt        *time.Time           `bson:"ended_at,omitempty"`
		Visibility     execution.Visibility `bson:"visibility"`
		CreatedAt      time.Time            `bson:"created_at"`
		UpdatedAt      time.Time            `bson:"updated_at"`
	}

	traceDocument struct {
		ID   string `bson:"id"`
		Data []byte `bson:"data"`
	}
)

// New returns a Client backed by MongoDB. It ensures the unique row index on
// (id) and the trace index before returning.
func New(opts Options) (Client, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	rows := opts.Rows
	if rows == "" {
		rows = defaultRowsCollection
	}
	traces := opts.Traces
	if traces == "" {
		traces = defaultTraceCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	db := opts.Client.Database(opts.Database)
	rowColl := mongoCollection{coll: db.Collection(rows)}
	traceColl := mongoCollection{coll: db.Collection(traces)}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := ensureIndexes(ctx, rowColl, traceColl); err != nil {
		return nil, err
	}
	return newClientWithCollections(opts.Client, rowColl, traceColl, timeout)
}

func (c *client) Name() string {
	return clientName
}

func (c *client) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.mongo.Ping(ctx, readpref.Primary())
}

func (c *client) UpsertRow(ctx context.Context, rec execution.Record) error {
	if rec.ID == "" {
		return errors.New("execution id is required")
	}
	if rec.OrganizationID == "" {
		return errors.New("organization id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	doc := fromRecord(rec)
	filter := bson.M{"id": rec.ID}
	update := bson.M{"$set": doc}
	_, err := c.rows.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *client) FindRow(ctx context.Context, id, organizationID string) (execution.Record, error) {
	if id == "" {
		return execution.Record{}, errors.New("execution id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"id": id, "organization_id": organizationID}
	var doc rowDocument
	if err := c.rows.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return execution.Record{}, execution.ErrNotFound
		}
		return execution.Record{}, err
	}
	return doc.toRecord(), nil
}

func (c *client) MarkRowError(ctx context.Context, id, message string) error {
	if id == "" {
		return errors.New("execution id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"id": id}
	update := bson.M{"$set": bson.M{
		"status":     execution.StatusError,
		"error":      message,
		"updated_at": time.Now().UTC(),
	}}
	_, err := c.rows.UpdateOne(ctx, filter, update)
	return err
}

func (c *client) UpsertTrace(ctx context.Context, id string, data []byte) error {
	if id == "" {
		return errors.New("execution id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"id": id}
	update := bson.M{"$set": traceDocument{ID: id, Data: data}}
	_, err := c.traces.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (c *client) FindTrace(ctx context.Context, id string) ([]byte, error) {
	if id == "" {
		return nil, errors.New("execution id is required")
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	filter := bson.M{"id": id}
	var doc traceDocument
	if err := c.traces.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.Data, nil
}

func (c *client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func fromRecord(rec execution.Record) rowDocument {
	doc := rowDocument{
		ID:             rec.ID,
		WorkflowID:     rec.WorkflowID,
		DeploymentID:   rec.DeploymentID,
		OrganizationID: rec.OrganizationID,
		Status:         rec.Status,
		Error:          rec.Error,
		Visibility:     rec.Visibility,
		CreatedAt:      rec.CreatedAt.UTC(),
		UpdatedAt:      rec.UpdatedAt.UTC(),
	}
	if rec.StartedAt != nil {
		ts := rec.StartedAt.UTC()
		doc.StartedAt = &ts
	}
	if rec.EndedAt != nil {
		ts := rec.EndedAt.UTC()
		doc.EndedAt = &ts
	}
	return doc
}

func (doc rowDocument) toRecord() execution.Record {
	return execution.Record{
		ID:             doc.ID,
		WorkflowID:     doc.WorkflowID,
		DeploymentID:   doc.DeploymentID,
		OrganizationID: doc.OrganizationID,
		Status:         doc.Status,
		Error:          doc.Error,
		StartedAt:      doc.StartedAt,
		EndedAt:        doc.EndedAt,
		Visibility:     doc.Visibility,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func ensureIndexes(ctx context.Context, rows, traces collection) error {
	rowIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := rows.Indexes().CreateOne(ctx, rowIndex); err != nil {
		return err
	}
	traceIndex := mongodriver.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	_, err := traces.Indexes().CreateOne(ctx, traceIndex)
	return err
}

func newClientWithCollections(mongoClient *mongodriver.Client, rows, traces collection, timeout time.Duration) (*client, error) {
	if rows == nil || traces == nil {
		return nil, errors.New("collections are required")
	}
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	return &client{
		mongo:   mongoClient,
		rows:    rows,
		traces:  traces,
		timeout: timeout,
	}, nil
}

type collection interface {
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error)
	Indexes() indexView
}

type indexView interface {
	CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error)
}

type singleResult interface {
	Decode(val any) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return mongoSingleResult{res: c.coll.FindOne(ctx, filter, opts...)}
}

func (c mongoCollection) UpdateOne(ctx context.Context, filter any, update any, opts ...options.Lister[options.UpdateOneOptions]) (*mongodriver.UpdateResult, error) {
	return c.coll.UpdateOne(ctx, filter, update, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoSingleResult struct {
	res *mongodriver.SingleResult
}

func (r mongoSingleResult) Decode(val any) error {
	return r.res.Decode(val)
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateOne(ctx context.Context, model mongodriver.IndexModel, opts ...options.Lister[options.CreateIndexesOptions]) (string, error) {
	return v.view.CreateOne(ctx, model, opts...)
}
