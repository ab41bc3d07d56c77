package repository

import (
	"context"
	"fmt"
	"time"
)

type Options struct {
	Driver         string // mongo | sqlite | postgres | dynamodb
	DSN            string
	ConnectTimeout time.Duration

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	DynamoTable  string
	DynamoRegion string
}

// Open connects the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (VideoRepository, error) {
	switch opts.Driver {
	case "mongo", "mongodb":
		return NewMongoRepository(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoCollection, opts.ConnectTimeout)
	case "sqlite", "sqlite3":
		return NewSQLRepository(ctx, "sqlite3", opts.DSN, opts.ConnectTimeout)
	case "postgres":
		return NewSQLRepository(ctx, "postgres", opts.DSN, opts.ConnectTimeout)
	case "dynamodb":
		return NewDynamoRepository(ctx, opts.DynamoRegion, opts.DynamoTable)
	default:
		return nil, fmt.Errorf("unknown database driver %q", opts.Driver)
	}
}
