// Command missyctl inspects the collections of a MongoDB database through the
// missymongo driver.
//
// Usage:
//
//	missyctl [-config file] ping
//	missyctl [-config file] count <collection> [criteria]
//	missyctl [-config file] find <collection> [criteria]
//
// Criteria are given in MongoDB extended JSON, e.g. '{"age": {"$gt": 3}}'.
// Connection settings are read from the config file and the MISSY_MONGODB,
// MISSY_MONGODB_DATABASE and MISSY_LOG_LEVEL environment variables.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"

	"github.com/kolypto/missymongo"
	"github.com/kolypto/missymongo/internal/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	configFlag  = flag.String("config", "", "YAML config file")
	versionFlag = flag.Bool("version", false, "Show version information")
	limitFlag   = flag.Int64("limit", 0, "Maximum number of documents returned by find")
)

var errUsage = errors.New("usage: missyctl [-config file] ping | count <collection> [criteria] | find <collection> [criteria]")

func main() {
	flag.Parse()

	if *versionFlag {
		info := missymongo.GetVersionInfo()
		fmt.Printf("missyctl version %s\n", info.Version)
		fmt.Printf("Git commit: %s\n", info.GitCommit)
		fmt.Printf("Build date: %s\n", info.BuildDate)
		fmt.Printf("Go version: %s\n", info.GoVersion)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, flag.Args(), os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cfg, err := config.Load(ctx, *configFlag)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	d, err := missymongo.NewDriver(
		missymongo.WithConnector(missymongo.NewMongoConnector(cfg.URI, cfg.MongoOptions()...)),
		missymongo.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	client, err := d.Connect(ctx)
	if err != nil {
		return err
	}
	defer d.Disconnect(context.Background())

	return command(ctx, d, client, args, out)
}

func command(ctx context.Context, d missymongo.Driver, client missymongo.Client, args []string, out io.Writer) error {
	switch args[0] {
	case "ping":
		if err := client.Ping(ctx); err != nil {
			return err
		}
		_, err := fmt.Fprintln(out, "ok")
		return err

	case "count", "find":
		if len(args) < 2 || len(args) > 3 {
			return errUsage
		}
		model := missymongo.Model{Name: args[1], Table: args[1]}
		criteria, err := parseCriteria(args[2:])
		if err != nil {
			return err
		}

		if args[0] == "count" {
			n, err := d.Count(ctx, model, criteria)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, n)
			return err
		}

		docs, err := d.Find(ctx, model, criteria, missymongo.WithLimit(*limitFlag))
		if err != nil {
			return err
		}
		for _, doc := range docs {
			b, err := bson.MarshalExtJSON(ordered(doc), false, false)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out, string(b)); err != nil {
				return err
			}
		}
		return nil

	default:
		return errUsage
	}
}

// ordered sorts the top-level fields of doc so output is stable.
func ordered(doc missymongo.Entity) bson.D {
	res := make(bson.D, 0, len(doc))
	for _, k := range slices.Sorted(maps.Keys(doc)) {
		res = append(res, bson.E{Key: k, Value: doc[k]})
	}
	return res
}

func parseCriteria(args []string) (missymongo.Criteria, error) {
	if len(args) == 0 {
		return nil, nil
	}
	var criteria bson.M
	if err := bson.UnmarshalExtJSON([]byte(args[0]), false, &criteria); err != nil {
		return nil, fmt.Errorf("invalid criteria: %w", err)
	}
	return missymongo.Criteria(criteria), nil
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
