// Package warehouse is the BigQuery-backed metadata service. It lists tables
// visible to the resolved identity and describes one table's schema; both
// operations are read-only and safe for concurrent sessions.
package warehouse

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/user/schemabot/internal/auth"
	"github.com/user/schemabot/internal/types"
)

// Catalog implements types.Catalog against BigQuery. The client is created
// lazily on the first call so credential resolution happens at most once,
// after the chat transports are already up.
type Catalog struct {
	project  string
	resolver *auth.Resolver
	retry    *RetryPolicy

	mu sync.Mutex
	bq *bigquery.Client
}

// New creates a Catalog for the given project, authorized through resolver.
func New(project string, resolver *auth.Resolver) *Catalog {
	return &Catalog{
		project:  project,
		resolver: resolver,
		retry:    DefaultRetryPolicy(),
	}
}

// client returns the shared BigQuery client, creating it on first use with
// the resolved identity's token source.
func (c *Catalog) client(ctx context.Context) (*bigquery.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bq != nil {
		return c.bq, nil
	}

	identity, err := c.resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, c.project, option.WithTokenSource(identity.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	c.bq = bq
	return bq, nil
}

// ListTables enumerates every dataset visible to the identity within the
// configured project, then every table within each dataset. The result is
// the flattening of dataset iteration order by table iteration order; it is
// not re-sorted. Zero visible tables yields an empty slice, not an error.
func (c *Catalog) ListTables(ctx context.Context) ([]types.TableRef, error) {
	bq, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	refs := []types.TableRef{}
	datasets := bq.Datasets(ctx)
	for {
		ds, err := datasets.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify("list datasets", err)
		}

		tables := ds.Tables(ctx)
		for {
			tbl, err := tables.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, classify(fmt.Sprintf("list tables in %s", ds.DatasetID), err)
			}
			refs = append(refs, types.TableRef{
				Project: tbl.ProjectID,
				Dataset: tbl.DatasetID,
				Table:   tbl.TableID,
			})
		}
	}
	return refs, nil
}

// DescribeTable fetches the table's metadata: the ordered field tree plus
// partitioning and clustering info. Rate-limit signals are retried once with
// a short fixed backoff before the error surfaces.
func (c *Catalog) DescribeTable(ctx context.Context, ref types.TableRef) (*types.TableMeta, error) {
	bq, err := c.client(ctx)
	if err != nil {
		return nil, err
	}

	var md *bigquery.TableMetadata
	err = c.retry.Do(ctx, func() error {
		var err error
		md, err = bq.DatasetInProject(ref.Project, ref.Dataset).Table(ref.Table).Metadata(ctx)
		return err
	})
	if err != nil {
		return nil, classifyDescribe(fmt.Sprintf("describe %s", ref), err)
	}

	return &types.TableMeta{
		Ref:              ref,
		Schema:           convertSchema(md.Schema),
		Partitioning:     convertPartitioning(md),
		ClusteringFields: convertClustering(md),
	}, nil
}

// convertSchema maps the SDK field tree onto types.Field, preserving catalog
// order at every level.
func convertSchema(schema bigquery.Schema) []types.Field {
	fields := make([]types.Field, 0, len(schema))
	for _, fs := range schema {
		field := types.Field{
			Name:        fs.Name,
			Type:        string(fs.Type),
			Mode:        fieldMode(fs),
			Description: fs.Description,
		}
		if len(fs.Schema) > 0 {
			field.Fields = convertSchema(fs.Schema)
		}
		fields = append(fields, field)
	}
	return fields
}

func fieldMode(fs *bigquery.FieldSchema) string {
	switch {
	case fs.Repeated:
		return types.ModeRepeated
	case fs.Required:
		return types.ModeRequired
	default:
		return types.ModeNullable
	}
}

func convertPartitioning(md *bigquery.TableMetadata) *types.PartitioningInfo {
	if md.TimePartitioning != nil {
		return &types.PartitioningInfo{
			Kind:        types.PartitioningTime,
			Field:       md.TimePartitioning.Field,
			Granularity: string(md.TimePartitioning.Type),
		}
	}
	if md.RangePartitioning != nil {
		return &types.PartitioningInfo{
			Kind:  types.PartitioningRange,
			Field: md.RangePartitioning.Field,
		}
	}
	return nil
}

func convertClustering(md *bigquery.TableMetadata) []string {
	if md.Clustering == nil {
		return nil
	}
	return md.Clustering.Fields
}
