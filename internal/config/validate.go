package config

import (
	"fmt"
	"strings"
)

// ConfigurationError lists every required setting that is absent or
// unusable. It is fatal to the whole run.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required settings: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid settings: "+strings.Join(e.Invalid, ", "))
	}
	return "configuration: " + strings.Join(parts, "; ")
}

// Validate checks that every setting the selected stages and sink need is
// present. It must run before any external service is contacted.
func (c Config) Validate() error {
	cfgErr := &ConfigurationError{}
	missing := func(name string) { cfgErr.Missing = append(cfgErr.Missing, name) }
	invalid := func(format string, args ...any) {
		cfgErr.Invalid = append(cfgErr.Invalid, fmt.Sprintf(format, args...))
	}

	if len(c.Sources) == 0 {
		missing(feedURLEnv)
	}
	for i, src := range c.Sources {
		if strings.TrimSpace(src.URL) == "" {
			missing(fmt.Sprintf("sources[%d].url", i))
		}
	}

	if c.Pipeline.MaxItems <= 0 {
		invalid("pipeline.maxItems must be positive, got %d", c.Pipeline.MaxItems)
	}
	if c.Pipeline.MaxTextLength <= 0 {
		invalid("pipeline.maxTextLength must be positive, got %d", c.Pipeline.MaxTextLength)
	}

	if c.Pipeline.Enrich {
		if c.Enricher.Endpoint == "" {
			missing(enricherEndpointEnv)
		}
		if c.Enricher.APIKey == "" {
			missing(enricherAPIKeyEnv)
		}
		if c.Enricher.Model == "" {
			missing(enricherModelEnv)
		}
	}

	switch c.Sink.Kind {
	case SinkPostgres:
		if c.Sink.DSN == "" {
			missing(databaseDSNEnv)
		}
	case SinkSQLite:
		if c.Sink.SQLitePath == "" {
			missing(sqlitePathEnv)
		}
	case SinkBadger:
		if c.Sink.BadgerPath == "" {
			missing(badgerPathEnv)
		}
	case SinkDynamoDB:
		if c.Sink.DynamoDB.Table == "" {
			missing(dynamoTableEnv)
		}
	case SinkS3:
		if c.Sink.S3.Bucket == "" {
			missing(s3BucketEnv)
		}
	case SinkAzure:
		if c.Sink.Azure.ConnectionString == "" {
			missing(azureConnStringEnv)
		}
		if c.Sink.Azure.Container == "" {
			missing(azureContainerEnv)
		}
	default:
		invalid("sink.kind %q is not supported", c.Sink.Kind)
	}

	if c.Sink.IsBlob() && c.Sink.BlobKey != BlobKeyTitle && c.Sink.BlobKey != BlobKeyRemote {
		invalid("sink.blobKey %q must be %q or %q", c.Sink.BlobKey, BlobKeyTitle, BlobKeyRemote)
	}

	if len(cfgErr.Missing) > 0 || len(cfgErr.Invalid) > 0 {
		return cfgErr
	}
	return nil
}
