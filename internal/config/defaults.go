package config

import (
	"os"
	"path/filepath"
	"time"
)

const defaultSystemPrompt = `You are an expert academic paper analyzer. Analyze this research paper and provide a structured response with:

1. Main Topic/Field (one phrase)
2. Key Findings (2-3 bullet points)
3. Methodology (brief description)
4. Significance (1-2 sentences)
5. Keywords (5-7 relevant terms)

Format your response as clean JSON with keys: topic, findings, methodology, significance, keywords`

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Pipeline: PipelineConfig{
			Name:                "paperingest",
			MaxItems:            10,
			MaxTextLength:       8000,
			StageTimeoutSeconds: 60,
			Download:            false,
			Enrich:              true,
			LockFile:            filepath.Join(os.TempDir(), "paperingest.lock"),
		},
		Schedule: ScheduleConfig{Timezone: defaultTimezone, location: tz},
		Sources: []SourceConfig{
			{
				Name:    "harvard-dash",
				Scanner: "rss",
				URL:     "https://dash.harvard.edu/feed/rss_1.0/site",
			},
		},
		Fetch: FetchConfig{
			TimeoutSeconds: 60,
			MaxBytes:       64 << 20,
			UserAgent:      "PaperIngest/1.0",
		},
		Enricher: EnricherConfig{
			Model:        "gpt-3.5-turbo",
			SystemPrompt: defaultSystemPrompt,
			Temperature:  0.3,
			MaxTokens:    800,
		},
		Sink: SinkConfig{
			Kind:        SinkPostgres,
			Table:       "papers",
			AutoMigrate: true,
			BlobKey:     BlobKeyTitle,
			Azure:       AzureConfig{Container: "law-dropzone"},
			S3:          S3Config{Region: "us-east-1"},
			DynamoDB:    DynamoDBConfig{Region: "us-east-1"},
		},
	}
}
