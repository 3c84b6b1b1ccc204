package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
)

const fifoSuffix = ".fifo"

// loadAWSConfig resolves credentials from the default chain for region.
func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	awsCfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return awsCfg, nil
}

// baseEndpoint returns nil when no override is configured.
func baseEndpoint(endpoint string) *string {
	if endpoint == "" {
		return nil
	}
	return aws.String(endpoint)
}

// isFIFO reports whether a queue URL or topic ARN names a FIFO resource.
// FIFO targets require a message group, and a deduplication id unless content based deduplication is on.
func isFIFO(target string) bool {
	return strings.HasSuffix(target, fifoSuffix)
}

// stringAttributes converts the event attributes into SDK specific values, skipping empty ones.
func stringAttributes[T any](evt Event, build func(value string) T) map[string]T {
	out := make(map[string]T)
	for k, v := range evt.attributes() {
		if v == "" {
			continue
		}
		out[k] = build(v)
	}
	return out
}
