package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/address-geocoder/internal/config"
	"github.com/sells-group/address-geocoder/internal/pipeline"
	"github.com/sells-group/address-geocoder/internal/sink"
)

// validateSinks rejects --upload or --publish without the matching config
// before any lookup is made.
func validateSinks(c *config.Config, o runOptions) error {
	if o.Upload && !c.S3.Enabled() {
		return eris.New("--upload requires s3.endpoint and s3.bucket")
	}
	if o.Publish && !c.Kafka.Enabled() {
		return eris.New("--publish requires kafka.brokers and kafka.topic")
	}
	return nil
}

// publish sends a finished run to the requested sinks. Both sinks are
// attempted; their errors are joined.
func publish(ctx context.Context, c *config.Config, o runOptions, result *pipeline.Result) error {
	var errs []error

	if o.Upload {
		up, err := sink.NewUploaderFromConfig(c.S3, result.Stats.RunID)
		if err == nil {
			err = up.Upload(ctx, artifactPaths(c)...)
		}
		errs = append(errs, err)
	}

	if o.Publish {
		pub, err := sink.NewKafkaPublisherFromConfig(c.Kafka)
		if err == nil {
			err = pub.Publish(ctx, result.Stats.RunID, result.Records)
			_ = pub.Close()
		}
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
