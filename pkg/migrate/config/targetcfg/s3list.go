package targetcfg

import "errors"

// S3List : connection parameters for the s3 backed list store. Every list
// lives under its own key prefix inside the bucket.
type S3List struct {
	Bucket         string `json:"bucket"`
	Region         string `json:"region"`
	PrefixOverride string `json:"prefix_override"`
}

func (s *S3List) Validate() error {
	if s.Bucket == "" {
		return errors.New("bucket is required")
	}
	return nil
}
