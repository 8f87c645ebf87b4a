package export

import (
	"context"
	"fmt"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	credentialspb "cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
)

// Sink stores an exported object.
type Sink interface {
	Write(ctx context.Context, objectPath, contentType string, data []byte) error
}

// Signer issues a time-limited download URL for an object.
type Signer interface {
	SignedURL(ctx context.Context, objectPath string, expires time.Time) (string, error)
}

// GCSSink writes objects to a Cloud Storage bucket.
type GCSSink struct {
	client *storage.Client
	bucket string
}

func NewGCSSink(client *storage.Client, bucket string) *GCSSink {
	return &GCSSink{client: client, bucket: bucket}
}

func (s *GCSSink) Write(ctx context.Context, objectPath, contentType string, data []byte) error {
	w := s.client.Bucket(s.bucket).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", s.bucket, objectPath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", s.bucket, objectPath, err)
	}
	return nil
}

// IAMSigner signs V4 GET URLs with a service account key held by IAM, so the
// server never needs the private key itself.
type IAMSigner struct {
	iam            *credentials.IamCredentialsClient
	bucket         string
	serviceAccount string
}

func NewIAMSigner(iam *credentials.IamCredentialsClient, bucket, serviceAccount string) *IAMSigner {
	return &IAMSigner{iam: iam, bucket: bucket, serviceAccount: serviceAccount}
}

func (s *IAMSigner) SignedURL(ctx context.Context, objectPath string, expires time.Time) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        expires,
		GoogleAccessID: s.serviceAccount,
		SignBytes: func(b []byte) ([]byte, error) {
			resp, err := s.iam.SignBlob(ctx, &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.serviceAccount),
				Payload: b,
			})
			if err != nil {
				return nil, err
			}
			return resp.SignedBlob, nil
		},
	}
	url, err := storage.SignedURL(s.bucket, objectPath, opts)
	if err != nil {
		return "", fmt.Errorf("failed to sign url (check service account + permissions): %w", err)
	}
	return url, nil
}
