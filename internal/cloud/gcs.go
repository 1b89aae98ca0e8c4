// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/iam/credentials/apiv1/credentialspb"
	"cloud.google.com/go/storage"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"google.golang.org/api/googleapi"
)

// ErrObjectNotFound is returned by WorkbookStore.Download for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// ErrNotWorkbook is returned when downloaded bytes are not an OOXML workbook.
var ErrNotWorkbook = errors.New("object is not an xlsx workbook")

// ErrGenerationMismatch is returned by a conditional Upload when another
// writer replaced the object since it was read.
var ErrGenerationMismatch = errors.New("object changed since it was read")

// AnyGeneration makes Upload overwrite the object unconditionally. A
// generation of 0 means the object must not exist yet.
const AnyGeneration int64 = -1

// XlsxContentType is the MIME type of the rating workbooks.
const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookStore mirrors the rating and recommendation workbooks to a GCS
// bucket so that several API replicas share them, and signs download URLs for
// the exported recommendations.
type WorkbookStore struct {
	StorageClient *storage.Client
	IAMClient     *credentials.IamCredentialsClient
	Bucket        string
	Prefix        string
	SignerEmail   string
}

// NewWorkbookStore returns nil when no bucket is configured; callers treat a
// nil store as local-only.
func NewWorkbookStore(config *Config, sc *storage.Client, iam *credentials.IamCredentialsClient) *WorkbookStore {
	if config.Storage.WorkbookBucket == "" || sc == nil {
		return nil
	}
	return &WorkbookStore{
		StorageClient: sc,
		IAMClient:     iam,
		Bucket:        config.Storage.WorkbookBucket,
		Prefix:        config.Storage.WorkbookPrefix,
		SignerEmail:   config.Application.SignerServiceAccountEmail,
	}
}

// ObjectName maps a workbook file name to its object name in the bucket.
func (s *WorkbookStore) ObjectName(name string) string {
	return path.Join(s.Prefix, path.Base(name))
}

// Download reads the named workbook and checks that it is an xlsx/zip
// container. The generation read is returned for a later conditional Upload.
func (s *WorkbookStore) Download(ctx context.Context, name string) ([]byte, int64, error) {
	reader, err := s.StorageClient.Bucket(s.Bucket).Object(s.ObjectName(name)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, 0, ErrObjectNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, err
	}
	if !IsWorkbook(data) {
		return nil, 0, ErrNotWorkbook
	}
	return data, reader.Attrs.Generation, nil
}

// Upload writes the named workbook if the stored object is still at
// generation, or unconditionally for AnyGeneration.
func (s *WorkbookStore) Upload(ctx context.Context, name string, data []byte, generation int64) error {
	obj := s.StorageClient.Bucket(s.Bucket).Object(s.ObjectName(name))
	switch {
	case generation == 0:
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	case generation > 0:
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}
	writer := obj.NewWriter(ctx)
	writer.ContentType = XlsxContentType
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return preconditionError(err)
	}
	return preconditionError(writer.Close())
}

func preconditionError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed {
		return fmt.Errorf("%w: %v", ErrGenerationMismatch, err)
	}
	return err
}

// SignedURL creates a V4 GET URL for the named workbook. Signing goes through
// the IAM Credentials API so no key file is needed on the host.
func (s *WorkbookStore) SignedURL(ctx context.Context, name string, expires time.Duration) (string, error) {
	opts := &storage.SignedURLOptions{
		Scheme:         storage.SigningSchemeV4,
		Method:         "GET",
		Expires:        time.Now().Add(expires),
		GoogleAccessID: s.SignerEmail,
	}
	if s.IAMClient != nil && s.SignerEmail != "" {
		opts.SignBytes = func(b []byte) ([]byte, error) {
			req := &credentialspb.SignBlobRequest{
				Name:    fmt.Sprintf("projects/-/serviceAccounts/%s", s.SignerEmail),
				Payload: b,
			}
			resp, err := s.IAMClient.SignBlob(ctx, req)
			if err != nil {
				return nil, fmt.Errorf("IAMClient.SignBlob: %w", err)
			}
			return resp.SignedBlob, nil
		}
	}
	u, err := s.StorageClient.Bucket(s.Bucket).SignedURL(s.ObjectName(name), opts)
	if err != nil {
		return "", fmt.Errorf("Bucket(%q).SignedURL(%q): %w", s.Bucket, s.ObjectName(name), err)
	}
	return u, nil
}

// IsWorkbook reports whether data looks like an xlsx file. Workbooks written
// by some tools sniff as plain zip, which is accepted too.
func IsWorkbook(data []byte) bool {
	kind, err := filetype.Match(data)
	if err != nil {
		return false
	}
	return kind == matchers.TypeXlsx || kind == matchers.TypeZip
}
