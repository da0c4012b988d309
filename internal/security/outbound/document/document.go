// Package document stores security records as JSON documents in an object
// store, one document per account.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/shandysiswandi/mynotes/internal/pkg/clock"
	"github.com/shandysiswandi/mynotes/internal/pkg/instrument"
	"github.com/shandysiswandi/mynotes/internal/pkg/storage"
	"github.com/shandysiswandi/mynotes/internal/security/entity"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const contentType = "application/json"

var ErrInvalidAccountID = errors.New("security document: invalid account id")

// securityDocument is the stored shape. Secret is base64 in JSON.
type securityDocument struct {
	IsSecure  bool      `json:"is_secure"`
	Algorithm string    `json:"algorithm"`
	Secret    []byte    `json:"secret,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Document struct {
	store  storage.Storage
	bucket string
	clock  clock.Clocker
	ins    instrument.Instrumentation
}

func NewDocument(store storage.Storage, bucket string, clk clock.Clocker, ins instrument.Instrumentation) *Document {
	return &Document{store: store, bucket: bucket, clock: clk, ins: ins}
}

// objectKey keeps the account id inside one path segment.
func objectKey(accountID string) (string, error) {
	switch accountID {
	case "", ".", "..":
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountID, accountID)
	}
	return "users/" + url.PathEscape(accountID) + "/security.json", nil
}

func (s *Document) LoadSecurityRecord(ctx context.Context, accountID string) (_ entity.SecurityRecord, err error) {
	ctx, span := s.startSpan(ctx, "LoadSecurityRecord")
	defer func() { s.endSpan(span, err) }()

	key, err := objectKey(accountID)
	if err != nil {
		return entity.SecurityRecord{}, err
	}

	body, _, err := s.store.GetObject(ctx, s.bucket, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return entity.NewSecurityRecord(), nil
	}
	if err != nil {
		return entity.SecurityRecord{}, err
	}

	var doc securityDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return entity.SecurityRecord{}, fmt.Errorf("security document: %w", err)
	}

	spec, ok := entity.StoredAlgorithm(doc.Algorithm)
	if !ok {
		slog.WarnContext(ctx, "unknown stored algorithm, using default", "account_id", accountID, "algorithm", doc.Algorithm)
	}

	return entity.SecurityRecord{
		SecondFactorEnabled: doc.IsSecure,
		Algorithm:           spec,
		EncryptedSecret:     doc.Secret,
		UpdatedAt:           doc.UpdatedAt,
	}, nil
}

func (s *Document) SaveSecurityRecord(ctx context.Context, accountID string, rec entity.SecurityRecord) (err error) {
	ctx, span := s.startSpan(ctx, "SaveSecurityRecord")
	defer func() { s.endSpan(span, err) }()

	key, err := objectKey(accountID)
	if err != nil {
		return err
	}

	doc := securityDocument{
		IsSecure:  rec.SecondFactorEnabled,
		Algorithm: rec.Algorithm.Algorithm.String(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = s.clock.Now().UTC()
	}
	if rec.HasSecret() {
		doc.Secret = rec.EncryptedSecret
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.store.PutObject(ctx, s.bucket, key, body, storage.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{"account-id": accountID},
	})
	return err
}

func (s *Document) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("security.outbound.document").Start(ctx, name)
}

func (s *Document) endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
