package handler

import (
	"context"
	"io"
	"mime/multipart"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/repository"
)

// The interfaces below are the handler-facing view of the data layer.
// The concrete repository types satisfy them; tests swap in fakes.

type GuardianStore interface {
	Create(ctx context.Context, name, email, passwordHash, contact, address string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Guardian, error)
	GetByID(ctx context.Context, id uint64) (model.Guardian, error)
	SetPassword(ctx context.Context, id uint64, passwordHash string) error
}

type NinongStore interface {
	Register(ctx context.Context, name, email, passwordHash, codeHash string, codeExpiresAt time.Time, mintToken func(id uint64) (string, error)) (model.Ninong, error)
	GetByEmail(ctx context.Context, email string) (model.Ninong, error)
	GetByID(ctx context.Context, id uint64) (model.Ninong, error)
	StoreVerificationCode(ctx context.Context, id uint64, codeHash string, expiresAt time.Time) error
	VerifyCode(ctx context.Context, id uint64, code string, match func(hash, code string) bool) error
}

type AdminStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.Admin, error)
	GetByID(ctx context.Context, id uint64) (model.Admin, error)
}

type TokenStore interface {
	Store(ctx context.Context, tokenHash, principalType string, principalID uint64) error
	Delete(ctx context.Context, tokenHash string) error
}

type InviteStore interface {
	Create(ctx context.Context, ninongID uint64, usageLimit *uint32, expiresAt *time.Time) (model.Invite, error)
	ListByNinong(ctx context.Context, ninongID uint64) ([]model.Invite, error)
}

type RegistrationStore interface {
	GetByID(ctx context.Context, id uint64) (model.Registration, error)
	GetByReference(ctx context.Context, reference string) (model.Registration, string, error)
	ListAll(ctx context.Context) ([]repository.Detail, error)
	ListByGuardian(ctx context.Context, guardianID uint64) ([]model.Registration, error)
	ListByNinong(ctx context.Context, ninongID uint64) ([]repository.Detail, error)
	UpdateStatus(ctx context.Context, id uint64, status string, rejectionReason *string) error
}

// Submitter runs the transactional registration intake.
type Submitter interface {
	Submit(ctx context.Context, p repository.SubmitParams) (model.Registration, error)
}

// FileStore persists and serves uploaded registration files.
type FileStore interface {
	Save(bucket string, fh *multipart.FileHeader) (string, error)
	Open(rel string) (io.ReadCloser, error)
	Remove(rel string) error
}

// Dispatcher hands notification events to the broker.  Callers treat
// publishing as fire-and-forget: a broker outage never fails the
// request that triggered the event.
type Dispatcher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// CaptchaVerifier checks a client captcha response.
type CaptchaVerifier interface {
	Enabled() bool
	Verify(ctx context.Context, token, remoteIP string) error
}
