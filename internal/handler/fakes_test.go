package handler

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/repository"
)

// In-memory fakes for the handler-facing store interfaces.

type fakeTokenStore struct {
	stored   []model.Token
	deleted  []string
	storeErr error
}

func (f *fakeTokenStore) Store(_ context.Context, hash, principalType string, principalID uint64) error {
	if f.storeErr != nil {
		return f.storeErr
	}
	f.stored = append(f.stored, model.Token{TokenHash: hash, PrincipalType: principalType, PrincipalID: principalID})
	return nil
}

func (f *fakeTokenStore) Delete(_ context.Context, hash string) error {
	f.deleted = append(f.deleted, hash)
	return nil
}

type fakeGuardianStore struct {
	nextID    uint64
	guardians map[uint64]model.Guardian
	createErr error
}

func newFakeGuardianStore() *fakeGuardianStore {
	return &fakeGuardianStore{guardians: map[uint64]model.Guardian{}}
}

func (f *fakeGuardianStore) add(g model.Guardian) model.Guardian {
	if g.ID == 0 {
		f.nextID++
		g.ID = f.nextID
	}
	f.guardians[g.ID] = g
	return g
}

func (f *fakeGuardianStore) Create(_ context.Context, name, email, passwordHash, contact, address string) (uint64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	g := f.add(model.Guardian{
		Name:          name,
		Email:         strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:  &passwordHash,
		ContactNumber: contact,
		Address:       address,
		CreatedAt:     time.Now(),
	})
	return g.ID, nil
}

func (f *fakeGuardianStore) GetByEmail(_ context.Context, email string) (model.Guardian, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, g := range f.guardians {
		if g.Email == email {
			return g, nil
		}
	}
	return model.Guardian{}, repository.ErrNotFound
}

func (f *fakeGuardianStore) GetByID(_ context.Context, id uint64) (model.Guardian, error) {
	g, ok := f.guardians[id]
	if !ok {
		return model.Guardian{}, repository.ErrNotFound
	}
	return g, nil
}

func (f *fakeGuardianStore) SetPassword(_ context.Context, id uint64, passwordHash string) error {
	g, ok := f.guardians[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.PasswordHash = &passwordHash
	f.guardians[id] = g
	return nil
}

type fakeNinongStore struct {
	nextID      uint64
	ninongs     map[uint64]model.Ninong
	registerErr error
	verified    []uint64
	codesStored int
}

func newFakeNinongStore() *fakeNinongStore {
	return &fakeNinongStore{ninongs: map[uint64]model.Ninong{}}
}

func (f *fakeNinongStore) add(n model.Ninong) model.Ninong {
	if n.ID == 0 {
		f.nextID++
		n.ID = f.nextID
	}
	f.ninongs[n.ID] = n
	return n
}

func (f *fakeNinongStore) Register(_ context.Context, name, email, passwordHash, codeHash string, codeExpiresAt time.Time, mintToken func(id uint64) (string, error)) (model.Ninong, error) {
	if f.registerErr != nil {
		return model.Ninong{}, f.registerErr
	}
	n := f.add(model.Ninong{
		Name:                      name,
		Email:                     strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:              passwordHash,
		VerificationCodeHash:      &codeHash,
		VerificationCodeExpiresAt: &codeExpiresAt,
		CreatedAt:                 time.Now(),
	})
	if _, err := mintToken(n.ID); err != nil {
		return model.Ninong{}, err
	}
	return n, nil
}

func (f *fakeNinongStore) GetByEmail(_ context.Context, email string) (model.Ninong, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, n := range f.ninongs {
		if n.Email == email {
			return n, nil
		}
	}
	return model.Ninong{}, repository.ErrNotFound
}

func (f *fakeNinongStore) GetByID(_ context.Context, id uint64) (model.Ninong, error) {
	n, ok := f.ninongs[id]
	if !ok {
		return model.Ninong{}, repository.ErrNotFound
	}
	return n, nil
}

func (f *fakeNinongStore) StoreVerificationCode(_ context.Context, id uint64, codeHash string, expiresAt time.Time) error {
	n := f.ninongs[id]
	n.VerificationCodeHash = &codeHash
	n.VerificationCodeExpiresAt = &expiresAt
	f.ninongs[id] = n
	f.codesStored++
	return nil
}

func (f *fakeNinongStore) VerifyCode(_ context.Context, id uint64, code string, match func(hash, code string) bool) error {
	n, ok := f.ninongs[id]
	if !ok {
		return repository.ErrNotFound
	}
	if n.EmailVerifiedAt != nil {
		return repository.ErrAlreadyVerified
	}
	if n.CodeExpired(time.Now().UTC()) {
		return repository.ErrCodeExpired
	}
	if !match(*n.VerificationCodeHash, code) {
		return repository.ErrCodeInvalid
	}
	now := time.Now().UTC()
	n.EmailVerifiedAt = &now
	n.VerificationCodeHash = nil
	n.VerificationCodeExpiresAt = nil
	f.ninongs[id] = n
	f.verified = append(f.verified, id)
	return nil
}

type fakeAdminStore struct {
	admins map[uint64]model.Admin
}

func (f *fakeAdminStore) Create(_ context.Context, name, email, passwordHash string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range f.admins {
		if strings.ToLower(a.Email) == email {
			return 0, repository.ErrEmailExists
		}
	}
	if f.admins == nil {
		f.admins = map[uint64]model.Admin{}
	}
	id := uint64(len(f.admins) + 1)
	f.admins[id] = model.Admin{ID: id, Name: name, Email: email, PasswordHash: passwordHash}
	return id, nil
}

func (f *fakeAdminStore) GetByEmail(_ context.Context, email string) (model.Admin, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, a := range f.admins {
		if strings.ToLower(a.Email) == email {
			return a, nil
		}
	}
	return model.Admin{}, repository.ErrNotFound
}

func (f *fakeAdminStore) GetByID(_ context.Context, id uint64) (model.Admin, error) {
	a, ok := f.admins[id]
	if !ok {
		return model.Admin{}, repository.ErrNotFound
	}
	return a, nil
}

type fakeInviteStore struct {
	nextID    uint64
	created   []model.Invite
	createErr error
}

func (f *fakeInviteStore) Create(_ context.Context, ninongID uint64, usageLimit *uint32, expiresAt *time.Time) (model.Invite, error) {
	if f.createErr != nil {
		return model.Invite{}, f.createErr
	}
	f.nextID++
	inv := model.Invite{
		ID:         f.nextID,
		NinongID:   ninongID,
		Code:       fmt.Sprintf("CODE%04d", f.nextID),
		UsageLimit: usageLimit,
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
	}
	f.created = append(f.created, inv)
	return inv, nil
}

func (f *fakeInviteStore) ListByNinong(_ context.Context, ninongID uint64) ([]model.Invite, error) {
	out := []model.Invite{}
	for _, inv := range f.created {
		if inv.NinongID == ninongID {
			out = append(out, inv)
		}
	}
	return out, nil
}

type refEntry struct {
	reg   model.Registration
	email string
}

type fakeRegistrationStore struct {
	regs    map[uint64]model.Registration
	byRef   map[string]refEntry
	details []repository.Detail
	updated []string
}

func newFakeRegistrationStore() *fakeRegistrationStore {
	return &fakeRegistrationStore{
		regs:  map[uint64]model.Registration{},
		byRef: map[string]refEntry{},
	}
}

func (f *fakeRegistrationStore) add(reg model.Registration, guardianEmail string) {
	f.regs[reg.ID] = reg
	f.byRef[reg.ReferenceNumber] = refEntry{reg: reg, email: guardianEmail}
}

func (f *fakeRegistrationStore) GetByID(_ context.Context, id uint64) (model.Registration, error) {
	reg, ok := f.regs[id]
	if !ok {
		return model.Registration{}, repository.ErrNotFound
	}
	return reg, nil
}

func (f *fakeRegistrationStore) GetByReference(_ context.Context, reference string) (model.Registration, string, error) {
	e, ok := f.byRef[reference]
	if !ok {
		return model.Registration{}, "", repository.ErrNotFound
	}
	return e.reg, e.email, nil
}

func (f *fakeRegistrationStore) ListAll(_ context.Context) ([]repository.Detail, error) {
	return f.details, nil
}

func (f *fakeRegistrationStore) ListByGuardian(_ context.Context, guardianID uint64) ([]model.Registration, error) {
	out := []model.Registration{}
	for _, r := range f.regs {
		if r.GuardianID == guardianID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRegistrationStore) ListByNinong(_ context.Context, ninongID uint64) ([]repository.Detail, error) {
	out := []repository.Detail{}
	for _, d := range f.details {
		if d.NinongID != nil && *d.NinongID == ninongID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeRegistrationStore) UpdateStatus(_ context.Context, id uint64, status string, rejectionReason *string) error {
	reg, ok := f.regs[id]
	if !ok {
		return repository.ErrNotFound
	}
	reg.Status = status
	if rejectionReason != nil {
		reg.RejectionReason = rejectionReason
	}
	f.regs[id] = reg
	f.updated = append(f.updated, fmt.Sprintf("%d:%s", id, status))
	return nil
}

type fakeSubmitter struct {
	lastParams repository.SubmitParams
	result     model.Registration
	err        error
}

func (f *fakeSubmitter) Submit(_ context.Context, p repository.SubmitParams) (model.Registration, error) {
	f.lastParams = p
	if f.err != nil {
		return model.Registration{}, f.err
	}
	out := f.result
	out.LivePhotoPath = p.LivePhotoPath
	out.VideoPath = p.VideoPath
	out.QRCodePath = p.QRCodePath
	return out, nil
}

type fakeFileStore struct {
	nextID  int
	saved   []string
	removed []string
	saveErr error
	content string
}

func (f *fakeFileStore) Save(bucket string, fh *multipart.FileHeader) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.nextID++
	rel := fmt.Sprintf("%s/file-%d.jpg", bucket, f.nextID)
	f.saved = append(f.saved, rel)
	return rel, nil
}

func (f *fakeFileStore) Open(rel string) (io.ReadCloser, error) {
	for _, s := range f.saved {
		if s == rel {
			return io.NopCloser(strings.NewReader(f.content)), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeFileStore) Remove(rel string) error {
	f.removed = append(f.removed, rel)
	return nil
}

// fakeDispatcher records published events.  Handlers publish from a
// goroutine, so recording is mutex-guarded and a buffered channel
// lets tests wait for a dispatch without sleeping.
type fakeDispatcher struct {
	mu     sync.Mutex
	events []string
	ch     chan string
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{ch: make(chan string, 8)}
}

func (f *fakeDispatcher) Publish(_ context.Context, eventType string, _ interface{}) error {
	f.mu.Lock()
	f.events = append(f.events, eventType)
	f.mu.Unlock()
	select {
	case f.ch <- eventType:
	default:
	}
	return nil
}

func (f *fakeDispatcher) wait(timeout time.Duration) (string, bool) {
	select {
	case t := <-f.ch:
		return t, true
	case <-time.After(timeout):
		return "", false
	}
}

type fakeCaptcha struct {
	enabled bool
	err     error
}

func (f *fakeCaptcha) Enabled() bool { return f.enabled }

func (f *fakeCaptcha) Verify(_ context.Context, _, _ string) error { return f.err }
