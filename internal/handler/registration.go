package handler

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/giosicat/inaanak-portal/internal/authz"
	"github.com/giosicat/inaanak-portal/internal/middleware"
	"github.com/giosicat/inaanak-portal/internal/model"
	"github.com/giosicat/inaanak-portal/internal/queue"
	"github.com/giosicat/inaanak-portal/internal/repository"
	"github.com/giosicat/inaanak-portal/internal/storage"
)

// Upload limits.  Images cover the live photo and QR code slots.
const (
	maxImageBytes = 10 << 20
	maxVideoBytes = 100 << 20
)

// Accepted sniffed content types.  These are the values
// http.DetectContentType can actually produce for each family.
var (
	imageMIMEs = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}
	videoMIMEs = map[string]bool{
		"video/mp4":  true,
		"video/webm": true,
		"video/avi":  true,
	}
)

// RegistrationHandler serves registration intake, listing, viewing,
// file download and the admin status workflow.
type RegistrationHandler struct {
	Submitter     Submitter
	Registrations RegistrationStore
	Guardians     GuardianStore
	Files         FileStore
	Events        Dispatcher
}

func NewRegistrationHandler(s Submitter, r RegistrationStore, g GuardianStore, f FileStore, d Dispatcher) *RegistrationHandler {
	return &RegistrationHandler{Submitter: s, Registrations: r, Guardians: g, Files: f, Events: d}
}

// ----- DTOs -----

type registrationPart struct {
	ID               uint64     `json:"id"`
	ReferenceNumber  string     `json:"reference_number"`
	GuardianID       uint64     `json:"guardian_id"`
	NinongID         *uint64    `json:"ninong_id"`
	InaanakName      string     `json:"inaanak_name"`
	InaanakBirthdate string     `json:"inaanak_birthdate"`
	Relationship     string     `json:"relationship"`
	LivePhotoPath    *string    `json:"live_photo_path"`
	VideoPath        *string    `json:"video_path"`
	QRCodePath       *string    `json:"qr_code_path"`
	Status           string     `json:"status"`
	RejectionReason  *string    `json:"rejection_reason"`
	CreatedAt        time.Time  `json:"created_at"`
}

type registrationDetailPart struct {
	registrationPart
	Guardian struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"guardian"`
}

func registrationJSON(r model.Registration) registrationPart {
	return registrationPart{
		ID:               r.ID,
		ReferenceNumber:  r.ReferenceNumber,
		GuardianID:       r.GuardianID,
		NinongID:         r.NinongID,
		InaanakName:      r.InaanakName,
		InaanakBirthdate: r.InaanakBirthdate.Format("2006-01-02"),
		Relationship:     r.Relationship,
		LivePhotoPath:    r.LivePhotoPath,
		VideoPath:        r.VideoPath,
		QRCodePath:       r.QRCodePath,
		Status:           r.Status,
		RejectionReason:  r.RejectionReason,
		CreatedAt:        r.CreatedAt,
	}
}

func registrationDetailJSON(d repository.Detail) registrationDetailPart {
	out := registrationDetailPart{registrationPart: registrationJSON(d.Registration)}
	out.Guardian.Name = d.GuardianName
	out.Guardian.Email = d.GuardianEmail
	return out
}

// Submit accepts a public multipart registration: guardian contact
// fields, child details, an invite code and up to three files.  Files
// are written to storage first; if the database transaction then
// fails they are removed again so nothing orphaned stays on disk.
func (h *RegistrationHandler) Submit(c echo.Context) error {
	p := repository.SubmitParams{
		GuardianName:    strings.TrimSpace(c.FormValue("guardian_name")),
		GuardianEmail:   strings.TrimSpace(c.FormValue("guardian_email")),
		GuardianContact: strings.TrimSpace(c.FormValue("guardian_contact")),
		GuardianAddress: strings.TrimSpace(c.FormValue("guardian_address")),
		InaanakName:     strings.TrimSpace(c.FormValue("inaanak_name")),
		Relationship:    strings.TrimSpace(c.FormValue("relationship")),
		InviteCode:      strings.ToUpper(strings.TrimSpace(c.FormValue("ninong_code"))),
	}

	errs := map[string][]string{}
	require := func(field, value string) {
		if value == "" {
			errs[field] = append(errs[field], fmt.Sprintf("The %s field is required.", strings.ReplaceAll(field, "_", " ")))
		}
	}
	require("guardian_name", p.GuardianName)
	require("guardian_email", p.GuardianEmail)
	require("guardian_contact", p.GuardianContact)
	require("guardian_address", p.GuardianAddress)
	require("inaanak_name", p.InaanakName)
	require("relationship", p.Relationship)
	require("ninong_code", p.InviteCode)

	birthRaw := strings.TrimSpace(c.FormValue("inaanak_birthdate"))
	if birthRaw == "" {
		errs["inaanak_birthdate"] = append(errs["inaanak_birthdate"], "The inaanak birthdate field is required.")
	} else if t, err := time.Parse("2006-01-02", birthRaw); err != nil {
		errs["inaanak_birthdate"] = append(errs["inaanak_birthdate"], "The inaanak birthdate field must be a valid date.")
	} else if !t.Before(time.Now()) {
		errs["inaanak_birthdate"] = append(errs["inaanak_birthdate"], "The inaanak birthdate must be a date in the past.")
	} else {
		p.InaanakBirthdate = t
	}

	photo, _ := c.FormFile("live_photo")
	if photo != nil {
		if msg := checkUpload(photo, imageMIMEs, maxImageBytes); msg != "" {
			errs["live_photo"] = append(errs["live_photo"], msg)
		}
	}
	video, _ := c.FormFile("video")
	if video != nil {
		if msg := checkUpload(video, videoMIMEs, maxVideoBytes); msg != "" {
			errs["video"] = append(errs["video"], msg)
		}
	}
	qr, _ := c.FormFile("qr_code")
	if qr != nil {
		if msg := checkUpload(qr, imageMIMEs, maxImageBytes); msg != "" {
			errs["qr_code"] = append(errs["qr_code"], msg)
		}
	}
	if len(errs) > 0 {
		return respondInvalid(c, errs)
	}

	// Persist files before the transaction; roll them back by hand if
	// the insert fails.
	var saved []string
	cleanup := func() {
		for _, rel := range saved {
			_ = h.Files.Remove(rel)
		}
	}
	save := func(bucket string, fh *multipart.FileHeader) (*string, error) {
		rel, err := h.Files.Save(bucket, fh)
		if err != nil {
			return nil, err
		}
		saved = append(saved, rel)
		return &rel, nil
	}

	var err error
	if photo != nil {
		if p.LivePhotoPath, err = save(storage.BucketPhotos, photo); err != nil {
			cleanup()
			return respondErr(c, http.StatusInternalServerError, "Could not store uploaded files")
		}
	}
	if video != nil {
		if p.VideoPath, err = save(storage.BucketVideos, video); err != nil {
			cleanup()
			return respondErr(c, http.StatusInternalServerError, "Could not store uploaded files")
		}
	}
	if qr != nil {
		if p.QRCodePath, err = save(storage.BucketQRCodes, qr); err != nil {
			cleanup()
			return respondErr(c, http.StatusInternalServerError, "Could not store uploaded files")
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	reg, err := h.Submitter.Submit(ctx, p)
	if err != nil {
		cleanup()
		switch err {
		case repository.ErrInviteNotFound:
			return respondInvalid(c, map[string][]string{
				"ninong_code": {"Invalid Ninong code."},
			})
		case repository.ErrInviteExhausted:
			return respondInvalid(c, map[string][]string{
				"ninong_code": {"Ninong code is no longer valid."},
			})
		}
		return respondErr(c, http.StatusInternalServerError, "Registration failed")
	}

	go h.dispatchSubmitted(reg, p.GuardianName, p.GuardianEmail)

	return respondOK(c, http.StatusCreated, "Registration submitted successfully.", echo.Map{
		"reference_number": reg.ReferenceNumber,
		"status":           reg.Status,
		"registration":     registrationJSON(reg),
	})
}

// My returns the authenticated guardian's own registrations.
func (h *RegistrationHandler) My(c echo.Context) error {
	p, ok := middleware.Principal(c)
	if !ok {
		return respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	regs, err := h.Registrations.ListByGuardian(ctx, p.ID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not list registrations")
	}
	out := make([]registrationPart, 0, len(regs))
	for _, r := range regs {
		out = append(out, registrationJSON(r))
	}
	return respondOK(c, http.StatusOK, "OK", out)
}

// Show returns a single registration to any principal the access
// rule admits: an admin, the owning guardian or the associated
// sponsor.
func (h *RegistrationHandler) Show(c echo.Context) error {
	reg, errResp := h.authorize(c)
	if errResp != nil {
		return errResp
	}
	return respondOK(c, http.StatusOK, "OK", registrationJSON(reg))
}

// Download streams one of the registration's stored files to an
// authorized principal.  The attachment is renamed to
// <type>-<reference><ext> so the random storage name never leaks.
func (h *RegistrationHandler) Download(c echo.Context) error {
	reg, errResp := h.authorize(c)
	if errResp != nil {
		return errResp
	}

	fileType := c.Param("type")
	rel, ok := reg.FilePath(fileType)
	if !ok || rel == nil {
		return respondErr(c, http.StatusNotFound, "File not found")
	}
	f, err := h.Files.Open(*rel)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "File not found")
	}
	defer f.Close()

	ext := filepath.Ext(*rel)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	name := fmt.Sprintf("%s-%s%s", fileType, reg.ReferenceNumber, ext)
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Stream(http.StatusOK, contentType, f)
}

// AdminIndex returns every registration with guardian details.
func (h *RegistrationHandler) AdminIndex(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	details, err := h.Registrations.ListAll(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not list registrations")
	}
	out := make([]registrationDetailPart, 0, len(details))
	for _, d := range details {
		out = append(out, registrationDetailJSON(d))
	}
	return respondOK(c, http.StatusOK, "OK", out)
}

type updateStatusReq struct {
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejection_reason"`
}

// UpdateStatus moves a registration to any of the four states.  A
// rejection reason is stored when supplied; the guardian is notified
// of every change.
func (h *RegistrationHandler) UpdateStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respondErr(c, http.StatusNotFound, "Registration not found")
	}
	var req updateStatusReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "Invalid request body")
	}
	if !model.ValidStatus(req.Status) {
		return respondInvalid(c, map[string][]string{
			"status": {"The selected status is invalid."},
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Registrations.UpdateStatus(ctx, id, req.Status, req.RejectionReason); err != nil {
		if err == repository.ErrNotFound {
			return respondErr(c, http.StatusNotFound, "Registration not found")
		}
		return respondErr(c, http.StatusInternalServerError, "Could not update status")
	}
	reg, err := h.Registrations.GetByID(ctx, id)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "Could not update status")
	}

	if g, err := h.Guardians.GetByID(ctx, reg.GuardianID); err == nil {
		go h.dispatchStatus(reg, g)
	}

	return respondOK(c, http.StatusOK, "Status updated successfully.", registrationJSON(reg))
}

// authorize resolves the :id parameter and applies the access rule.
// Missing rows and malformed ids both yield the same 404 body.
func (h *RegistrationHandler) authorize(c echo.Context) (model.Registration, error) {
	p, ok := middleware.Principal(c)
	if !ok {
		return model.Registration{}, respondErr(c, http.StatusUnauthorized, "Unauthenticated")
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return model.Registration{}, respondErr(c, http.StatusNotFound, "Registration not found")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	reg, err := h.Registrations.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return model.Registration{}, respondErr(c, http.StatusNotFound, "Registration not found")
		}
		return model.Registration{}, respondErr(c, http.StatusInternalServerError, "Could not load registration")
	}
	if !authz.CanAccess(p, &reg) {
		return model.Registration{}, respondErr(c, http.StatusForbidden, "Forbidden")
	}
	return reg, nil
}

// checkUpload sniffs the first bytes of an upload and applies the
// size cap.  The client-declared Content-Type header is ignored.
func checkUpload(fh *multipart.FileHeader, allowed map[string]bool, maxBytes int64) string {
	if fh.Size > maxBytes {
		return fmt.Sprintf("The file may not be greater than %d kilobytes.", maxBytes/1024)
	}
	f, err := fh.Open()
	if err != nil {
		return "The file could not be read."
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return "The file could not be read."
	}
	if !allowed[sniffMIME(buf[:n])] {
		return "The file type is not allowed."
	}
	return ""
}

func sniffMIME(head []byte) string {
	t := http.DetectContentType(head)
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = t[:i]
	}
	return strings.TrimSpace(t)
}

func (h *RegistrationHandler) dispatchSubmitted(reg model.Registration, guardianName, guardianEmail string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = h.Events.Publish(ctx, queue.TypeRegistrationSubmitted, queue.RegistrationSubmittedEvent{
		RegistrationID:  reg.ID,
		ReferenceNumber: reg.ReferenceNumber,
		InaanakName:     reg.InaanakName,
		GuardianName:    guardianName,
		GuardianEmail:   guardianEmail,
		SubmittedAt:     time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *RegistrationHandler) dispatchStatus(reg model.Registration, g model.Guardian) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reason := ""
	if reg.RejectionReason != nil {
		reason = *reg.RejectionReason
	}
	_ = h.Events.Publish(ctx, queue.TypeStatusUpdated, queue.StatusUpdatedEvent{
		RegistrationID:  reg.ID,
		ReferenceNumber: reg.ReferenceNumber,
		GuardianName:    g.Name,
		GuardianEmail:   g.Email,
		Status:          reg.Status,
		RejectionReason: reason,
		UpdatedAt:       time.Now().UTC().Format(time.RFC3339),
	})
}
