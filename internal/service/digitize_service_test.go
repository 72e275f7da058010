package service

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ormd/internal/config"
	"ormd/internal/domain"
	"ormd/internal/extract"
	"ormd/internal/parser"
	"ormd/internal/port"
	"ormd/internal/preprocess"
)

type fakeDocRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*domain.ScanDocument
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: map[uuid.UUID]*domain.ScanDocument{}}
}

func (r *fakeDocRepo) Create(_ context.Context, doc *domain.ScanDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeDocRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.ScanDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeDocRepo) List(_ context.Context, status *domain.ExtractionStatus, _, _ int) ([]domain.ScanDocument, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScanDocument
	for _, d := range r.docs {
		if status == nil || d.ExtractionStatus == *status {
			out = append(out, *d)
		}
	}
	return out, len(out), nil
}

func (r *fakeDocRepo) ListByCitizen(_ context.Context, citizenID uuid.UUID) ([]domain.ScanDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScanDocument
	for _, d := range r.docs {
		if d.CitizenID != nil && *d.CitizenID == citizenID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (r *fakeDocRepo) UpdateExtraction(_ context.Context, doc *domain.ScanDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.ExtractionStatus = doc.ExtractionStatus
	cur.ExtractionError = doc.ExtractionError
	cur.ExtractedData = doc.ExtractedData
	cur.ModelUsed = doc.ModelUsed
	cur.ExtractedAt = doc.ExtractedAt
	return nil
}

func (r *fakeDocRepo) UpdateReview(_ context.Context, doc *domain.ScanDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.docs[doc.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.CitizenID = doc.CitizenID
	cur.CorrectedData = doc.CorrectedData
	cur.ReviewStatus = doc.ReviewStatus
	cur.ReviewedAt = doc.ReviewedAt
	cur.ReviewerNotes = doc.ReviewerNotes
	return nil
}

func (r *fakeDocRepo) ResetToPending(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.docs[id]
	if !ok {
		return domain.ErrNotFound
	}
	cur.ExtractionStatus = domain.ExtractionStatusPending
	cur.ExtractionError = nil
	cur.ExtractedData = nil
	cur.ExtractedAt = nil
	return nil
}

func (r *fakeDocRepo) ClaimPending(_ context.Context, limit int) ([]domain.ScanDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ScanDocument
	for _, d := range r.docs {
		if len(out) >= limit {
			break
		}
		if d.ExtractionStatus == domain.ExtractionStatusPending {
			d.ExtractionStatus = domain.ExtractionStatusProcessing
			out = append(out, *d)
		}
	}
	return out, nil
}

type fakeCitizenRepo struct {
	mu       sync.Mutex
	citizens map[uuid.UUID]*domain.Citizen
}

func newFakeCitizenRepo() *fakeCitizenRepo {
	return &fakeCitizenRepo{citizens: map[uuid.UUID]*domain.Citizen{}}
}

func (r *fakeCitizenRepo) Create(_ context.Context, c *domain.Citizen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.citizens[c.ID] = &cp
	return nil
}

func (r *fakeCitizenRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Citizen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.citizens[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCitizenRepo) FindByIdentity(_ context.Context, dni, lm *string) (*domain.Citizen, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.citizens {
		if dni != nil && c.DNI != nil && *c.DNI == *dni {
			cp := *c
			return &cp, nil
		}
		if lm != nil && c.LM != nil && *c.LM == *lm {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeCitizenRepo) List(_ context.Context, _, _ int) ([]domain.Citizen, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Citizen
	for _, c := range r.citizens {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (r *fakeCitizenRepo) Search(_ context.Context, _ string, _, _ int) ([]domain.Citizen, int, error) {
	return r.List(nil, 0, 0)
}

func (r *fakeCitizenRepo) Update(_ context.Context, c *domain.Citizen) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.citizens[c.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *c
	r.citizens[c.ID] = &cp
	return nil
}

func (r *fakeCitizenRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.citizens, id)
	return nil
}

type fakeServiceRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]*domain.ServiceRecord
}

func newFakeServiceRepo() *fakeServiceRepo {
	return &fakeServiceRepo{records: map[uuid.UUID]*domain.ServiceRecord{}}
}

func (r *fakeServiceRepo) Upsert(_ context.Context, rec *domain.ServiceRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.CitizenID] = &cp
	return nil
}

func (r *fakeServiceRepo) GetByCitizen(_ context.Context, citizenID uuid.UUID) (*domain.ServiceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[citizenID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeServiceRepo) DeleteByCitizen(_ context.Context, citizenID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, citizenID)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) Upload(_ context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	data := new(bytes.Buffer)
	if _, err := data.ReadFrom(input.Body); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[input.Bucket+"/"+input.Key] = data.Bytes()
	return &port.UploadOutput{Location: input.Key}, nil
}

func (s *fakeStorage) Download(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (s *fakeStorage) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, bucket+"/"+key)
	return nil
}

func (s *fakeStorage) GetPresignedURL(_ context.Context, bucket, key string, _ int64) (string, error) {
	return "https://signed.example/" + bucket + "/" + key, nil
}

type stubParser struct {
	rawText string
	err     error
}

func (p *stubParser) Parse(_ context.Context, _ port.ParseInput) (*port.ParseOutput, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &port.ParseOutput{RawText: p.rawText, ModelUsed: "stub-model"}, nil
}

type digitizeFixture struct {
	svc      DigitizeService
	docs     *fakeDocRepo
	citizens *fakeCitizenRepo
	services *fakeServiceRepo
	storage  *fakeStorage
}

func newDigitizeFixture(t *testing.T, p port.DocumentParser) *digitizeFixture {
	t.Helper()
	docs := newFakeDocRepo()
	citizens := newFakeCitizenRepo()
	services := newFakeServiceRepo()
	storage := newFakeStorage()
	extractor := extract.New(preprocess.New(t.TempDir()), p)
	cfg := &config.S3Config{Bucket: "test-bucket", MaxFileSizeMB: 50, PresignExpiry: 60}
	return &digitizeFixture{
		svc:      NewDigitizeService(docs, citizens, services, storage, extractor, cfg),
		docs:     docs,
		citizens: citizens,
		services: services,
		storage:  storage,
	}
}

func pendingPDFDoc(t *testing.T, f *digitizeFixture) *domain.ScanDocument {
	t.Helper()
	doc := &domain.ScanDocument{
		ID:               uuid.New(),
		FileName:         "x.pdf",
		OriginalName:     "hoja.pdf",
		FileType:         domain.FileTypePDF,
		S3Bucket:         "test-bucket",
		S3Key:            "scans/x/hoja.pdf",
		ContentType:      "application/pdf",
		ExtractionStatus: domain.ExtractionStatusPending,
		ReviewStatus:     domain.ReviewStatusPending,
	}
	require.NoError(t, f.docs.Create(context.Background(), doc))
	f.storage.objects["test-bucket/scans/x/hoja.pdf"] = []byte("%PDF-1.4 test")
	return doc
}

func TestProcessDocumentStoresRecord(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{"dni":"45678912","presto_servicio":"SI"}`})
	doc := pendingPDFDoc(t, f)

	f.svc.ProcessDocument(context.Background(), doc)

	stored, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionStatusCompleted, stored.ExtractionStatus)
	assert.Nil(t, stored.ExtractionError)
	assert.Equal(t, "stub-model", stored.ModelUsed)
	assert.NotNil(t, stored.ExtractedAt)
	assert.Contains(t, string(stored.ExtractedData), `"dni":"00045678912"`)
}

func TestProcessDocumentStoresTaggedFailure(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{err: parser.NewPermissionError()})
	doc := pendingPDFDoc(t, f)

	f.svc.ProcessDocument(context.Background(), doc)

	stored, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionStatusFailed, stored.ExtractionStatus)
	require.NotNil(t, stored.ExtractionError)
	assert.Contains(t, *stored.ExtractionError, `"error":"permisos"`)
}

func TestProcessDocumentMissingObjectFails(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{}`})
	doc := pendingPDFDoc(t, f)
	delete(f.storage.objects, "test-bucket/scans/x/hoja.pdf")

	f.svc.ProcessDocument(context.Background(), doc)

	stored, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionStatusFailed, stored.ExtractionStatus)
}

func TestRetryExtraction(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{}`})
	doc := pendingPDFDoc(t, f)
	doc.ExtractionStatus = domain.ExtractionStatusFailed
	msg := "boom"
	doc.ExtractionError = &msg
	require.NoError(t, f.docs.UpdateExtraction(context.Background(), doc))

	require.NoError(t, f.svc.RetryExtraction(context.Background(), doc.ID))

	stored, err := f.docs.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExtractionStatusPending, stored.ExtractionStatus)
	assert.Nil(t, stored.ExtractionError)
}

func TestRetryExtractionWhileProcessing(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{}`})
	doc := pendingPDFDoc(t, f)
	_, err := f.docs.ClaimPending(context.Background(), 1)
	require.NoError(t, err)

	err = f.svc.RetryExtraction(context.Background(), doc.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyProcessing)
}

func TestSaveReviewCreatesCitizenAndService(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{"dni":"45678912"}`})
	doc := pendingPDFDoc(t, f)
	f.svc.ProcessDocument(context.Background(), doc)

	saved, err := f.svc.SaveReview(context.Background(), ReviewInput{
		DocumentID: doc.ID,
		Fields: map[string]any{
			"dni":             "45678912",
			"apellidos":       "garcia torres",
			"nombres":         "juan",
			"presto_servicio": "si",
			"grado":           "SOLDADO",
		},
		Notes: "corregido folio",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.CitizenID)
	assert.Equal(t, domain.ReviewStatusValidated, saved.ReviewStatus)
	assert.Equal(t, "corregido folio", saved.ReviewerNotes)
	assert.Contains(t, string(saved.CorrectedData), `"apellidos":"GARCIA TORRES"`)

	citizen, err := f.citizens.GetByID(context.Background(), *saved.CitizenID)
	require.NoError(t, err)
	assert.Equal(t, "00045678912", *citizen.DNI)

	rec, err := f.services.GetByCitizen(context.Background(), citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, "SI", rec.PrestoServicio)
	assert.Equal(t, "SOLDADO", *rec.Grado)
}

func TestSaveReviewReusesExistingCitizen(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{"dni":"45678912"}`})

	dni := "00045678912"
	existing := &domain.Citizen{ID: uuid.New(), DNI: &dni}
	require.NoError(t, f.citizens.Create(context.Background(), existing))

	doc := pendingPDFDoc(t, f)
	f.svc.ProcessDocument(context.Background(), doc)

	saved, err := f.svc.SaveReview(context.Background(), ReviewInput{
		DocumentID: doc.ID,
		Fields:     map[string]any{"dni": "45678912", "nombres": "juan"},
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, *saved.CitizenID)
	assert.Len(t, f.citizens.citizens, 1)
}

func TestSaveReviewRequiresIdentity(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{"dni":"45678912"}`})
	doc := pendingPDFDoc(t, f)
	f.svc.ProcessDocument(context.Background(), doc)

	_, err := f.svc.SaveReview(context.Background(), ReviewInput{
		DocumentID: doc.ID,
		Fields:     map[string]any{"nombres": "juan"},
	})
	assert.ErrorIs(t, err, domain.ErrMissingIdentity)
}

func TestSaveReviewRequiresExtraction(t *testing.T) {
	f := newDigitizeFixture(t, &stubParser{rawText: `{}`})
	doc := pendingPDFDoc(t, f)

	_, err := f.svc.SaveReview(context.Background(), ReviewInput{
		DocumentID: doc.ID,
		Fields:     map[string]any{"dni": "45678912"},
	})
	assert.ErrorIs(t, err, domain.ErrNotExtracted)
}
