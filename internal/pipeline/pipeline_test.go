package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagefeed/internal/models"
)

type sliceRows struct {
	rows []models.Row
	errs []error
	pos  int
}

func (s *sliceRows) Next() (models.Row, error) {
	if s.pos >= len(s.rows) {
		return models.Row{}, io.EOF
	}
	row := s.rows[s.pos]
	var err error
	if s.pos < len(s.errs) {
		err = s.errs[s.pos]
	}
	s.pos++
	return row, err
}

type fakeFetcher struct {
	failURLs map[string]bool
	fetched  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url, dest string) error {
	if f.failURLs[url] {
		return errors.New("connection refused")
	}
	f.fetched = append(f.fetched, url)
	return nil
}

type fakeTranscoder struct {
	failSources map[string]bool
	calls       []string
}

func (t *fakeTranscoder) Transcode(src, dest string, quality int) error {
	if t.failSources[filepath.Base(src)] {
		return errors.New("corrupt image")
	}
	t.calls = append(t.calls, filepath.Base(dest))
	return nil
}

type fakeLedger struct {
	failNames map[string]bool
	saved     []*models.Product
}

func (l *fakeLedger) SaveProduct(_ context.Context, p *models.Product) error {
	if l.failNames[p.Name] {
		return errors.New("storage unavailable")
	}
	l.saved = append(l.saved, p)
	return nil
}

// fakeTracker records completions; when ledger is set it also snapshots
// how many products had been saved at the moment completion fired.
type fakeTracker struct {
	completed           []uuid.UUID
	err                 error
	ledger              *fakeLedger
	savesBeforeComplete int
}

func (t *fakeTracker) CompleteBatch(_ context.Context, id uuid.UUID) error {
	if t.err != nil {
		return t.err
	}
	if t.ledger != nil {
		t.savesBeforeComplete = len(t.ledger.saved)
	}
	t.completed = append(t.completed, id)
	return nil
}

func newTestPipeline(f *fakeFetcher, tc *fakeTranscoder, l *fakeLedger, tr *fakeTracker) *Pipeline {
	return New(f, tc, l, tr, "/tmp/out", 50)
}

func TestRun_AllImagesSucceed(t *testing.T) {
	fetch := &fakeFetcher{}
	trans := &fakeTranscoder{}
	ledger := &fakeLedger{}
	tracker := &fakeTracker{ledger: ledger}
	batchID := uuid.New()

	rows := &sliceRows{rows: []models.Row{
		{ProductName: "Red Shoe", ImageURLs: []string{"http://a/1.jpg", "http://a/2.jpg"}},
	}}

	err := newTestPipeline(fetch, trans, ledger, tracker).Run(context.Background(), rows, batchID)
	require.NoError(t, err)

	require.Len(t, ledger.saved, 1)
	p := ledger.saved[0]
	assert.Equal(t, "Red_Shoe", p.Name)
	assert.Equal(t, batchID, p.BatchID)
	require.Len(t, p.Images, 2)
	assert.Equal(t, "http://a/1.jpg", p.Images[0].OriginalURL)
	assert.Equal(t, "Red_Shoe_image1.jpg", p.Images[0].ImageName)
	assert.Equal(t, filepath.Join("/tmp/out", "Red_Shoe_image1_compressed.jpg"), p.Images[0].CompressedPath)
	assert.Equal(t, "http://a/2.jpg", p.Images[1].OriginalURL)
	assert.Equal(t, "Red_Shoe_image2.jpg", p.Images[1].ImageName)

	require.Len(t, tracker.completed, 1)
	assert.Equal(t, batchID, tracker.completed[0])
}

func TestRun_PartialFailuresKeepSuccessfulSubsetInOrder(t *testing.T) {
	fetch := &fakeFetcher{failURLs: map[string]bool{"http://a/2.jpg": true}}
	trans := &fakeTranscoder{failSources: map[string]bool{"Red_Shoe_image3.jpg": true}}
	ledger := &fakeLedger{}
	tracker := &fakeTracker{}

	rows := &sliceRows{rows: []models.Row{
		{ProductName: "Red Shoe", ImageURLs: []string{
			"http://a/1.jpg", "http://a/2.jpg", "http://a/3.jpg", "http://a/4.jpg",
		}},
	}}

	err := newTestPipeline(fetch, trans, ledger, tracker).Run(context.Background(), rows, uuid.New())
	require.NoError(t, err)

	require.Len(t, ledger.saved, 1)
	images := ledger.saved[0].Images
	require.Len(t, images, 2)
	assert.Equal(t, "http://a/1.jpg", images[0].OriginalURL)
	assert.Equal(t, "http://a/4.jpg", images[1].OriginalURL)
	// Index-derived names stay tied to the original URL positions.
	assert.Equal(t, "Red_Shoe_image4.jpg", images[1].ImageName)
}

func TestRun_AllURLsFailDropsProduct(t *testing.T) {
	fetch := &fakeFetcher{failURLs: map[string]bool{
		"http://a/1.jpg": true,
		"http://a/2.jpg": true,
	}}
	ledger := &fakeLedger{}
	tracker := &fakeTracker{}

	rows := &sliceRows{rows: []models.Row{
		{ProductName: "Ghost", ImageURLs: []string{"http://a/1.jpg", "http://a/2.jpg"}},
	}}

	err := newTestPipeline(fetch, &fakeTranscoder{}, ledger, tracker).Run(context.Background(), rows, uuid.New())
	require.NoError(t, err)

	assert.Empty(t, ledger.saved)
	// Completion fires regardless of how many images failed.
	assert.Len(t, tracker.completed, 1)
}

func TestRun_PersistFailureDoesNotHaltLaterRows(t *testing.T) {
	ledger := &fakeLedger{failNames: map[string]bool{"First": true}}
	tracker := &fakeTracker{}

	rows := &sliceRows{rows: []models.Row{
		{ProductName: "First", ImageURLs: []string{"http://a/1.jpg"}},
		{ProductName: "Second", ImageURLs: []string{"http://a/2.jpg"}},
	}}

	err := newTestPipeline(&fakeFetcher{}, &fakeTranscoder{}, ledger, tracker).Run(context.Background(), rows, uuid.New())
	require.NoError(t, err)

	require.Len(t, ledger.saved, 1)
	assert.Equal(t, "Second", ledger.saved[0].Name)
	assert.Len(t, tracker.completed, 1)
}

func TestRun_CompletionFiresAfterLastRowPersisted(t *testing.T) {
	ledger := &fakeLedger{}
	tracker := &fakeTracker{ledger: ledger}

	rows := &sliceRows{rows: []models.Row{
		{ProductName: "A", ImageURLs: []string{"http://a/1.jpg"}},
		{ProductName: "B", ImageURLs: []string{"http://a/2.jpg"}},
		{ProductName: "C", ImageURLs: []string{"http://a/3.jpg"}},
	}}

	err := newTestPipeline(&fakeFetcher{}, &fakeTranscoder{}, ledger, tracker).Run(context.Background(), rows, uuid.New())
	require.NoError(t, err)

	assert.Equal(t, 3, tracker.savesBeforeComplete)
	assert.Len(t, tracker.completed, 1)
}

func TestRun_UnreadableRowIsSkipped(t *testing.T) {
	ledger := &fakeLedger{}
	tracker := &fakeTracker{}

	rows := &sliceRows{
		rows: []models.Row{
			{},
			{ProductName: "Good", ImageURLs: []string{"http://a/1.jpg"}},
		},
		errs: []error{errors.New("malformed record")},
	}

	err := newTestPipeline(&fakeFetcher{}, &fakeTranscoder{}, ledger, tracker).Run(context.Background(), rows, uuid.New())
	require.NoError(t, err)

	require.Len(t, ledger.saved, 1)
	assert.Equal(t, "Good", ledger.saved[0].Name)
}

func TestRun_EmptyFeedStillCompletes(t *testing.T) {
	tracker := &fakeTracker{}
	batchID := uuid.New()

	err := newTestPipeline(&fakeFetcher{}, &fakeTranscoder{}, &fakeLedger{}, tracker).Run(context.Background(), &sliceRows{}, batchID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{batchID}, tracker.completed)
}

func TestRun_CompleteFailureIsReturned(t *testing.T) {
	tracker := &fakeTracker{err: errors.New("batch not found")}

	err := newTestPipeline(&fakeFetcher{}, &fakeTranscoder{}, &fakeLedger{}, tracker).Run(context.Background(), &sliceRows{}, uuid.New())
	require.Error(t, err)
}

// Persisting the same product name twice appends two records. This is
// the current behavior and a known limitation: there is no uniqueness
// constraint or merge on the ledger.
func TestRun_DuplicateNamesAppendTwoRecords(t *testing.T) {
	ledger := &fakeLedger{}

	rows := &sliceRows{rows: []models.Row{
		{ProductName: "Dup", ImageURLs: []string{"http://a/1.jpg"}},
		{ProductName: "Dup", ImageURLs: []string{"http://a/2.jpg"}},
	}}

	err := newTestPipeline(&fakeFetcher{}, &fakeTranscoder{}, ledger, &fakeTracker{}).Run(context.Background(), rows, uuid.New())
	require.NoError(t, err)

	require.Len(t, ledger.saved, 2)
	assert.Equal(t, "Dup", ledger.saved[0].Name)
	assert.Equal(t, "Dup", ledger.saved[1].Name)
	assert.NotEqual(t, ledger.saved[0].ID, ledger.saved[1].ID)
}
