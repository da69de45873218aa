package portal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store"
	"customer-portal-backend/internal/store/memory"
)

func openReports(t *testing.T, f *fixture) *FolderView {
	t.Helper()
	view, err := f.session.OpenFolder(context.Background(), folders.Reports, testCustomerID)
	require.NoError(t, err)
	t.Cleanup(view.Close)
	waitItems(t, view)
	return view
}

func reportRef(publicID string) FileRef {
	return FileRef{FolderPath: folders.Reports, PublicID: publicID, UserID: testCustomerID}
}

func TestMarkAsRead_PatchesSetsAndView(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	view := openReports(t, f)

	before := view.Items()
	setsBefore := f.session.Sets()

	res, err := f.session.MarkAsRead(context.Background(), reportRef("r1"))
	require.NoError(t, err)
	assert.True(t, res.File.IsRead)
	assert.Equal(t, models.ReportRead, res.File.ReportStatus)

	item, ok := byPublicID(view.Items(), "r1")
	require.True(t, ok)
	assert.True(t, item.IsRead)
	assert.Equal(t, models.ReportRead, item.ReportStatus)
	assert.False(t, item.Pending)

	// earlier snapshots are left untouched
	assert.Equal(t, models.ReportUnread, before[0].ReportStatus)
	assert.False(t, setsBefore.IsRead("r1"))
	assert.True(t, f.session.Sets().IsRead("r1"))

	_, err = f.repo.Get(context.Background(), ReadMarksCollection, readMarkID(testProjectID, testCustomerID, "r1"))
	assert.NoError(t, err)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventFileRead, events[0].Type)
	assert.Equal(t, "r1.pdf", events[0].FileName)
}

func TestApprove_WritesReadThenApproval(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	view := openReports(t, f)

	res, err := f.session.Approve(context.Background(), reportRef("r1"))
	require.NoError(t, err)
	assert.Equal(t, models.ReportApproved, res.File.ReportStatus)
	assert.True(t, res.File.IsRead)

	item, _ := byPublicID(view.Items(), "r1")
	assert.Equal(t, models.ReportApproved, item.ReportStatus)

	sets := f.session.Sets()
	assert.True(t, sets.IsRead("r1"))
	assert.True(t, sets.IsApproved("r1"))

	doc, err := f.repo.Get(context.Background(), ApprovalsCollection, approvalMarkID(testProjectID, testCustomerID, "r1"))
	require.NoError(t, err)
	assert.Equal(t, "approved", doc.String("status"))
	_, err = f.repo.Get(context.Background(), ReadMarksCollection, readMarkID(testProjectID, testCustomerID, "r1"))
	assert.NoError(t, err)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventFileApproved, events[0].Type)
}

func TestApprove_IsIdempotent(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})

	first, err := f.session.Approve(context.Background(), reportRef("r1"))
	require.NoError(t, err)
	second, err := f.session.Approve(context.Background(), reportRef("r1"))
	require.NoError(t, err)

	assert.Equal(t, first.File, second.File)
	assert.Len(t, f.notifier.Events(), 1, "no notification without a state change")

	docs, err := f.repo.Query(context.Background(), store.Query{Collection: ApprovalsCollection})
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestApprove_DisabledOutsideReportFolders(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, "documents/contracts", models.FileRecord{PublicID: "k1", FileName: "k1.pdf"})

	_, err := f.session.Approve(context.Background(), FileRef{FolderPath: "documents/contracts", PublicID: "k1", UserID: testCustomerID})
	assert.ErrorIs(t, err, ErrApprovalDisabled)
}

func TestAct_UnknownFile(t *testing.T) {
	f := newFixture(t, memory.Options{})
	_, err := f.session.MarkAsRead(context.Background(), reportRef("missing"))
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.False(t, f.session.isPending("missing"))
}

func TestAct_AdminFolderDenied(t *testing.T) {
	f := newFixture(t, memory.Options{})
	_, err := f.session.MarkAsRead(context.Background(), FileRef{FolderPath: "admin/notes", PublicID: "n1"})
	assert.ErrorIs(t, err, ErrFolderNotFound)
}

func TestAct_OtherCustomersUploadIsNotFound(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.CustomerUploads, models.FileRecord{PublicID: "u1", UploadedBy: "c2"})

	_, err := f.session.MarkAsRead(context.Background(), FileRef{FolderPath: folders.CustomerUploads, PublicID: "u1", UserID: testCustomerID})
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestView_ReturnsInlineURL(t *testing.T) {
	f := newFixture(t, memory.Options{})
	url := "https://res.cloudinary.com/demo/image/upload/v1/photo.jpg"
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "img", FileName: "photo.JPG", URL: url})

	res, err := f.session.View(context.Background(), reportRef("img"))
	require.NoError(t, err)
	assert.Equal(t, url, res.URL)
	assert.Equal(t, models.FileTypeImage, res.File.FileType)
	assert.True(t, f.session.Sets().IsRead("img"))
}

func TestDownload_PDFUsesRawAttachmentURL(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{
		PublicID: "rep",
		FileName: "report.pdf",
		URL:      "https://res.cloudinary.com/demo/image/upload/v1/rep.pdf",
	})

	res, err := f.session.Download(context.Background(), reportRef("rep"))
	require.NoError(t, err)
	assert.Equal(t, "https://res.cloudinary.com/demo/raw/upload/v1/rep.pdf?fl_attachment", res.URL)
}

func TestAct_WriteFailureLeavesStateUntouched(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	gated := &gatedRepo{Repository: f.repo, setErr: errBoom}
	f.session.repo = gated
	view := openReports(t, f)

	_, err := f.session.Approve(context.Background(), reportRef("r1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)

	item, _ := byPublicID(view.Items(), "r1")
	assert.Equal(t, models.ReportUnread, item.ReportStatus)
	assert.False(t, item.Pending)
	assert.False(t, f.session.Sets().IsRead("r1"))
	assert.Empty(t, f.notifier.Events())
}

func TestAct_SecondActionWhilePending(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	gated := &gatedRepo{Repository: f.repo, hold: make(chan struct{}), held: make(chan struct{}, 1)}
	f.session.repo = gated
	view := openReports(t, f)

	done := make(chan error, 1)
	go func() {
		_, err := f.session.MarkAsRead(context.Background(), reportRef("r1"))
		done <- err
	}()

	select {
	case <-gated.held:
	case <-time.After(2 * time.Second):
		t.Fatal("write was never issued")
	}

	item, _ := byPublicID(view.Items(), "r1")
	assert.True(t, item.Pending)

	_, err := f.session.Approve(context.Background(), reportRef("r1"))
	assert.True(t, errors.Is(err, ErrActionPending))

	close(gated.hold)

	require.NoError(t, <-done)
	item, _ = byPublicID(view.Items(), "r1")
	assert.False(t, item.Pending)
	assert.True(t, item.IsRead)
}

func TestAct_ClosedViewIsNotPatched(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	view := openReports(t, f)
	view.Close()

	_, err := f.session.MarkAsRead(context.Background(), reportRef("r1"))
	require.NoError(t, err)

	item, _ := byPublicID(view.Items(), "r1")
	assert.Equal(t, models.ReportUnread, item.ReportStatus)
}

func TestAct_PatchesEveryViewHoldingTheFile(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "same", FileName: "a.pdf", UploadedAt: at(1)})
	f.addFile(t, "documents/drawings", models.FileRecord{PublicID: "same", FileName: "b.pdf", UploadedAt: at(1)})
	reports := openReports(t, f)

	drawings, err := f.session.OpenFolder(context.Background(), "documents/drawings", testCustomerID)
	require.NoError(t, err)
	defer drawings.Close()
	waitItems(t, drawings)

	_, err = f.session.MarkAsRead(context.Background(), reportRef("same"))
	require.NoError(t, err)

	r, _ := byPublicID(reports.Items(), "same")
	assert.True(t, r.IsRead)
	d, _ := byPublicID(drawings.Items(), "same")
	assert.True(t, d.IsRead)
	assert.Equal(t, models.ReportRead, d.ReportStatus)
}

func TestMarkAsRead_IsIdempotent(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	clock := time.UnixMilli(5000).UTC()
	f.session.now = func() time.Time { return clock }

	first, err := f.session.MarkAsRead(context.Background(), reportRef("r1"))
	require.NoError(t, err)
	readCount := f.session.Sets().ReadCount()

	clock = clock.Add(time.Hour)
	second, err := f.session.MarkAsRead(context.Background(), reportRef("r1"))
	require.NoError(t, err)

	assert.Equal(t, first.File, second.File)
	assert.Equal(t, readCount, f.session.Sets().ReadCount())
	assert.Len(t, f.notifier.Events(), 1, "no notification without a state change")

	docs, err := f.repo.Query(context.Background(), store.Query{Collection: ReadMarksCollection})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	readAt, ok := docs[0].Int64("readAt")
	require.True(t, ok)
	assert.Equal(t, int64(5000), readAt, "the first read time is kept")
}

func TestMarkAsRead_KeepsExistingMarkWithoutPreload(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1", FileName: "r1.pdf", UploadedAt: at(1)})
	require.NoError(t, f.repo.Set(context.Background(), ReadMarksCollection, readMarkDocument(models.ReadMark{
		ProjectID:  testProjectID,
		CustomerID: testCustomerID,
		PublicID:   "r1",
		ReadAt:     time.UnixMilli(1234),
	})))
	f.repo.SetQueryHook(func(q store.Query) error {
		if q.Collection == ReadMarksCollection || q.Collection == ApprovalsCollection {
			return errBoom
		}
		return nil
	})

	res, err := f.session.MarkAsRead(context.Background(), reportRef("r1"))
	require.NoError(t, err)
	assert.Nil(t, f.session.Sets())
	assert.Equal(t, models.ReportRead, res.File.ReportStatus)

	doc, err := f.repo.Get(context.Background(), ReadMarksCollection, readMarkID(testProjectID, testCustomerID, "r1"))
	require.NoError(t, err)
	readAt, _ := doc.Int64("readAt")
	assert.Equal(t, int64(1234), readAt)
}

func TestApprove_AdminFolderNotFound(t *testing.T) {
	f := newFixture(t, memory.Options{})

	_, err := f.session.Approve(context.Background(), FileRef{FolderPath: "admin/internal", PublicID: "n1", UserID: testCustomerID})
	assert.ErrorIs(t, err, ErrFolderNotFound)
}
