package portal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"customer-portal-backend/internal/folders"
	"customer-portal-backend/internal/models"
	"customer-portal-backend/internal/notify"
	"customer-portal-backend/internal/store/memory"
)

func TestUpload_StoresRecordsAndNotifies(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.media.failOn = "broken.pdf"

	view, err := f.session.OpenFolder(context.Background(), folders.CustomerUploads, testCustomerID)
	require.NoError(t, err)
	defer view.Close()
	waitItems(t, view)

	records, errs, err := f.session.Upload(context.Background(), folders.CustomerUploads, testCustomerID, []UploadFile{
		{Filename: "plan.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
		{Filename: "broken.pdf", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken.pdf")

	rec := records[0]
	assert.Equal(t, "projects/p1/customer-uploads/plan", rec.PublicID)
	assert.Equal(t, testCustomerID, rec.UploadedBy)
	assert.NotEmpty(t, rec.ID)
	require.NotNil(t, rec.UploadedAt)

	f.media.mu.Lock()
	assert.Equal(t, "projects/p1/customer-uploads", f.media.uploads[0].Folder)
	f.media.mu.Unlock()

	assert.Eventually(t, func() bool {
		_, ok := byPublicID(view.Items(), rec.PublicID)
		return ok
	}, testWait, testTick)

	events := f.notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, notify.EventFileUploaded, events[0].Type)
	assert.Equal(t, "plan.pdf", events[0].FileName)
}

func TestUpload_DeletesAssetWhenRecordFails(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.session.repo = &gatedRepo{Repository: f.repo, setErr: errBoom}

	records, errs, err := f.session.Upload(context.Background(), folders.CustomerUploads, testCustomerID, []UploadFile{
		{Filename: "plan.pdf", ContentType: "application/pdf", Data: []byte("%PDF")},
	})
	require.NoError(t, err)
	assert.Empty(t, records)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], errBoom)

	f.media.mu.Lock()
	defer f.media.mu.Unlock()
	assert.Equal(t, []string{"projects/p1/customer-uploads/plan"}, f.media.deleted)
	assert.Empty(t, f.notifier.Events())
}

func TestUpload_DisabledFolders(t *testing.T) {
	f := newFixture(t, memory.Options{})
	for _, p := range []string{folders.Reports, "admin/internal", "custom/garage"} {
		_, _, err := f.session.Upload(context.Background(), p, testCustomerID, []UploadFile{{Filename: "a.pdf"}})
		assert.ErrorIs(t, err, ErrUploadDisabled, p)
	}
	assert.Empty(t, f.media.uploads)
}

func TestUpload_CustomFolder(t *testing.T) {
	f := newFixture(t, memory.Options{})
	records, errs, err := f.session.Upload(context.Background(), "custom/kitchen", testCustomerID, []UploadFile{{Filename: "tiles.jpg"}})
	require.NoError(t, err)
	assert.Empty(t, errs)
	require.Len(t, records, 1)
	assert.Equal(t, "custom/kitchen", records[0].FolderPath)
}

func TestDeleteFile_RemovesMediaAndRecord(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.CustomerUploads, models.FileRecord{PublicID: "mine", UploadedBy: testCustomerID, URL: "https://cdn/mine.jpg"})

	err := f.session.DeleteFile(context.Background(), FileRef{FolderPath: folders.CustomerUploads, PublicID: "mine", UserID: testCustomerID})
	require.NoError(t, err)

	assert.Equal(t, []string{"mine"}, f.media.deleted)
	_, err = f.repo.Get(context.Background(), folders.CollectionKey(testProjectID, folders.CustomerUploads), "doc-mine")
	assert.Error(t, err)
}

func TestDeleteFile_OtherCustomersFile(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.CustomerUploads, models.FileRecord{PublicID: "theirs", UploadedBy: "c2"})

	err := f.session.DeleteFile(context.Background(), FileRef{FolderPath: folders.CustomerUploads, PublicID: "theirs", UserID: testCustomerID})
	assert.ErrorIs(t, err, ErrFileNotFound)
	assert.Empty(t, f.media.deleted)

	_, err = f.repo.Get(context.Background(), folders.CollectionKey(testProjectID, folders.CustomerUploads), "doc-theirs")
	assert.NoError(t, err)
}

func TestDeleteFile_ReportsAreReadOnly(t *testing.T) {
	f := newFixture(t, memory.Options{})
	f.addFile(t, folders.Reports, models.FileRecord{PublicID: "r1"})

	err := f.session.DeleteFile(context.Background(), reportRef("r1"))
	assert.ErrorIs(t, err, ErrUploadDisabled)
}
